package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldtrack/tracker-be/internal/api/dto"
	"github.com/fieldtrack/tracker-be/internal/tracker/storage"
	"github.com/gin-gonic/gin"
)

// GetBalance handles GET /api/v1/wallet/:specialist_id/balance
func (h *WalletHandler) GetBalance(c *gin.Context) {
	specialistID := c.Param("specialist_id")
	if specialistID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "specialist_id is required",
		})
		return
	}

	balance, err := h.wallets.Balance(c.Request.Context(), specialistID)
	if err != nil {
		h.logger.Error("Failed to read wallet balance",
			slog.String("specialist_id", specialistID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusNotFound, gin.H{
			"error": "specialist not found",
		})
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{
		SpecialistID: specialistID,
		Balance:      balance,
	})
}

// ListTransactions handles GET /api/v1/wallet/:specialist_id/transactions
// Lists ledger entries newest first with cursor pagination
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	specialistID := c.Param("specialist_id")

	var req dto.ListTransactionsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeTxCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	txs, err := h.wallets.ListTransactions(c.Request.Context(), specialistID, req.PageSize, cursor)
	if err != nil {
		h.logger.Error("Failed to list wallet transactions",
			slog.String("specialist_id", specialistID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list wallet transactions",
		})
		return
	}

	hasMore := len(txs) > req.PageSize
	if hasMore {
		txs = txs[:req.PageSize]
	}

	txResponse := make([]dto.WalletTransactionDTO, len(txs))
	for i, tx := range txs {
		txResponse[i] = dto.WalletTransactionDTO{
			TransactionID: tx.ID,
			Amount:        tx.Amount,
			BalanceAfter:  tx.BalanceAfter,
			Type:          tx.Type,
			OrderID:       tx.OrderID,
			Description:   tx.Description,
			CreatedAt:     tx.CreatedAt.Format(time.RFC3339),
		}
	}

	var nextCursor string
	if hasMore {
		lastTx := txs[len(txs)-1]
		cursorObj := storage.TxCursor{
			CreatedAt:     lastTx.CreatedAt,
			TransactionID: lastTx.ID,
		}
		nextCursor, err = EncodeTxCursor(&cursorObj)
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListTransactionsResponse{
		Transactions: txResponse,
		NextCursor:   nextCursor,
	})
}
