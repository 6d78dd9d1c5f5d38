package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// WalletStore is the specialist wallet ledger: a balance column plus an
// append-only transaction log.
type WalletStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewWalletStore(db *sqlx.DB, logger *slog.Logger) *WalletStore {
	return &WalletStore{db: db, logger: logger}
}

// Credit appends a credit in one database transaction: the balance row
// is locked, updated, and the ledger row written with the resulting
// balance, so balance_after never gaps even when two jobs resolve for
// the same specialist at once.
func (s *WalletStore) Credit(ctx context.Context, specialistID string, amount float64, txType, orderID, description string) (*domain.WalletTransaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin wallet transaction: %w", err)
	}
	defer tx.Rollback()

	var balance float64
	err = tx.QueryRowContext(ctx,
		`SELECT wallet_balance FROM specialists WHERE specialist_id = $1 FOR UPDATE`,
		specialistID,
	).Scan(&balance)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("specialist %s not found", specialistID)
		}
		return nil, fmt.Errorf("failed to read wallet balance: %w", err)
	}

	newBalance := domain.Round2(balance + amount)
	_, err = tx.ExecContext(ctx,
		`UPDATE specialists SET wallet_balance = $1, updated_at = NOW() WHERE specialist_id = $2`,
		newBalance, specialistID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update wallet balance: %w", err)
	}

	entry := &domain.WalletTransaction{
		ID:           uuid.New().String(),
		SpecialistID: specialistID,
		Amount:       amount,
		BalanceAfter: newBalance,
		Type:         txType,
		OrderID:      orderID,
		Description:  description,
		CreatedAt:    time.Now(),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO wallet_transactions (
			transaction_id, specialist_id, amount, balance_after,
			transaction_type, order_id, description, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.SpecialistID, entry.Amount, entry.BalanceAfter,
		entry.Type, entry.OrderID, entry.Description, entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append wallet transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit wallet transaction: %w", err)
	}

	s.logger.Info("wallet credited",
		slog.String("specialist_id", specialistID),
		slog.Float64("amount", amount),
		slog.Float64("balance_after", newBalance),
		slog.String("type", txType),
	)
	return entry, nil
}

// Balance reads the current wallet balance.
func (s *WalletStore) Balance(ctx context.Context, specialistID string) (float64, error) {
	var balance float64
	err := s.db.GetContext(ctx, &balance,
		`SELECT wallet_balance FROM specialists WHERE specialist_id = $1`,
		specialistID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("specialist %s not found", specialistID)
		}
		return 0, fmt.Errorf("failed to read wallet balance: %w", err)
	}
	return balance, nil
}

type walletTxRow struct {
	TransactionID string         `db:"transaction_id"`
	SpecialistID  string         `db:"specialist_id"`
	Amount        float64        `db:"amount"`
	BalanceAfter  float64        `db:"balance_after"`
	Type          string         `db:"transaction_type"`
	OrderID       sql.NullString `db:"order_id"`
	Description   string         `db:"description"`
	CreatedAt     time.Time      `db:"created_at"`
}

// TxCursor is a keyset pagination cursor over the transaction log.
type TxCursor struct {
	CreatedAt     time.Time
	TransactionID string
}

// ListTransactions returns the newest transactions first, keyset
// paginated. Fetches one extra row so the caller can tell if more exist.
func (s *WalletStore) ListTransactions(ctx context.Context, specialistID string, pageSize int, cursor *TxCursor) ([]domain.WalletTransaction, error) {
	query := `
		SELECT transaction_id, specialist_id, amount, balance_after,
		       transaction_type, order_id, description, created_at
		FROM wallet_transactions
		WHERE specialist_id = $1
	`
	args := []interface{}{specialistID}
	argIdx := 2

	if cursor != nil {
		query += fmt.Sprintf(" AND (created_at, transaction_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, cursor.CreatedAt, cursor.TransactionID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, transaction_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, pageSize+1)

	var rows []walletTxRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}

	txs := make([]domain.WalletTransaction, len(rows))
	for i, row := range rows {
		txs[i] = domain.WalletTransaction{
			ID:           row.TransactionID,
			SpecialistID: row.SpecialistID,
			Amount:       row.Amount,
			BalanceAfter: row.BalanceAfter,
			Type:         row.Type,
			OrderID:      row.OrderID.String,
			Description:  row.Description,
			CreatedAt:    row.CreatedAt,
		}
	}
	return txs, nil
}

// CompanyID returns the company a specialist belongs to.
func (s *WalletStore) CompanyID(ctx context.Context, specialistID string) (string, error) {
	var companyID sql.NullString
	err := s.db.GetContext(ctx, &companyID,
		`SELECT company_id FROM specialists WHERE specialist_id = $1`,
		specialistID,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("specialist %s not found", specialistID)
		}
		return "", fmt.Errorf("failed to read specialist company: %w", err)
	}
	return companyID.String, nil
}
