package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fieldtrack/tracker-be/internal/api/dto"
	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
	"github.com/fieldtrack/tracker-be/internal/tracker/lifecycle"
	"github.com/gin-gonic/gin"
)

// statusForError maps engine validation errors to HTTP statuses. Rule
// violations that depend on current stage or timing are conflicts;
// malformed input is a bad request.
func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrJobTerminal),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrTimerNotElapsed),
		errors.Is(err, domain.ErrTimerStillRunning),
		errors.Is(err, domain.ErrWaitNotElapsed),
		errors.Is(err, domain.ErrMinimumWorkNotMet),
		errors.Is(err, domain.ErrBookingConflict),
		errors.Is(err, domain.ErrNoPendingRating):
		return http.StatusConflict
	case errors.Is(err, domain.ErrReasonRequired),
		errors.Is(err, domain.ErrInvalidReason),
		errors.Is(err, domain.ErrNoteNotAllowed),
		errors.Is(err, domain.ErrInvalidRating),
		errors.Is(err, domain.ErrPaymentNotConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEngineClosed):
		return http.StatusGone
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// OpenTracking handles POST /api/v1/tracking/:order_id/open
// Loads the order and starts (or re-attaches to) its lifecycle engine
func (h *TrackingHandler) OpenTracking(c *gin.Context) {
	orderID := c.Param("order_id")

	var req dto.OpenTrackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	engine, err := h.registry.Open(c.Request.Context(), orderID, req.SpecialistID)
	if err != nil {
		h.logger.Error("Failed to open tracking",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	snap, err := engine.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetSnapshot handles GET /api/v1/tracking/:order_id
// Returns the current engine state for an open job
func (h *TrackingHandler) GetSnapshot(c *gin.Context) {
	orderID := c.Param("order_id")

	engine := h.registry.Get(orderID)
	if engine == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "tracking not open for this order",
		})
		return
	}

	snap, err := engine.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// act looks up the open engine for the order, runs the action on it, and
// responds with the refreshed snapshot. Terminal actions tear the engine
// down before the snapshot read; those answer with a minimal body.
func (h *TrackingHandler) act(c *gin.Context, action string, fn func(ctx context.Context, engine *lifecycle.Engine) error) {
	orderID := c.Param("order_id")

	engine := h.registry.Get(orderID)
	if engine == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "tracking not open for this order",
		})
		return
	}

	if err := fn(c.Request.Context(), engine); err != nil {
		h.logger.Warn("Tracking action rejected",
			slog.String("order_id", orderID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("Tracking action applied",
		slog.String("order_id", orderID),
		slog.String("action", action),
	)

	snap, err := engine.Snapshot(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"order_id": orderID,
			"action":   action,
			"result":   "ok",
		})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// StartMoving handles POST /api/v1/tracking/:order_id/moving
func (h *TrackingHandler) StartMoving(c *gin.Context) {
	h.act(c, "start_moving", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.StartMoving(ctx)
	})
}

// ConfirmArrival handles POST /api/v1/tracking/:order_id/arrived
func (h *TrackingHandler) ConfirmArrival(c *gin.Context) {
	h.act(c, "confirm_arrival", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.ConfirmArrival(ctx)
	})
}

// StartWork handles POST /api/v1/tracking/:order_id/start
func (h *TrackingHandler) StartWork(c *gin.Context) {
	h.act(c, "start_work", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.StartWork(ctx)
	})
}

// StartWaiting handles POST /api/v1/tracking/:order_id/waiting
func (h *TrackingHandler) StartWaiting(c *gin.Context) {
	h.act(c, "start_waiting", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.StartWaiting(ctx)
	})
}

// CustomerArrived handles POST /api/v1/tracking/:order_id/customer-arrived
func (h *TrackingHandler) CustomerArrived(c *gin.Context) {
	h.act(c, "customer_arrived", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.CustomerArrived(ctx)
	})
}

// ConfirmNoShow handles POST /api/v1/tracking/:order_id/no-show
func (h *TrackingHandler) ConfirmNoShow(c *gin.Context) {
	h.act(c, "confirm_no_show", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.ConfirmNoShow(ctx)
	})
}

// FinishWork handles POST /api/v1/tracking/:order_id/finish
func (h *TrackingHandler) FinishWork(c *gin.Context) {
	var req dto.FinishWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.act(c, "finish_work", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.FinishWork(ctx, domain.FinishReason(req.Reason), req.Note)
	})
}

// RequestExtension handles POST /api/v1/tracking/:order_id/extend
func (h *TrackingHandler) RequestExtension(c *gin.Context) {
	var req dto.ExtendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.act(c, "request_extension", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.RequestExtension(ctx, req.Hours)
	})
}

// ConfirmPayment handles POST /api/v1/tracking/:order_id/payment/confirm
func (h *TrackingHandler) ConfirmPayment(c *gin.Context) {
	var req dto.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.act(c, "confirm_payment", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.ConfirmPayment(ctx, req.Confirmed)
	})
}

// ReportPaymentNotReceived handles POST /api/v1/tracking/:order_id/payment/not-received
func (h *TrackingHandler) ReportPaymentNotReceived(c *gin.Context) {
	var req dto.PaymentNotReceivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.act(c, "payment_not_received", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.ReportPaymentNotReceived(ctx, domain.PaymentFailureReason(req.Reason), req.Note)
	})
}

// Rate handles POST /api/v1/tracking/:order_id/rating
func (h *TrackingHandler) Rate(c *gin.Context) {
	var req dto.RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.act(c, "rate", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.Rate(ctx, req.Stars, req.Note)
	})
}

// SubmitRating handles POST /api/v1/tracking/:order_id/rating/submit
func (h *TrackingHandler) SubmitRating(c *gin.Context) {
	var req dto.SubmitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.act(c, "submit_rating", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.SubmitRating(ctx, req.Note)
	})
}

// Cancel handles POST /api/v1/tracking/:order_id/cancel
func (h *TrackingHandler) Cancel(c *gin.Context) {
	var req dto.CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.act(c, "cancel", func(ctx context.Context, engine *lifecycle.Engine) error {
		return engine.Cancel(ctx, domain.CancelReason(req.Reason), req.Note)
	})
}
