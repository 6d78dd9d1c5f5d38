package lifecycle

import (
	"context"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
)

// The exported actions run on the engine goroutine; validation errors
// come back synchronously and cause no state change.

// StartMoving claims the job and begins the trip to the customer.
func (e *Engine) StartMoving(ctx context.Context) error {
	return e.do(ctx, e.startMoving)
}

// ConfirmArrival records arrival. Before the moving gate expires the
// arrival is queued and committed when the gate opens.
func (e *Engine) ConfirmArrival(ctx context.Context) error {
	return e.do(ctx, e.confirmArrival)
}

// StartWork begins the work countdown; gated for a grace period after
// arrival.
func (e *Engine) StartWork(ctx context.Context) error {
	return e.do(ctx, e.startWork)
}

// StartWaiting opens the policy-driven customer wait window and notifies
// the customer.
func (e *Engine) StartWaiting(ctx context.Context) error {
	return e.do(ctx, e.startWaiting)
}

// CustomerArrived resolves the wait and starts working, countdown or not.
func (e *Engine) CustomerArrived(ctx context.Context) error {
	return e.do(ctx, e.customerArrived)
}

// ConfirmNoShow cancels the job after a fully elapsed wait window and
// pays the percent-based compensation first.
func (e *Engine) ConfirmNoShow(ctx context.Context) error {
	return e.do(ctx, e.confirmNoShow)
}

// FinishWork ends the working stage. A reason is required only while the
// work countdown is still running.
func (e *Engine) FinishWork(ctx context.Context, reason domain.FinishReason, note string) error {
	return e.do(ctx, func() error { return e.finishWork(reason, note) })
}

// RequestExtension grows the allotted duration by whole hours once the
// countdown has expired, unless the next booking is too close.
func (e *Engine) RequestExtension(ctx context.Context, hours int) error {
	return e.do(ctx, func() error { return e.requestExtension(hours) })
}

// ConfirmPayment moves to the rating screen after an explicit
// confirmation.
func (e *Engine) ConfirmPayment(ctx context.Context, confirmed bool) error {
	return e.do(ctx, func() error { return e.confirmPayment(confirmed) })
}

// ReportPaymentNotReceived moves to the rating screen with a reason.
func (e *Engine) ReportPaymentNotReceived(ctx context.Context, reason domain.PaymentFailureReason, note string) error {
	return e.do(ctx, func() error { return e.reportPaymentNotReceived(reason, note) })
}

// Rate records the customer rating. Five stars completes the job
// immediately; anything lower waits for SubmitRating.
func (e *Engine) Rate(ctx context.Context, stars int, note string) error {
	return e.do(ctx, func() error { return e.rate(stars, note) })
}

// SubmitRating commits a pending 1-4 star rating; the note may be empty.
func (e *Engine) SubmitRating(ctx context.Context, note string) error {
	return e.do(ctx, func() error { return e.submitRating(note) })
}

// Cancel ends the job from any non-terminal stage with a reason.
func (e *Engine) Cancel(ctx context.Context, reason domain.CancelReason, note string) error {
	return e.do(ctx, func() error { return e.cancel(reason, note) })
}

// Snapshot is the engine state projected for the API layer.
type Snapshot struct {
	JobID                string               `json:"job_id"`
	OrderNumber          string               `json:"order_number"`
	Stage                domain.Stage         `json:"stage"`
	Status               string               `json:"status"`
	AllottedSeconds      int                  `json:"allotted_seconds"`
	ElapsedSeconds       int                  `json:"elapsed_seconds"`
	InvoiceAmount        float64              `json:"invoice_amount"`
	MovingGateRemaining  int                  `json:"moving_gate_remaining"`
	ArrivedGateRemaining int                  `json:"arrived_gate_remaining"`
	AutoStartRemaining   int                  `json:"auto_start_remaining"`
	WaitingRemaining     int                  `json:"waiting_remaining"`
	WorkingRemaining     int                  `json:"working_remaining"`
	WaitEndsAt           *time.Time           `json:"wait_ends_at,omitempty"`
	PendingArrival       bool                 `json:"pending_arrival"`
	PendingRating        bool                 `json:"pending_rating"`
	AlertActive          bool                 `json:"alert_active"`
	AutoStarted          bool                 `json:"auto_started"`
	Rating               *domain.Rating       `json:"rating,omitempty"`
	Cancellation         *domain.Cancellation `json:"cancellation,omitempty"`
	LastSyncError        string               `json:"last_sync_error,omitempty"`
}

// Snapshot reads the engine state through the loop, so it is always a
// consistent view.
func (e *Engine) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := e.do(ctx, func() error {
		snap = e.snapshot()
		return nil
	})
	return snap, err
}

func (e *Engine) snapshot() Snapshot {
	snap := Snapshot{
		JobID:                e.job.ID,
		OrderNumber:          e.job.OrderNumber,
		Stage:                e.job.Stage,
		Status:               e.job.Stage.Status(),
		AllottedSeconds:      e.job.AllottedSeconds,
		ElapsedSeconds:       e.job.ElapsedSeconds,
		InvoiceAmount:        e.job.InvoiceAmount,
		MovingGateRemaining:  e.timers.remaining(timerMoving),
		ArrivedGateRemaining: e.timers.remaining(timerArrivedGate),
		AutoStartRemaining:   e.timers.remaining(timerAutoStart),
		WaitingRemaining:     e.timers.remaining(timerWaiting),
		WorkingRemaining:     e.timers.remaining(timerWorking),
		PendingArrival:       e.pendingArrival,
		PendingRating:        e.pendingRating != nil,
		AlertActive:          e.alert.active,
		AutoStarted:          e.job.AutoStarted,
		Rating:               e.job.Rating,
		Cancellation:         e.job.Cancellation,
		LastSyncError:        e.lastSyncErr,
	}
	if w := e.job.WaitWindow; w != nil {
		endsAt := w.EndsAt
		snap.WaitEndsAt = &endsAt
	}
	return snap
}
