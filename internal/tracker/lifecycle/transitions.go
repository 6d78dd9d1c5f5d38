package lifecycle

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
)

func (e *Engine) requireStage(want domain.Stage) error {
	if e.job.Stage.Terminal() {
		return domain.ErrJobTerminal
	}
	if e.job.Stage != want {
		return fmt.Errorf("%w: %s", domain.ErrInvalidTransition, e.job.Stage)
	}
	return nil
}

func (e *Engine) startMoving() error {
	if err := e.requireStage(domain.StageInitial); err != nil {
		return err
	}
	// Claiming the job: pin it to the specialist's company and stop
	// broadcasting it, so a second company cannot race for the same order.
	e.job.CompanyID = e.deps.SpecialistCompanyID
	e.job.BroadcastEnabled = false
	e.setStage(domain.StageMoving, map[string]any{
		"company_id":        e.job.CompanyID,
		"broadcast_enabled": false,
	})
	return nil
}

func (e *Engine) confirmArrival() error {
	if err := e.requireStage(domain.StageMoving); err != nil {
		return err
	}
	if !e.timers.expired(timerMoving) {
		if e.pendingArrival {
			return nil
		}
		// Early tap: queue the arrival behind the gate and force the
		// moving write out immediately instead of waiting for it.
		e.pendingArrival = true
		e.deps.Sync.Enqueue(domain.StageMoving, map[string]any{
			"tracking_stage": string(domain.StageMoving),
			"status":         domain.StatusInProgress,
		})
		e.log.Info("arrival queued until moving gate expires",
			slog.Int("remaining", e.timers.remaining(timerMoving)),
		)
		return nil
	}
	e.commitArrival()
	return nil
}

// movingGateExpired commits a queued arrival the moment the gate opens.
func (e *Engine) movingGateExpired() {
	if e.pendingArrival && e.job.Stage == domain.StageMoving {
		e.commitArrival()
	}
}

func (e *Engine) commitArrival() {
	e.setStage(domain.StageArrived, nil)
}

func (e *Engine) startWork() error {
	if err := e.requireStage(domain.StageArrived); err != nil {
		return err
	}
	if !e.timers.expired(timerArrivedGate) {
		return domain.ErrTimerNotElapsed
	}
	e.commitStartWork()
	return nil
}

// autoStartWork is the fail-safe: if the specialist never presses start,
// the engine does it for them and reports the job as auto-started.
func (e *Engine) autoStartWork() {
	if e.job.Stage != domain.StageArrived {
		return
	}
	e.job.AutoStarted = true
	e.commitStartWork()
	e.deps.Notifier.Push("Auto-Started", "Work timer has been automatically started", "tracking_alerts")
	e.log.Info("work auto-started after idle arrival")
}

func (e *Engine) commitStartWork() {
	e.setStage(domain.StageWorking, map[string]any{
		"auto_started": e.job.AutoStarted,
	})
}

func (e *Engine) startWaiting() error {
	if err := e.requireStage(domain.StageArrived); err != nil {
		return err
	}

	ctx, cancel := e.opCtx()
	defer cancel()
	policy, err := e.deps.Policies.WaitPolicy(ctx, e.job.SubService)
	if err != nil {
		e.log.Warn("wait policy lookup failed, using defaults",
			slog.String("error", err.Error()),
		)
		policy = domain.DefaultWaitPolicy(e.job.SubService)
	}

	now := e.now()
	e.job.WaitWindow = &domain.WaitWindow{
		StartedAt: now,
		EndsAt:    now.Add(time.Duration(policy.WaitTimeMinutes) * time.Minute),
	}
	e.setStage(domain.StageWaiting, map[string]any{
		"waiting_started_at": e.job.WaitWindow.StartedAt,
		"waiting_ends_at":    e.job.WaitWindow.EndsAt,
	})

	e.deps.Messenger.SendTemplate(e.job.CustomerPhone, "specialist_waiting", e.job.CustomerLanguage, map[string]string{
		"order_number": e.job.OrderNumber,
		"wait_minutes": strconv.Itoa(policy.WaitTimeMinutes),
	})
	return nil
}

func (e *Engine) customerArrived() error {
	if err := e.requireStage(domain.StageWaiting); err != nil {
		return err
	}
	e.job.WaitWindow = nil
	e.setStage(domain.StageWorking, map[string]any{
		"waiting_started_at": nil,
		"waiting_ends_at":    nil,
	})
	return nil
}

func (e *Engine) confirmNoShow() error {
	if err := e.requireStage(domain.StageWaiting); err != nil {
		return err
	}
	if e.job.WaitWindow == nil || !e.job.WaitWindow.Elapsed(e.now()) {
		return domain.ErrWaitNotElapsed
	}

	ctx, cancel := e.opCtx()
	defer cancel()
	if _, err := e.deps.Compensator.NoShowAfterWait(ctx, e.job); err != nil {
		// Money did not move; the job must not be finalized as if it had.
		return err
	}

	e.job.WaitWindow = nil
	e.job.Cancellation = &domain.Cancellation{
		Actor:  e.job.SpecialistID,
		Role:   domain.RoleSpecialist,
		Reason: domain.CancelCustomerNoShow,
		At:     e.now(),
	}
	e.setStage(domain.StageCancelled, e.cancellationFields())
	return nil
}

func (e *Engine) finishWork(reason domain.FinishReason, note string) error {
	if err := e.requireStage(domain.StageWorking); err != nil {
		return err
	}

	if !e.timers.expired(timerWorking) {
		// Finishing early needs an explanation.
		if reason == "" {
			return domain.ErrReasonRequired
		}
		if !reason.Valid() {
			return fmt.Errorf("%w: %s", domain.ErrInvalidReason, reason)
		}
		if reason == domain.FinishOther && note == "" {
			return domain.ErrReasonRequired
		}
		if reason == domain.FinishNoShow {
			if time.Duration(e.job.ElapsedSeconds)*time.Second < e.cfg.MinWorkForNoShow {
				return domain.ErrMinimumWorkNotMet
			}
			ctx, cancel := e.opCtx()
			defer cancel()
			if _, err := e.deps.Compensator.NoShowEarlyFinish(ctx, e.job); err != nil {
				return err
			}
		}
		e.job.FinishReason = reason
		e.job.FinishNote = note
	}

	e.setStage(domain.StageInvoiceRequested, map[string]any{
		"finish_reason":   string(e.job.FinishReason),
		"finish_note":     e.job.FinishNote,
		"elapsed_seconds": e.job.ElapsedSeconds,
	})

	// Freeze the invoice figures and move straight to the details screen.
	e.job.RecalculateInvoice()
	e.setStage(domain.StageInvoiceDetails, map[string]any{
		"invoice_amount": e.job.InvoiceAmount,
		"hourly_rate":    e.job.HourlyRate,
		"hours_billed":   float64(e.job.AllottedSeconds) / 3600,
	})
	return nil
}

func (e *Engine) requestExtension(hours int) error {
	if err := e.requireStage(domain.StageWorking); err != nil {
		return err
	}
	if hours <= 0 {
		return fmt.Errorf("%w: extension hours must be positive", domain.ErrInvalidTransition)
	}
	if !e.timers.expired(timerWorking) {
		return domain.ErrTimerStillRunning
	}

	ctx, cancel := e.opCtx()
	defer cancel()
	now := e.now()
	next, err := e.deps.Bookings.NextBookingStart(ctx, e.job.SpecialistID, e.job.ID, now)
	if err != nil {
		return fmt.Errorf("failed to check upcoming bookings: %w", err)
	}
	if next != nil && next.Sub(now) < e.cfg.ExtensionConflict {
		return domain.ErrBookingConflict
	}

	e.job.AllottedSeconds += hours * 3600
	e.job.RecalculateInvoice()
	e.alert.stop()
	e.timers.start(timerWorking, e.job.WorkCountdownSeconds(), e.workExpired)

	e.deps.Sync.Enqueue(domain.StageWorking, map[string]any{
		"tracking_stage":   string(domain.StageWorking),
		"status":           domain.StatusInProgress,
		"allotted_seconds": e.job.AllottedSeconds,
		"invoice_amount":   e.job.InvoiceAmount,
	})
	e.log.Info("work extended",
		slog.Int("hours", hours),
		slog.Int("allotted_seconds", e.job.AllottedSeconds),
	)
	return nil
}

func (e *Engine) confirmPayment(confirmed bool) error {
	if err := e.requireStage(domain.StageInvoiceDetails); err != nil {
		return err
	}
	if !confirmed {
		return domain.ErrPaymentNotConfirmed
	}
	e.setStage(domain.StageCustomerRating, map[string]any{
		"payment_confirmed": true,
	})
	return nil
}

func (e *Engine) reportPaymentNotReceived(reason domain.PaymentFailureReason, note string) error {
	if err := e.requireStage(domain.StageInvoiceDetails); err != nil {
		return err
	}
	if reason == "" {
		return domain.ErrReasonRequired
	}
	if !reason.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidReason, reason)
	}
	if reason == domain.PaymentOther && note == "" {
		return domain.ErrReasonRequired
	}
	e.setStage(domain.StageCustomerRating, map[string]any{
		"payment_confirmed":      false,
		"payment_failure_reason": string(reason),
		"payment_failure_note":   note,
	})
	return nil
}

func (e *Engine) rate(stars int, note string) error {
	if err := e.requireStage(domain.StageCustomerRating); err != nil {
		return err
	}
	if stars < 1 || stars > 5 {
		return domain.ErrInvalidRating
	}
	if stars == 5 {
		if note != "" {
			return domain.ErrNoteNotAllowed
		}
		// A perfect rating completes instantly, no second action.
		e.pendingRating = nil
		e.commitRating(&domain.Rating{Stars: 5, SubmittedAt: e.now()})
		return nil
	}
	e.pendingRating = &domain.Rating{Stars: stars, Note: note}
	return nil
}

func (e *Engine) submitRating(note string) error {
	if err := e.requireStage(domain.StageCustomerRating); err != nil {
		return err
	}
	if e.pendingRating == nil {
		return domain.ErrNoPendingRating
	}
	rating := *e.pendingRating
	if note != "" {
		rating.Note = note
	}
	rating.SubmittedAt = e.now()
	e.pendingRating = nil
	e.commitRating(&rating)
	return nil
}

func (e *Engine) commitRating(rating *domain.Rating) {
	e.job.Rating = rating
	e.setStage(domain.StagePaymentReceived, map[string]any{
		"rating":      rating.Stars,
		"rating_note": rating.Note,
	})
}

func (e *Engine) cancel(reason domain.CancelReason, note string) error {
	if e.job.Stage.Terminal() {
		return domain.ErrJobTerminal
	}
	if reason == "" {
		return domain.ErrReasonRequired
	}
	if !reason.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidReason, reason)
	}
	if reason == domain.CancelOther && note == "" {
		return domain.ErrReasonRequired
	}
	e.job.WaitWindow = nil
	e.job.Cancellation = &domain.Cancellation{
		Actor:  e.job.SpecialistID,
		Role:   domain.RoleSpecialist,
		Reason: reason,
		Note:   note,
		At:     e.now(),
	}
	e.setStage(domain.StageCancelled, e.cancellationFields())
	return nil
}

func (e *Engine) cancellationFields() map[string]any {
	c := e.job.Cancellation
	return map[string]any{
		"cancel_actor":  c.Actor,
		"cancel_role":   c.Role,
		"cancel_reason": string(c.Reason),
		"cancel_note":   c.Note,
		"cancelled_at":  c.At,
	}
}
