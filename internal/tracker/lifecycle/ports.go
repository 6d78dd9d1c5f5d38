package lifecycle

import (
	"context"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
)

// Syncer funnels every committed stage write to the remote order row.
// Implementations must keep a single write in flight per job and preserve
// enqueue order; errors are reported asynchronously, not returned.
type Syncer interface {
	Enqueue(stage domain.Stage, fields map[string]any)
}

// PolicySource resolves the customer-wait policy for a sub-service,
// falling back to defaults when no row exists.
type PolicySource interface {
	WaitPolicy(ctx context.Context, subService string) (domain.WaitPolicy, error)
}

// Compensator runs the two no-show payout flows against the wallet
// ledger. A returned error means money did not move.
type Compensator interface {
	NoShowAfterWait(ctx context.Context, job *domain.Job) (*domain.WalletTransaction, error)
	NoShowEarlyFinish(ctx context.Context, job *domain.Job) (*domain.WalletTransaction, error)
}

// Notifier drives the specialist's device: local notifications, the
// vibration motor and the looping alert audio. Best effort; failures are
// the implementation's problem.
type Notifier interface {
	Push(title, body, channel string)
	Vibrate(pattern []int)
	StartAudioLoop(handle string)
	StopAudioLoop(handle string)
}

// Messenger sends a templated message to the customer's messaging
// account. Fire and forget; must never block.
type Messenger interface {
	SendTemplate(recipient, templateKey, languageTag string, variables map[string]string)
}

// BookingSource answers "when does this specialist's next booking start",
// used to refuse extensions that would collide with it.
type BookingSource interface {
	NextBookingStart(ctx context.Context, specialistID, excludeOrderID string, after time.Time) (*time.Time, error)
}
