package domain

// Stage is the lifecycle phase of a tracked job. The remote order row is
// the source of truth; the in-memory value is an optimistic projection.
type Stage string

const (
	StageInitial          Stage = "initial"
	StageMoving           Stage = "moving"
	StageArrived          Stage = "arrived"
	StageWaiting          Stage = "waiting_for_customer"
	StageWorking          Stage = "working"
	StageInvoiceRequested Stage = "invoice_requested"
	StageInvoiceDetails   Stage = "invoice_details"
	StageCustomerRating   Stage = "customer_rating"
	StagePaymentReceived  Stage = "payment_received"
	StageCancelled        Stage = "cancelled"
)

// Order status values persisted alongside the tracking stage.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Terminal reports whether no further transitions are allowed.
func (s Stage) Terminal() bool {
	return s == StagePaymentReceived || s == StageCancelled
}

// Status maps a tracking stage to the coarse order status written with it.
func (s Stage) Status() string {
	switch s {
	case StageInitial:
		return StatusPending
	case StagePaymentReceived:
		return StatusCompleted
	case StageCancelled:
		return StatusCancelled
	default:
		return StatusInProgress
	}
}

// Valid reports whether s is a known stage value.
func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageMoving, StageArrived, StageWaiting, StageWorking,
		StageInvoiceRequested, StageInvoiceDetails, StageCustomerRating,
		StagePaymentReceived, StageCancelled:
		return true
	}
	return false
}
