package domain

// FinishReason explains an early finish while the work countdown is still
// running. Not required once the countdown has elapsed.
type FinishReason string

const (
	FinishNoShow          FinishReason = "customer_no_show"
	FinishFinishedEarly   FinishReason = "finished_early"
	FinishCustomerStopped FinishReason = "customer_stopped"
	FinishEmergency       FinishReason = "emergency"
	FinishOther           FinishReason = "other"
)

func (r FinishReason) Valid() bool {
	switch r {
	case FinishNoShow, FinishFinishedEarly, FinishCustomerStopped, FinishEmergency, FinishOther:
		return true
	}
	return false
}

// PaymentFailureReason explains a "payment not received" report on the
// invoice details screen.
type PaymentFailureReason string

const (
	PaymentCustomerRefused     PaymentFailureReason = "customer_refused"
	PaymentCustomerUnreachable PaymentFailureReason = "customer_unreachable"
	PaymentDeferred            PaymentFailureReason = "payment_deferred"
	PaymentOther               PaymentFailureReason = "other"
)

func (r PaymentFailureReason) Valid() bool {
	switch r {
	case PaymentCustomerRefused, PaymentCustomerUnreachable, PaymentDeferred, PaymentOther:
		return true
	}
	return false
}

// CancelReason explains a manual cancellation.
type CancelReason string

const (
	CancelCustomerRequested   CancelReason = "customer_requested"
	CancelCustomerNoShow      CancelReason = "customer_no_show"
	CancelNotFamily           CancelReason = "not_family"
	CancelSpecialistEmergency CancelReason = "specialist_emergency"
	CancelRemote              CancelReason = "cancelled_remotely"
	CancelOther               CancelReason = "other"
)

func (r CancelReason) Valid() bool {
	switch r {
	case CancelCustomerRequested, CancelCustomerNoShow, CancelNotFamily,
		CancelSpecialistEmergency, CancelRemote, CancelOther:
		return true
	}
	return false
}

// Cancellation actor roles.
const (
	RoleSpecialist = "specialist"
	RoleCustomer   = "customer"
	RoleAdmin      = "admin"
	RoleSystem     = "system"
)
