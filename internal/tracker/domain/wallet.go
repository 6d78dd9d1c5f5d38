package domain

import "time"

// Wallet transaction types. This engine only appends compensation
// credits; the other types exist in the ledger history.
const (
	TxCompensation = "compensation"
	TxTopup        = "topup"
	TxDeduction    = "deduction"
	TxRefund       = "refund"
)

// WalletTransaction is one append-only ledger row. BalanceAfter must
// equal the previous balance plus Amount for every row.
type WalletTransaction struct {
	ID           string
	SpecialistID string
	Amount       float64
	BalanceAfter float64
	Type         string
	OrderID      string
	Description  string
	CreatedAt    time.Time
}

// WaitPolicy is the per-sub-service wait configuration.
type WaitPolicy struct {
	SubService      string
	WaitTimeMinutes int
	NoShowPercent   float64
}

// Policy defaults applied when no row exists for a sub-service.
const (
	DefaultWaitMinutes   = 5
	DefaultNoShowPercent = 50
)

func DefaultWaitPolicy(subService string) WaitPolicy {
	return WaitPolicy{
		SubService:      subService,
		WaitTimeMinutes: DefaultWaitMinutes,
		NoShowPercent:   DefaultNoShowPercent,
	}
}
