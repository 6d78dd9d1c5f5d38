package dto

type OpenTrackingRequest struct {
	SpecialistID string `json:"specialist_id" binding:"required"`
}

type FinishWorkRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
}

type ExtendRequest struct {
	Hours int `json:"hours" binding:"required"`
}

type ConfirmPaymentRequest struct {
	Confirmed bool `json:"confirmed"`
}

type PaymentNotReceivedRequest struct {
	Reason string `json:"reason" binding:"required"`
	Note   string `json:"note"`
}

type RateRequest struct {
	Stars int    `json:"stars" binding:"required"`
	Note  string `json:"note"`
}

type SubmitRatingRequest struct {
	Note string `json:"note"`
}

type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
	Note   string `json:"note"`
}

type ListTransactionsRequest struct {
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

type WalletTransactionDTO struct {
	TransactionID string  `json:"transaction_id"`
	Amount        float64 `json:"amount"`
	BalanceAfter  float64 `json:"balance_after"`
	Type          string  `json:"transaction_type"`
	OrderID       string  `json:"order_id,omitempty"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

type ListTransactionsResponse struct {
	Transactions []WalletTransactionDTO `json:"transactions"`
	NextCursor   string                 `json:"next_cursor,omitempty"`
}

type BalanceResponse struct {
	SpecialistID string  `json:"specialist_id"`
	Balance      float64 `json:"balance"`
}

type WaitPolicyResponse struct {
	SubService      string  `json:"sub_service"`
	WaitTimeMinutes int     `json:"wait_time_minutes"`
	NoShowPercent   float64 `json:"no_show_percent"`
}
