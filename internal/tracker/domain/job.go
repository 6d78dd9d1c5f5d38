package domain

import (
	"math"
	"time"
)

// Job is the aggregate a lifecycle engine owns while a specialist works
// a field-service order, hydrated from the orders row.
type Job struct {
	ID               string
	OrderNumber      string
	SpecialistID     string
	CompanyID        string
	CustomerName     string
	CustomerPhone    string
	CustomerLanguage string
	ServiceType      string
	SubService       string

	Stage            Stage
	HoursBooked      float64
	HourlyRate       float64
	Discount         float64
	InvoiceAmount    float64
	AllottedSeconds  int
	ElapsedSeconds   int
	WaitWindow       *WaitWindow
	Rating           *Rating
	Cancellation     *Cancellation
	FinishReason     FinishReason
	FinishNote       string
	BroadcastEnabled bool
	AutoStarted      bool
	BookingDate      time.Time
}

// WaitWindow is the customer wait interval set while the specialist is
// at the door. Cleared when the wait resolves either way.
type WaitWindow struct {
	StartedAt time.Time
	EndsAt    time.Time
}

// Elapsed reports whether the window has fully run out at the given time.
func (w *WaitWindow) Elapsed(now time.Time) bool {
	return !now.Before(w.EndsAt)
}

// Rating is the customer rating captured at the end of the job. Note must
// be empty for a 5-star rating.
type Rating struct {
	Stars       int
	Note        string
	SubmittedAt time.Time
}

// Cancellation records who ended the job and why.
type Cancellation struct {
	Actor  string
	Role   string
	Reason CancelReason
	Note   string
	At     time.Time
}

// RecalculateInvoice recomputes the frozen invoice amount from the
// allotted duration. Extensions grow AllottedSeconds first, then call this.
func (j *Job) RecalculateInvoice() {
	hours := float64(j.AllottedSeconds) / 3600
	j.InvoiceAmount = Round2(hours*j.HourlyRate - j.Discount)
}

// WorkCountdownSeconds is what remains of the allotted work duration.
func (j *Job) WorkCountdownSeconds() int {
	remaining := j.AllottedSeconds - j.ElapsedSeconds
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Round2 rounds a monetary amount to two decimal places. All invoice and
// compensation figures go through this so ledger rows stay consistent.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
