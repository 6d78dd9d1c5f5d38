// Package wallet computes no-show compensation payouts and appends them
// to the specialist's ledger.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
)

// ErrLedgerFailed marks a payout where money did not move. Callers must
// surface it distinctly and must not proceed as if payment succeeded.
var ErrLedgerFailed = errors.New("wallet ledger write failed")

// Ledger appends a credit to a specialist wallet. The implementation
// must make balance update + transaction append atomic per specialist.
type Ledger interface {
	Credit(ctx context.Context, specialistID string, amount float64, txType, orderID, description string) (*domain.WalletTransaction, error)
}

// PolicySource resolves the compensation configuration.
type PolicySource interface {
	WaitPolicy(ctx context.Context, subService string) (domain.WaitPolicy, error)
	FixedCompensation(ctx context.Context) (float64, error)
}

// Calculator implements the two payout flows. Neither retries
// automatically; a failed payout is reported and the caller decides.
type Calculator struct {
	ledger   Ledger
	policies PolicySource
	logger   *slog.Logger
}

func NewCalculator(ledger Ledger, policies PolicySource, logger *slog.Logger) *Calculator {
	return &Calculator{ledger: ledger, policies: policies, logger: logger}
}

// NoShowAfterWait pays the percent-of-invoice compensation after a fully
// elapsed wait window.
func (c *Calculator) NoShowAfterWait(ctx context.Context, job *domain.Job) (*domain.WalletTransaction, error) {
	policy, err := c.policies.WaitPolicy(ctx, job.SubService)
	if err != nil {
		c.logger.Warn("wait policy lookup failed, using defaults",
			slog.String("sub_service", job.SubService),
			slog.String("error", err.Error()),
		)
		policy = domain.DefaultWaitPolicy(job.SubService)
	}

	amount := domain.Round2(job.InvoiceAmount * policy.NoShowPercent / 100)
	description := fmt.Sprintf("No-show compensation: %.0f%% of invoice %.2f for order %s",
		policy.NoShowPercent, job.InvoiceAmount, job.OrderNumber)

	tx, err := c.ledger.Credit(ctx, job.SpecialistID, amount, domain.TxCompensation, job.ID, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	c.logger.Info("no-show compensation paid",
		slog.String("specialist_id", job.SpecialistID),
		slog.String("order_id", job.ID),
		slog.Float64("amount", amount),
		slog.Float64("balance_after", tx.BalanceAfter),
	)
	return tx, nil
}

// MinWorkForEarlyNoShow is the minimum elapsed work time before the
// early-finish no-show payout is allowed.
const MinWorkForEarlyNoShow = 15 * time.Minute

// NoShowEarlyFinish pays the flat policy amount on the early-finish
// no-show path, gated on the minimum elapsed work time.
func (c *Calculator) NoShowEarlyFinish(ctx context.Context, job *domain.Job) (*domain.WalletTransaction, error) {
	if time.Duration(job.ElapsedSeconds)*time.Second < MinWorkForEarlyNoShow {
		return nil, domain.ErrMinimumWorkNotMet
	}

	amount, err := c.policies.FixedCompensation(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	amount = domain.Round2(amount)
	description := fmt.Sprintf("No-show compensation: fixed amount %.2f for early finish of order %s",
		amount, job.OrderNumber)

	tx, err := c.ledger.Credit(ctx, job.SpecialistID, amount, domain.TxCompensation, job.ID, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLedgerFailed, err)
	}

	c.logger.Info("early-finish no-show compensation paid",
		slog.String("specialist_id", job.SpecialistID),
		slog.String("order_id", job.ID),
		slog.Float64("amount", amount),
		slog.Float64("balance_after", tx.BalanceAfter),
	)
	return tx, nil
}
