package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
	"github.com/jmoiron/sqlx"
)

// EarlyFinishPolicyName is the wallet_policies row holding the flat
// early-finish no-show payout.
const EarlyFinishPolicyName = "early_finish_no_show"

// PolicyStore reads the per-sub-service wait policies and the flat
// compensation policy. Read-only from the engine's perspective.
type PolicyStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewPolicyStore(db *sqlx.DB, logger *slog.Logger) *PolicyStore {
	return &PolicyStore{db: db, logger: logger}
}

// WaitPolicy looks up the wait configuration for a sub-service, falling
// back to the defaults when no row exists.
func (s *PolicyStore) WaitPolicy(ctx context.Context, subService string) (domain.WaitPolicy, error) {
	query := `
		SELECT wait_time_minutes, no_show_percent
		FROM service_policies
		WHERE sub_service = $1
	`

	var row struct {
		WaitTimeMinutes int     `db:"wait_time_minutes"`
		NoShowPercent   float64 `db:"no_show_percent"`
	}
	err := s.db.GetContext(ctx, &row, query, subService)
	if err != nil {
		if err == sql.ErrNoRows {
			s.logger.Debug("no wait policy for sub-service, using defaults",
				slog.String("sub_service", subService),
			)
			return domain.DefaultWaitPolicy(subService), nil
		}
		return domain.WaitPolicy{}, fmt.Errorf("failed to look up wait policy: %w", err)
	}

	policy := domain.WaitPolicy{
		SubService:      subService,
		WaitTimeMinutes: row.WaitTimeMinutes,
		NoShowPercent:   row.NoShowPercent,
	}
	if policy.WaitTimeMinutes <= 0 {
		policy.WaitTimeMinutes = domain.DefaultWaitMinutes
	}
	if policy.NoShowPercent <= 0 {
		policy.NoShowPercent = domain.DefaultNoShowPercent
	}
	return policy, nil
}

// FixedCompensation returns the flat early-finish no-show payout amount.
// A missing policy row is an error; paying zero silently would hide a
// misconfigured ledger.
func (s *PolicyStore) FixedCompensation(ctx context.Context) (float64, error) {
	var amount float64
	err := s.db.GetContext(ctx, &amount,
		`SELECT compensation_amount FROM wallet_policies WHERE policy_name = $1`,
		EarlyFinishPolicyName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, domain.ErrPolicyNotFound
		}
		return 0, fmt.Errorf("failed to look up compensation policy: %w", err)
	}
	return amount, nil
}
