// Package storage holds the sqlx-backed stores for orders, wallets and
// policies.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
	"github.com/jmoiron/sqlx"
)

// orderRow mirrors the orders table columns the engine touches.
type orderRow struct {
	OrderID          string          `db:"order_id"`
	OrderNumber      string          `db:"order_number"`
	SpecialistID     sql.NullString  `db:"specialist_id"`
	CompanyID        sql.NullString  `db:"company_id"`
	CustomerName     string          `db:"customer_name"`
	CustomerPhone    string          `db:"customer_phone"`
	CustomerLanguage sql.NullString  `db:"customer_language"`
	ServiceType      string          `db:"service_type"`
	SubService       sql.NullString  `db:"sub_service"`
	Status           string          `db:"status"`
	TrackingStage    sql.NullString  `db:"tracking_stage"`
	HoursBooked      float64         `db:"hours_booked"`
	HourlyRate       float64         `db:"hourly_rate"`
	Discount         float64         `db:"discount"`
	InvoiceAmount    sql.NullFloat64 `db:"invoice_amount"`
	AllottedSeconds  sql.NullInt64   `db:"allotted_seconds"`
	ElapsedSeconds   sql.NullInt64   `db:"elapsed_seconds"`
	WaitingStartedAt sql.NullTime    `db:"waiting_started_at"`
	WaitingEndsAt    sql.NullTime    `db:"waiting_ends_at"`
	BroadcastEnabled bool            `db:"broadcast_enabled"`
	AutoStarted      bool            `db:"auto_started"`
	BookingDate      sql.NullTime    `db:"booking_date"`
}

// OrderStore reads and updates the authoritative order rows.
type OrderStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewOrderStore(db *sqlx.DB, logger *slog.Logger) *OrderStore {
	return &OrderStore{db: db, logger: logger}
}

// GetOrder loads one order row and hydrates the job aggregate.
func (s *OrderStore) GetOrder(ctx context.Context, orderID string) (*domain.Job, error) {
	query := `
		SELECT order_id, order_number, specialist_id, company_id,
		       customer_name, customer_phone, customer_language,
		       service_type, sub_service, status, tracking_stage,
		       hours_booked, hourly_rate, discount, invoice_amount,
		       allotted_seconds, elapsed_seconds,
		       waiting_started_at, waiting_ends_at,
		       broadcast_enabled, auto_started, booking_date
		FROM orders
		WHERE order_id = $1
	`

	var row orderRow
	if err := s.db.GetContext(ctx, &row, query, orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return rowToJob(&row), nil
}

func rowToJob(row *orderRow) *domain.Job {
	job := &domain.Job{
		ID:               row.OrderID,
		OrderNumber:      row.OrderNumber,
		SpecialistID:     row.SpecialistID.String,
		CompanyID:        row.CompanyID.String,
		CustomerName:     row.CustomerName,
		CustomerPhone:    row.CustomerPhone,
		CustomerLanguage: row.CustomerLanguage.String,
		ServiceType:      row.ServiceType,
		SubService:       row.SubService.String,
		Stage:            domain.StageInitial,
		HoursBooked:      row.HoursBooked,
		HourlyRate:       row.HourlyRate,
		Discount:         row.Discount,
		InvoiceAmount:    row.InvoiceAmount.Float64,
		ElapsedSeconds:   int(row.ElapsedSeconds.Int64),
		BroadcastEnabled: row.BroadcastEnabled,
		AutoStarted:      row.AutoStarted,
	}
	if row.TrackingStage.Valid && domain.Stage(row.TrackingStage.String).Valid() {
		job.Stage = domain.Stage(row.TrackingStage.String)
	}
	if row.AllottedSeconds.Valid && row.AllottedSeconds.Int64 > 0 {
		job.AllottedSeconds = int(row.AllottedSeconds.Int64)
	} else {
		job.AllottedSeconds = int(row.HoursBooked * 3600)
	}
	if job.InvoiceAmount == 0 {
		job.RecalculateInvoice()
	}
	if row.WaitingStartedAt.Valid && row.WaitingEndsAt.Valid {
		job.WaitWindow = &domain.WaitWindow{
			StartedAt: row.WaitingStartedAt.Time,
			EndsAt:    row.WaitingEndsAt.Time,
		}
	}
	if row.BookingDate.Valid {
		job.BookingDate = row.BookingDate.Time
	}
	return job
}

// UpdateTracking writes a partial field update to the order row. Field
// names are column names; keys are sorted so the statement is stable.
func (s *OrderStore) UpdateTracking(ctx context.Context, orderID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, 0, len(keys)+1)
	args := make([]interface{}, 0, len(keys)+1)
	for i, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = $%d", k, i+1))
		args = append(args, fields[k])
	}
	sets = append(sets, "updated_at = NOW()")

	query := fmt.Sprintf("UPDATE orders SET %s WHERE order_id = $%d",
		strings.Join(sets, ", "), len(keys)+1)
	args = append(args, orderID)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order tracking: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}

	s.logger.Debug("order tracking updated",
		slog.String("order_id", orderID),
		slog.Int("fields", len(fields)),
	)
	return nil
}

// NextBookingStart returns the start of the specialist's next upcoming
// booking after the given time, or nil when there is none. Used to
// refuse extensions that would collide with it.
func (s *OrderStore) NextBookingStart(ctx context.Context, specialistID, excludeOrderID string, after time.Time) (*time.Time, error) {
	query := `
		SELECT booking_date
		FROM orders
		WHERE specialist_id = $1
		  AND order_id != $2
		  AND booking_date > $3
		  AND status IN ($4, $5)
		ORDER BY booking_date ASC
		LIMIT 1
	`

	var next time.Time
	err := s.db.GetContext(ctx, &next, query,
		specialistID, excludeOrderID, after,
		domain.StatusPending, domain.StatusInProgress,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query next booking: %w", err)
	}
	return &next, nil
}
