// Package ordersync mirrors committed stage transitions to the order
// store and reacts to externally pushed row changes.
package ordersync

import (
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
)

// OrderEvent is the row-change payload published on the order events
// exchange after every write, and consumed from every other writer.
// Delivery is eventually consistent, last-write-wins on stage/status.
type OrderEvent struct {
	OrderID string         `json:"order_id"`
	Stage   domain.Stage   `json:"tracking_stage"`
	Status  string         `json:"status"`
	Fields  map[string]any `json:"fields,omitempty"`
	At      time.Time      `json:"at"`
}
