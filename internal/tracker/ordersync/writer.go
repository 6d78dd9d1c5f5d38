package ordersync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
)

// Store persists a partial order update.
type Store interface {
	UpdateTracking(ctx context.Context, orderID string, fields map[string]any) error
}

// Publisher fans the resulting row change out to all subscribed clients.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte, contentType string) error
}

type write struct {
	stage  domain.Stage
	fields map[string]any
}

// Writer is the per-job single-flight write queue: exactly one remote
// write is in flight at a time and later enqueues wait their turn in
// order, so two stage transitions can never interleave on the wire.
type Writer struct {
	logger   *slog.Logger
	store    Store
	pub      Publisher
	orderID  string
	exchange string
	timeout  time.Duration

	// onError surfaces persistence failures back to the engine; the
	// optimistic local stage is kept either way.
	onError func(error)

	mu      sync.Mutex
	pending []write
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

type WriterConfig struct {
	OrderID   string
	Exchange  string
	Timeout   time.Duration
	OnError   func(error)
	Logger    *slog.Logger
	Store     Store
	Publisher Publisher
}

func NewWriter(cfg WriterConfig) *Writer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Writer{
		logger:   cfg.Logger.With(slog.String("order_id", cfg.OrderID)),
		store:    cfg.Store,
		pub:      cfg.Publisher,
		orderID:  cfg.OrderID,
		exchange: cfg.Exchange,
		timeout:  timeout,
		onError:  cfg.OnError,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Enqueue appends a write to the queue. Never blocks and never drops; a
// second transition arriving before the first write resolves is queued.
func (w *Writer) Enqueue(stage domain.Stage, fields map[string]any) {
	w.mu.Lock()
	w.pending = append(w.pending, write{stage: stage, fields: fields})
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue one write at a time until the context ends, or
// until Close is called and the remaining writes have been performed.
func (w *Writer) Run(ctx context.Context) {
	defer close(w.done)
	for {
		wr, ok := w.next()
		if !ok {
			if w.isClosed() {
				w.logger.Debug("sync writer drained")
				return
			}
			select {
			case <-ctx.Done():
				w.logger.Debug("sync writer stopped")
				return
			case <-w.wake:
				continue
			}
		}
		w.perform(ctx, wr)
	}
}

// Close marks the queue complete. Run performs what is still pending
// and then returns; Done signals when the drain has finished.
func (w *Writer) Close() {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Done is closed once Run has returned.
func (w *Writer) Done() <-chan struct{} {
	return w.done
}

func (w *Writer) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *Writer) next() (write, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return write{}, false
	}
	wr := w.pending[0]
	w.pending = w.pending[1:]
	return wr, true
}

func (w *Writer) perform(ctx context.Context, wr write) {
	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.store.UpdateTracking(opCtx, w.orderID, wr.fields); err != nil {
		w.logger.Error("order write failed",
			slog.String("stage", string(wr.stage)),
			slog.String("error", err.Error()),
		)
		if w.onError != nil {
			w.onError(fmt.Errorf("order write for stage %s failed: %w", wr.stage, err))
		}
		return
	}

	event := OrderEvent{
		OrderID: w.orderID,
		Stage:   wr.stage,
		Status:  wr.stage.Status(),
		Fields:  wr.fields,
		At:      time.Now(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		w.logger.Error("failed to marshal order event", slog.String("error", err.Error()))
		return
	}

	routingKey := "order." + w.orderID
	if err := w.pub.Publish(opCtx, w.exchange, routingKey, body, "application/json"); err != nil {
		// The row is persisted; the fan-out is best effort.
		w.logger.Warn("failed to publish order event",
			slog.String("stage", string(wr.stage)),
			slog.String("error", err.Error()),
		)
		return
	}

	w.logger.Debug("order write committed",
		slog.String("stage", string(wr.stage)),
		slog.Int("fields", len(wr.fields)),
	)
}
