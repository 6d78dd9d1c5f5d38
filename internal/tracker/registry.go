// Package tracker wires per-job lifecycle engines to their stores,
// queues and device channels, and owns their goroutines.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
	"github.com/fieldtrack/tracker-be/internal/tracker/lifecycle"
	"github.com/fieldtrack/tracker-be/internal/tracker/messaging"
	"github.com/fieldtrack/tracker-be/internal/tracker/notify"
	"github.com/fieldtrack/tracker-be/internal/tracker/ordersync"
	"github.com/fieldtrack/tracker-be/internal/tracker/storage"
	"github.com/fieldtrack/tracker-be/internal/tracker/wallet"
)

// Config carries the engine timings plus the exchange topology.
type Config struct {
	Engine              lifecycle.Config
	OrderEventsExchange string
	NotifyExchange      string
	WriteTimeout        time.Duration
}

// Deps are the shared collaborators every engine borrows.
type Deps struct {
	Logger    *slog.Logger
	Orders    *storage.OrderStore
	Wallets   *storage.WalletStore
	Policies  *storage.PolicyStore
	Payouts   *wallet.Calculator
	Publisher ordersync.Publisher
	Messenger *messaging.Relay
}

type entry struct {
	engine *lifecycle.Engine
	writer *ordersync.Writer
	cancel context.CancelFunc
}

// Registry tracks the open engines, one per job being worked.
type Registry struct {
	cfg  Config
	deps Deps

	mu      sync.Mutex
	engines map[string]*entry
}

func NewRegistry(cfg Config, deps Deps) *Registry {
	return &Registry{
		cfg:     cfg,
		deps:    deps,
		engines: make(map[string]*entry),
	}
}

// Open loads the job and spins up its engine. Opening an already open
// job returns the running engine.
func (r *Registry) Open(ctx context.Context, orderID, specialistID string) (*lifecycle.Engine, error) {
	r.mu.Lock()
	if e, ok := r.engines[orderID]; ok {
		r.mu.Unlock()
		return e.engine, nil
	}
	r.mu.Unlock()

	job, err := r.deps.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if job.Stage.Terminal() {
		return nil, domain.ErrJobTerminal
	}
	if specialistID != "" {
		job.SpecialistID = specialistID
	}

	companyID, err := r.deps.Wallets.CompanyID(ctx, job.SpecialistID)
	if err != nil {
		return nil, err
	}

	engineCtx, cancel := context.WithCancel(context.Background())

	var engine *lifecycle.Engine
	writer := ordersync.NewWriter(ordersync.WriterConfig{
		OrderID:   orderID,
		Exchange:  r.cfg.OrderEventsExchange,
		Timeout:   r.cfg.WriteTimeout,
		Logger:    r.deps.Logger,
		Store:     r.deps.Orders,
		Publisher: r.deps.Publisher,
		OnError: func(err error) {
			if engine != nil {
				engine.PostRemote(lifecycle.RemoteEvent{SyncErr: err, Received: time.Now()})
			}
		},
	})

	notifier := notify.NewService(r.deps.Publisher, r.cfg.NotifyExchange, job.SpecialistID, r.deps.Logger)

	engine = lifecycle.New(job, r.cfg.Engine, lifecycle.Deps{
		Logger:              r.deps.Logger,
		Sync:                writer,
		Policies:            r.deps.Policies,
		Compensator:         r.deps.Payouts,
		Notifier:            notifier,
		Messenger:           r.deps.Messenger,
		Bookings:            r.deps.Orders,
		SpecialistCompanyID: companyID,
		OnTerminal:          r.remove,
	})

	r.mu.Lock()
	if existing, ok := r.engines[orderID]; ok {
		// Another request opened the same job first.
		r.mu.Unlock()
		cancel()
		return existing.engine, nil
	}
	r.engines[orderID] = &entry{engine: engine, writer: writer, cancel: cancel}
	r.mu.Unlock()

	go writer.Run(engineCtx)
	go engine.Run(engineCtx)

	r.deps.Logger.Info("tracking opened",
		slog.String("order_id", orderID),
		slog.String("specialist_id", job.SpecialistID),
		slog.String("stage", string(job.Stage)),
	)
	return engine, nil
}

// Get returns the open engine for a job, or nil.
func (r *Registry) Get(orderID string) *lifecycle.Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.engines[orderID]; ok {
		return e.engine
	}
	return nil
}

// ApplyRemote routes a pushed row change to the engine that owns the
// order. Events for jobs nobody has open are ignored.
func (r *Registry) ApplyRemote(orderID string, event ordersync.OrderEvent) {
	engine := r.Get(orderID)
	if engine == nil {
		return
	}
	engine.PostRemote(lifecycle.RemoteEvent{
		Stage:    event.Stage,
		Status:   event.Status,
		Received: time.Now(),
	})
}

// remove drops a finished engine; the writer drains the terminal write
// before the shared context is released.
func (r *Registry) remove(orderID string) {
	r.mu.Lock()
	e, ok := r.engines[orderID]
	if ok {
		delete(r.engines, orderID)
	}
	r.mu.Unlock()

	if ok {
		go func() {
			e.writer.Close()
			<-e.writer.Done()
			e.cancel()
		}()
	}
}

// Close tears down every open engine.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.engines {
		e.cancel()
		delete(r.engines, id)
	}
}
