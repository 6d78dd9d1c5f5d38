package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
)

// Config holds the engine timings. Zero values fall back to the
// behavior the tracking flow shipped with.
type Config struct {
	MovingGateSeconds  int
	ArrivedGateSeconds int
	AutoStartSeconds   int
	AlertInterval      int
	MinWorkForNoShow   time.Duration
	ExtensionConflict  time.Duration
	OpTimeout          time.Duration
}

func (c *Config) normalize() {
	if c.MovingGateSeconds <= 0 {
		c.MovingGateSeconds = 60
	}
	if c.ArrivedGateSeconds <= 0 {
		c.ArrivedGateSeconds = 60
	}
	if c.AutoStartSeconds <= 0 {
		c.AutoStartSeconds = 300
	}
	if c.AlertInterval <= 0 {
		c.AlertInterval = 10
	}
	if c.MinWorkForNoShow <= 0 {
		c.MinWorkForNoShow = 15 * time.Minute
	}
	if c.ExtensionConflict <= 0 {
		c.ExtensionConflict = 3 * time.Hour
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = 5 * time.Second
	}
}

// Deps are the collaborators an engine drives side effects through.
type Deps struct {
	Logger              *slog.Logger
	Sync                Syncer
	Policies            PolicySource
	Compensator         Compensator
	Notifier            Notifier
	Messenger           Messenger
	Bookings            BookingSource
	SpecialistCompanyID string

	// Now overrides the engine clock. Nil means time.Now.
	Now func() time.Time

	// OnTerminal is called once after the job reaches a terminal stage
	// and the engine has torn down.
	OnTerminal func(jobID string)
}

// RemoteEvent is pushed into the engine from outside the loop: an
// order-row change delivered by the subscription, or an asynchronous
// write failure from the sync writer.
type RemoteEvent struct {
	Stage    domain.Stage
	Status   string
	SyncErr  error
	Received time.Time
}

type command struct {
	fn    func() error
	reply chan error
}

// Engine owns the lifecycle of one job: a single goroutine multiplexes
// user actions, remote events and a one-second tick, so handling is
// serialized and the core needs no locks.
type Engine struct {
	log  *slog.Logger
	cfg  Config
	deps Deps
	job  *domain.Job

	cmds   chan command
	remote chan RemoteEvent
	done   chan struct{}

	timers *timerSet
	alert  *alerter
	now    func() time.Time

	pendingArrival bool
	pendingRating  *domain.Rating
	lastSyncErr    string
}

// New builds an engine around a hydrated job. Call Run to start it.
func New(job *domain.Job, cfg Config, deps Deps) *Engine {
	cfg.normalize()
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("job_id", job.ID))

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	e := &Engine{
		log:    log,
		cfg:    cfg,
		deps:   deps,
		job:    job,
		cmds:   make(chan command),
		remote: make(chan RemoteEvent, 16),
		done:   make(chan struct{}),
		timers: newTimerSet(),
		alert:  newAlerter(deps.Notifier, cfg.AlertInterval, log),
		now:    now,
	}

	// A re-opened job resumes mid-stage: arm the countdowns the hydrated
	// stage depends on, otherwise gates read as already elapsed.
	e.armStageTimers()
	return e
}

// Run processes events until the context is cancelled or the job reaches
// a terminal stage.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	defer close(e.done)

	e.log.Info("tracking engine started", slog.String("stage", string(e.job.Stage)))

	for {
		select {
		case <-ctx.Done():
			e.teardown()
			e.log.Info("tracking engine stopped - context canceled")
			return

		case cmd := <-e.cmds:
			cmd.reply <- cmd.fn()

		case ev := <-e.remote:
			e.handleRemote(ev)

		case <-ticker.C:
			e.tick()
		}

		if e.job.Stage.Terminal() {
			e.teardown()
			e.log.Info("tracking engine finished", slog.String("stage", string(e.job.Stage)))
			if e.deps.OnTerminal != nil {
				e.deps.OnTerminal(e.job.ID)
			}
			return
		}
	}
}

// PostRemote hands a remote event to the loop without blocking the
// caller. Events for a closed engine are dropped.
func (e *Engine) PostRemote(ev RemoteEvent) {
	select {
	case e.remote <- ev:
	case <-e.done:
	default:
		e.log.Warn("remote event dropped - engine busy")
	}
}

// do runs fn on the engine goroutine and waits for its result.
func (e *Engine) do(ctx context.Context, fn func() error) error {
	cmd := command{fn: fn, reply: make(chan error, 1)}
	select {
	case e.cmds <- cmd:
	case <-e.done:
		return domain.ErrEngineClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick is the once-per-second heartbeat: work time accrues, countdowns
// advance, the alert repeats.
func (e *Engine) tick() {
	if e.job.Stage == domain.StageWorking {
		e.job.ElapsedSeconds++
	}
	e.timers.tick()
	e.alert.tick()
}

func (e *Engine) handleRemote(ev RemoteEvent) {
	if ev.SyncErr != nil {
		e.lastSyncErr = ev.SyncErr.Error()
		e.log.Warn("remote write failed, keeping optimistic stage",
			slog.String("error", ev.SyncErr.Error()),
		)
		return
	}

	// The only remote change that overrides local state is a
	// cancellation; everything else is an echo of our own writes under
	// last-write-wins.
	cancelled := ev.Status == domain.StatusCancelled || ev.Stage == domain.StageCancelled
	if !cancelled || e.job.Stage.Terminal() {
		return
	}

	e.log.Info("remote cancellation received",
		slog.String("local_stage", string(e.job.Stage)),
	)
	e.timers.cancelAll()
	e.alert.stop()
	e.pendingArrival = false
	e.pendingRating = nil
	e.job.Cancellation = &domain.Cancellation{
		Actor:  "remote",
		Role:   domain.RoleAdmin,
		Reason: domain.CancelRemote,
		At:     e.now(),
	}
	// The remote row is already cancelled; no write back.
	e.job.Stage = domain.StageCancelled
	e.deps.Notifier.Push("Order cancelled", "This order was cancelled", "tracking_alerts")
}

func (e *Engine) teardown() {
	e.timers.cancelAll()
	e.alert.stop()
}

// setStage commits a transition: previous stage timers and alert are
// released first, then the new stage's timers are armed and the write is
// queued. The local stage is optimistic; a failed write surfaces through
// lastSyncErr and is reconciled by a later remote push.
func (e *Engine) setStage(stage domain.Stage, fields map[string]any) {
	from := e.job.Stage
	e.timers.cancelAll()
	e.alert.stop()
	e.pendingArrival = false
	e.job.Stage = stage
	e.armStageTimers()

	if fields == nil {
		fields = make(map[string]any)
	}
	fields["tracking_stage"] = string(stage)
	fields["status"] = stage.Status()
	e.deps.Sync.Enqueue(stage, fields)

	e.log.Info("stage transition",
		slog.String("from", string(from)),
		slog.String("to", string(stage)),
	)
}

func (e *Engine) armStageTimers() {
	switch e.job.Stage {
	case domain.StageMoving:
		e.timers.start(timerMoving, e.cfg.MovingGateSeconds, e.movingGateExpired)
	case domain.StageArrived:
		e.timers.start(timerArrivedGate, e.cfg.ArrivedGateSeconds, nil)
		e.timers.start(timerAutoStart, e.cfg.AutoStartSeconds, e.autoStartWork)
	case domain.StageWaiting:
		seconds := 0
		if w := e.job.WaitWindow; w != nil {
			seconds = int(w.EndsAt.Sub(e.now()) / time.Second)
		}
		e.timers.start(timerWaiting, seconds, e.waitExpired)
	case domain.StageWorking:
		e.timers.start(timerWorking, e.job.WorkCountdownSeconds(), e.workExpired)
	}
}

func (e *Engine) waitExpired() {
	e.alert.start("Customer wait elapsed", "The wait window ran out. Confirm a no-show or resume work.")
}

func (e *Engine) workExpired() {
	e.alert.start("Work time reached", "The booked work time is over. Finish work or request an extension.")
}

// opCtx bounds the blocking calls (policy lookups, payouts, booking
// queries) made from inside the loop.
func (e *Engine) opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), e.cfg.OpTimeout)
}
