package lifecycle

import (
	"testing"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
	"github.com/stretchr/testify/assert"
)

func TestTimerSet(t *testing.T) {
	t.Run("unarmed timers read as expired with no remaining", func(t *testing.T) {
		s := newTimerSet()

		assert.True(t, s.expired(timerMoving))
		assert.Equal(t, -1, s.remaining(timerMoving))
		assert.Equal(t, 0, s.count())
	})

	t.Run("counts down and fires once", func(t *testing.T) {
		s := newTimerSet()
		fired := 0
		s.start(timerMoving, 3, func() { fired++ })

		s.tick()
		s.tick()
		assert.Equal(t, 1, s.remaining(timerMoving))
		assert.False(t, s.expired(timerMoving))
		assert.Equal(t, 0, fired)

		s.tick()
		assert.Equal(t, 1, fired)
		assert.True(t, s.expired(timerMoving))

		// Expired timers stay armed but never re-fire.
		s.tick()
		s.tick()
		assert.Equal(t, 1, fired)
		assert.Equal(t, 0, s.remaining(timerMoving))
	})

	t.Run("zero duration fires on the next tick", func(t *testing.T) {
		s := newTimerSet()
		fired := 0
		s.start(timerWorking, 0, func() { fired++ })

		assert.True(t, s.expired(timerWorking))
		s.tick()
		assert.Equal(t, 1, fired)
	})

	t.Run("negative duration is clamped to zero", func(t *testing.T) {
		s := newTimerSet()
		s.start(timerWorking, -5, nil)

		assert.Equal(t, 0, s.remaining(timerWorking))
		assert.True(t, s.expired(timerWorking))
	})

	t.Run("restart replaces the countdown and resets the fired guard", func(t *testing.T) {
		s := newTimerSet()
		fired := 0
		s.start(timerWorking, 1, func() { fired++ })
		s.tick()
		assert.Equal(t, 1, fired)

		s.start(timerWorking, 2, func() { fired++ })
		assert.Equal(t, 2, s.remaining(timerWorking))
		s.tick()
		s.tick()
		assert.Equal(t, 2, fired)
	})

	t.Run("nil expiry callbacks are tolerated", func(t *testing.T) {
		s := newTimerSet()
		s.start(timerArrivedGate, 1, nil)

		s.tick()
		assert.True(t, s.expired(timerArrivedGate))
	})

	t.Run("cancel and cancelAll disarm", func(t *testing.T) {
		s := newTimerSet()
		s.start(timerMoving, 10, nil)
		s.start(timerWorking, 10, nil)
		assert.Equal(t, 2, s.count())

		s.cancel(timerMoving)
		assert.Equal(t, -1, s.remaining(timerMoving))
		assert.Equal(t, 1, s.count())

		s.cancelAll()
		assert.Equal(t, 0, s.count())
	})
}

func TestStageTimerArming(t *testing.T) {
	cases := []struct {
		name  string
		setup func(t *testing.T) *Engine
		want  []timerKind
	}{
		{
			name: "moving arms the gate",
			setup: func(t *testing.T) *Engine {
				engine, _ := newTestEngine(t, domain.StageInitial)
				mustDo(t, engine.startMoving)
				return engine
			},
			want: []timerKind{timerMoving},
		},
		{
			name: "arrived arms gate and auto-start",
			setup: func(t *testing.T) *Engine {
				engine, _ := newTestEngine(t, domain.StageArrived)
				return engine
			},
			want: []timerKind{timerArrivedGate, timerAutoStart},
		},
		{
			name: "waiting arms the wait countdown",
			setup: func(t *testing.T) *Engine {
				engine, _ := newTestEngine(t, domain.StageArrived)
				mustDo(t, engine.startWaiting)
				return engine
			},
			want: []timerKind{timerWaiting},
		},
		{
			name: "working arms the work countdown",
			setup: func(t *testing.T) *Engine {
				engine, f := newTestEngine(t, domain.StageArrived)
				advance(engine, f, 60)
				mustDo(t, engine.startWork)
				return engine
			},
			want: []timerKind{timerWorking},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine := tc.setup(t)

			assert.Equal(t, len(tc.want), engine.timers.count())
			for _, kind := range tc.want {
				assert.NotEqual(t, -1, engine.timers.remaining(kind), "timer %s not armed", kind)
			}
		})
	}
}

// A job opened mid-stage must come back with its countdowns armed.
// Unarmed timers read as expired, which would let the elapsed-time gates
// wave through actions that still have hours on the clock.
func TestHydratedStageResumesCountdowns(t *testing.T) {
	t.Run("working job resumes the remaining work countdown", func(t *testing.T) {
		job := &domain.Job{
			ID:               "order-1",
			OrderNumber:      "ORD-1001",
			SpecialistID:     "spec-1",
			CustomerName:     "Dana",
			CustomerPhone:    "+15550001111",
			CustomerLanguage: "en",
			SubService:       "deep_clean",
			Stage:            domain.StageWorking,
			HoursBooked:      2,
			HourlyRate:       50,
			AllottedSeconds:  7200,
			ElapsedSeconds:   600,
		}
		job.RecalculateInvoice()

		engine, f := newTestEngineForJob(t, job)

		assert.Equal(t, 1, engine.timers.count())
		assert.Equal(t, 6600, engine.timers.remaining(timerWorking))

		// Ten minutes in, finishing without a reason is still early.
		assert.ErrorIs(t, engine.finishWork("", ""), domain.ErrReasonRequired)
		assert.Equal(t, domain.StageWorking, engine.job.Stage)

		advance(engine, f, 6600)
		assert.True(t, engine.alert.active)
	})

	t.Run("waiting job resumes the restored wait window", func(t *testing.T) {
		job := &domain.Job{
			ID:               "order-1",
			OrderNumber:      "ORD-1001",
			SpecialistID:     "spec-1",
			CustomerName:     "Dana",
			CustomerPhone:    "+15550001111",
			CustomerLanguage: "en",
			SubService:       "deep_clean",
			Stage:            domain.StageWaiting,
			HoursBooked:      2,
			HourlyRate:       50,
			AllottedSeconds:  7200,
			WaitWindow: &domain.WaitWindow{
				StartedAt: testClockStart.Add(-3 * time.Minute),
				EndsAt:    testClockStart.Add(2 * time.Minute),
			},
		}
		job.RecalculateInvoice()

		engine, f := newTestEngineForJob(t, job)

		assert.Equal(t, 120, engine.timers.remaining(timerWaiting))
		assert.ErrorIs(t, engine.confirmNoShow(), domain.ErrWaitNotElapsed)

		advance(engine, f, 120)
		assert.True(t, engine.alert.active)
		mustDo(t, engine.confirmNoShow)
	})
}

// Every stage transition must release the previous stage's timers; a
// leaked countdown fires side effects into the wrong stage.
func TestNoTimerLeaksAcrossTransitions(t *testing.T) {
	engine, f := newTestEngine(t, domain.StageInitial)

	mustDo(t, engine.startMoving)
	assert.Equal(t, 1, engine.timers.count())

	advance(engine, f, 60)
	mustDo(t, engine.confirmArrival)
	assert.Equal(t, 2, engine.timers.count())

	mustDo(t, engine.startWaiting)
	assert.Equal(t, 1, engine.timers.count())

	mustDo(t, engine.customerArrived)
	assert.Equal(t, 1, engine.timers.count())
	assert.NotEqual(t, -1, engine.timers.remaining(timerWorking))

	advance(engine, f, 7200)
	if err := engine.finishWork("", ""); err != nil {
		t.Fatalf("finishWork: %v", err)
	}
	assert.Equal(t, 0, engine.timers.count())
}

func mustDo(t *testing.T, fn func() error) {
	t.Helper()
	if err := fn(); err != nil {
		t.Fatalf("transition failed: %v", err)
	}
}
