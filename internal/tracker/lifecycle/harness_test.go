package lifecycle

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
)

// The engine handlers are exercised directly on the test goroutine, so
// no loop goroutine runs and every tick is driven by hand.

type syncedWrite struct {
	stage  domain.Stage
	fields map[string]any
}

type fakeSyncer struct {
	writes []syncedWrite
}

func (f *fakeSyncer) Enqueue(stage domain.Stage, fields map[string]any) {
	f.writes = append(f.writes, syncedWrite{stage: stage, fields: fields})
}

func (f *fakeSyncer) last() syncedWrite {
	return f.writes[len(f.writes)-1]
}

type fakePolicies struct {
	policy domain.WaitPolicy
	err    error
}

func (f *fakePolicies) WaitPolicy(ctx context.Context, subService string) (domain.WaitPolicy, error) {
	if f.err != nil {
		return domain.WaitPolicy{}, f.err
	}
	return f.policy, nil
}

type fakeCompensator struct {
	afterWaitCalls int
	earlyCalls     int
	afterWaitErr   error
	earlyErr       error
}

func (f *fakeCompensator) NoShowAfterWait(ctx context.Context, job *domain.Job) (*domain.WalletTransaction, error) {
	f.afterWaitCalls++
	if f.afterWaitErr != nil {
		return nil, f.afterWaitErr
	}
	return &domain.WalletTransaction{Amount: 50}, nil
}

func (f *fakeCompensator) NoShowEarlyFinish(ctx context.Context, job *domain.Job) (*domain.WalletTransaction, error) {
	f.earlyCalls++
	if f.earlyErr != nil {
		return nil, f.earlyErr
	}
	return &domain.WalletTransaction{Amount: 25}, nil
}

type fakeNotifier struct {
	pushes      []string
	vibrates    int
	audioStarts []string
	audioStops  []string
}

func (f *fakeNotifier) Push(title, body, channel string) { f.pushes = append(f.pushes, title) }
func (f *fakeNotifier) Vibrate(pattern []int)            { f.vibrates++ }
func (f *fakeNotifier) StartAudioLoop(handle string)     { f.audioStarts = append(f.audioStarts, handle) }
func (f *fakeNotifier) StopAudioLoop(handle string)      { f.audioStops = append(f.audioStops, handle) }

type sentTemplate struct {
	recipient   string
	templateKey string
	language    string
	variables   map[string]string
}

type fakeMessenger struct {
	sent []sentTemplate
}

func (f *fakeMessenger) SendTemplate(recipient, templateKey, languageTag string, variables map[string]string) {
	f.sent = append(f.sent, sentTemplate{
		recipient:   recipient,
		templateKey: templateKey,
		language:    languageTag,
		variables:   variables,
	})
}

type fakeBookings struct {
	next *time.Time
	err  error
}

func (f *fakeBookings) NextBookingStart(ctx context.Context, specialistID, excludeOrderID string, after time.Time) (*time.Time, error) {
	return f.next, f.err
}

type fixtures struct {
	sync     *fakeSyncer
	policies *fakePolicies
	comp     *fakeCompensator
	notify   *fakeNotifier
	msg      *fakeMessenger
	bookings *fakeBookings
	clock    time.Time
}

// testClockStart is where every fixture clock begins.
var testClockStart = time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, stage domain.Stage) (*Engine, *fixtures) {
	t.Helper()

	job := &domain.Job{
		ID:               "order-1",
		OrderNumber:      "ORD-1001",
		SpecialistID:     "spec-1",
		CustomerName:     "Dana",
		CustomerPhone:    "+15550001111",
		CustomerLanguage: "en",
		SubService:       "deep_clean",
		Stage:            stage,
		HoursBooked:      2,
		HourlyRate:       50,
		AllottedSeconds:  7200,
		BroadcastEnabled: true,
	}
	job.RecalculateInvoice()

	return newTestEngineForJob(t, job)
}

// newTestEngineForJob builds an engine around a prepared job, exactly as
// the registry would hydrate it.
func newTestEngineForJob(t *testing.T, job *domain.Job) (*Engine, *fixtures) {
	t.Helper()

	f := &fixtures{
		sync:     &fakeSyncer{},
		policies: &fakePolicies{policy: domain.DefaultWaitPolicy("deep_clean")},
		comp:     &fakeCompensator{},
		notify:   &fakeNotifier{},
		msg:      &fakeMessenger{},
		bookings: &fakeBookings{},
		clock:    testClockStart,
	}

	engine := New(job, Config{
		MovingGateSeconds:  60,
		ArrivedGateSeconds: 60,
		AutoStartSeconds:   300,
		AlertInterval:      10,
		MinWorkForNoShow:   15 * time.Minute,
		ExtensionConflict:  3 * time.Hour,
		OpTimeout:          time.Second,
	}, Deps{
		Logger:              slog.New(slog.DiscardHandler),
		Sync:                f.sync,
		Policies:            f.policies,
		Compensator:         f.comp,
		Notifier:            f.notify,
		Messenger:           f.msg,
		Bookings:            f.bookings,
		SpecialistCompanyID: "company-7",
		Now:                 func() time.Time { return f.clock },
	})
	return engine, f
}

// advance drives n one-second ticks through the engine, moving the fake
// clock in step.
func advance(engine *Engine, f *fixtures, n int) {
	for i := 0; i < n; i++ {
		f.clock = f.clock.Add(time.Second)
		engine.tick()
	}
}
