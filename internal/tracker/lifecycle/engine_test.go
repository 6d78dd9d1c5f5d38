package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRemote(t *testing.T) {
	t.Run("sync failure keeps the optimistic stage", func(t *testing.T) {
		engine, _ := newTestEngine(t, domain.StageInitial)
		require.NoError(t, engine.startMoving())

		engine.handleRemote(RemoteEvent{SyncErr: errors.New("order row update failed")})

		assert.Equal(t, domain.StageMoving, engine.job.Stage)
		assert.Equal(t, "order row update failed", engine.lastSyncErr)
		assert.Equal(t, "order row update failed", engine.snapshot().LastSyncError)
	})

	t.Run("echo of our own write is ignored", func(t *testing.T) {
		engine, f := newTestEngine(t, domain.StageInitial)
		require.NoError(t, engine.startMoving())
		writes := len(f.sync.writes)

		engine.handleRemote(RemoteEvent{Stage: domain.StageMoving, Status: domain.StatusInProgress})

		assert.Equal(t, domain.StageMoving, engine.job.Stage)
		assert.Len(t, f.sync.writes, writes)
	})

	t.Run("remote cancellation overrides local state without a write back", func(t *testing.T) {
		engine, f := newTestEngine(t, domain.StageArrived)
		require.NoError(t, engine.startWaiting())
		writes := len(f.sync.writes)

		engine.handleRemote(RemoteEvent{Stage: domain.StageCancelled, Status: domain.StatusCancelled})

		assert.Equal(t, domain.StageCancelled, engine.job.Stage)
		require.NotNil(t, engine.job.Cancellation)
		assert.Equal(t, domain.CancelRemote, engine.job.Cancellation.Reason)
		assert.Equal(t, domain.RoleAdmin, engine.job.Cancellation.Role)

		// The remote row already holds the cancellation.
		assert.Len(t, f.sync.writes, writes)
		assert.Equal(t, 0, engine.timers.count())
		assert.Contains(t, f.notify.pushes, "Order cancelled")
	})

	t.Run("cancelled status alone is enough to override", func(t *testing.T) {
		engine, _ := newTestEngine(t, domain.StageInitial)
		require.NoError(t, engine.startMoving())

		engine.handleRemote(RemoteEvent{Stage: domain.StageMoving, Status: domain.StatusCancelled})

		assert.Equal(t, domain.StageCancelled, engine.job.Stage)
	})

	t.Run("remote cancellation after a terminal stage is ignored", func(t *testing.T) {
		engine, _ := newTestEngine(t, domain.StagePaymentReceived)

		engine.handleRemote(RemoteEvent{Stage: domain.StageCancelled, Status: domain.StatusCancelled})

		assert.Equal(t, domain.StagePaymentReceived, engine.job.Stage)
		assert.Nil(t, engine.job.Cancellation)
	})
}

func TestSnapshot(t *testing.T) {
	t.Run("reflects timers and stage", func(t *testing.T) {
		engine, f := newTestEngine(t, domain.StageInitial)
		require.NoError(t, engine.startMoving())
		advance(engine, f, 15)

		snap := engine.snapshot()

		assert.Equal(t, "order-1", snap.JobID)
		assert.Equal(t, "ORD-1001", snap.OrderNumber)
		assert.Equal(t, domain.StageMoving, snap.Stage)
		assert.Equal(t, domain.StatusInProgress, snap.Status)
		assert.Equal(t, 45, snap.MovingGateRemaining)
		assert.Equal(t, -1, snap.WorkingRemaining)
		assert.False(t, snap.AlertActive)
		assert.Empty(t, snap.LastSyncError)
	})

	t.Run("exposes the wait window end", func(t *testing.T) {
		engine, _ := newTestEngine(t, domain.StageArrived)
		require.NoError(t, engine.startWaiting())

		snap := engine.snapshot()

		require.NotNil(t, snap.WaitEndsAt)
		assert.Equal(t, engine.job.WaitWindow.EndsAt, *snap.WaitEndsAt)
		assert.Equal(t, 300, snap.WaitingRemaining)
	})

	t.Run("flags a pending rating", func(t *testing.T) {
		engine, _ := newTestEngine(t, domain.StageCustomerRating)
		require.NoError(t, engine.rate(2, "late"))

		assert.True(t, engine.snapshot().PendingRating)
	})
}

func TestEngineRun(t *testing.T) {
	t.Run("commands run on the loop and context cancel stops it", func(t *testing.T) {
		engine, f := newTestEngine(t, domain.StageInitial)
		ctx, cancel := context.WithCancel(context.Background())
		go engine.Run(ctx)

		require.NoError(t, engine.StartMoving(ctx))
		snap, err := engine.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StageMoving, snap.Stage)
		require.Len(t, f.sync.writes, 1)

		cancel()
		select {
		case <-engine.done:
		case <-time.After(2 * time.Second):
			t.Fatal("engine did not stop after context cancel")
		}

		err = engine.StartMoving(context.Background())
		assert.ErrorIs(t, err, domain.ErrEngineClosed)
	})

	t.Run("terminal stage tears down and reports", func(t *testing.T) {
		engine, _ := newTestEngine(t, domain.StageInitial)
		terminal := make(chan string, 1)
		engine.deps.OnTerminal = func(jobID string) { terminal <- jobID }

		go engine.Run(context.Background())

		require.NoError(t, engine.Cancel(context.Background(), domain.CancelCustomerRequested, ""))

		select {
		case jobID := <-terminal:
			assert.Equal(t, "order-1", jobID)
		case <-time.After(2 * time.Second):
			t.Fatal("terminal callback never fired")
		}
		<-engine.done

		assert.Equal(t, 0, engine.timers.count())
	})

	t.Run("remote cancellation stops a running engine", func(t *testing.T) {
		engine, _ := newTestEngine(t, domain.StageInitial)
		go engine.Run(context.Background())

		require.NoError(t, engine.StartMoving(context.Background()))
		engine.PostRemote(RemoteEvent{Stage: domain.StageCancelled, Status: domain.StatusCancelled})

		select {
		case <-engine.done:
		case <-time.After(2 * time.Second):
			t.Fatal("engine did not stop after remote cancellation")
		}
		assert.Equal(t, domain.StageCancelled, engine.job.Stage)
	})
}

// End-to-end happy path: a two-hour booking worked to the end, extended
// by an hour, finished, paid and rated.
func TestFullLifecycle(t *testing.T) {
	engine, f := newTestEngine(t, domain.StageInitial)

	require.NoError(t, engine.startMoving())
	advance(engine, f, 60)
	require.NoError(t, engine.confirmArrival())
	advance(engine, f, 60)
	require.NoError(t, engine.startWork())

	advance(engine, f, 7200)
	assert.True(t, engine.alert.active)

	require.NoError(t, engine.requestExtension(1))
	assert.Equal(t, 10800, engine.job.AllottedSeconds)
	assert.Equal(t, 150.0, engine.job.InvoiceAmount)

	advance(engine, f, 3600)
	require.NoError(t, engine.finishWork("", ""))
	assert.Equal(t, domain.StageInvoiceDetails, engine.job.Stage)
	assert.Equal(t, 10800, engine.job.ElapsedSeconds)

	require.NoError(t, engine.confirmPayment(true))
	require.NoError(t, engine.rate(5, ""))

	assert.Equal(t, domain.StagePaymentReceived, engine.job.Stage)
	last := f.sync.last()
	assert.Equal(t, domain.StatusCompleted, last.fields["status"])
	assert.Equal(t, 5, last.fields["rating"])
	assert.Equal(t, 150.0, engine.job.InvoiceAmount)
	assert.Equal(t, 0, f.comp.afterWaitCalls)
	assert.Equal(t, 0, f.comp.earlyCalls)
}
