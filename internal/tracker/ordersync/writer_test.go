package ordersync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fieldtrack/tracker-be/internal/tracker/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storedUpdate struct {
	orderID string
	fields  map[string]any
}

type fakeStore struct {
	mu      sync.Mutex
	updates []storedUpdate
	err     error
}

func (s *fakeStore) UpdateTracking(ctx context.Context, orderID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, storedUpdate{orderID: orderID, fields: fields})
	return nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.updates)
}

type publishedEvent struct {
	exchange    string
	routingKey  string
	body        []byte
	contentType string
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedEvent
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, body []byte, contentType string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, publishedEvent{
		exchange:    exchange,
		routingKey:  routingKey,
		body:        body,
		contentType: contentType,
	})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func newTestWriter(store *fakeStore, pub *fakePublisher, onError func(error)) *Writer {
	return NewWriter(WriterConfig{
		OrderID:   "order-1",
		Exchange:  "orders.events",
		Timeout:   time.Second,
		OnError:   onError,
		Logger:    slog.New(slog.DiscardHandler),
		Store:     store,
		Publisher: pub,
	})
}

func TestWriterDrainsInOrder(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	w := newTestWriter(store, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Enqueue(domain.StageMoving, map[string]any{"tracking_stage": "moving"})
	w.Enqueue(domain.StageArrived, map[string]any{"tracking_stage": "arrived"})
	w.Enqueue(domain.StageWorking, map[string]any{"tracking_stage": "working"})

	go w.Run(ctx)

	require.Eventually(t, func() bool { return store.count() == 3 }, 2*time.Second, 10*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "moving", store.updates[0].fields["tracking_stage"])
	assert.Equal(t, "arrived", store.updates[1].fields["tracking_stage"])
	assert.Equal(t, "working", store.updates[2].fields["tracking_stage"])
	for _, u := range store.updates {
		assert.Equal(t, "order-1", u.orderID)
	}
}

func TestWriterPublishesRowChange(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	w := newTestWriter(store, pub, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Enqueue(domain.StageArrived, map[string]any{"tracking_stage": "arrived"})
	go w.Run(ctx)

	require.Eventually(t, func() bool { return pub.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	ev := pub.published[0]
	assert.Equal(t, "orders.events", ev.exchange)
	assert.Equal(t, "order.order-1", ev.routingKey)
	assert.Equal(t, "application/json", ev.contentType)
	assert.Contains(t, string(ev.body), `"order_id":"order-1"`)
	assert.Contains(t, string(ev.body), `"tracking_stage":"arrived"`)
}

func TestWriterReportsStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("connection reset")}
	pub := &fakePublisher{}
	errCh := make(chan error, 1)
	w := newTestWriter(store, pub, func(err error) { errCh <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Enqueue(domain.StageMoving, map[string]any{"tracking_stage": "moving"})
	go w.Run(ctx)

	select {
	case err := <-errCh:
		assert.Contains(t, err.Error(), "moving")
		assert.Contains(t, err.Error(), "connection reset")
	case <-time.After(2 * time.Second):
		t.Fatal("onError never fired")
	}

	// No event fans out for a write that did not land.
	assert.Equal(t, 0, pub.count())
}

func TestWriterToleratesPublishFailure(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: errors.New("broker unavailable")}
	errCh := make(chan error, 1)
	w := newTestWriter(store, pub, func(err error) { errCh <- err })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w.Enqueue(domain.StageMoving, map[string]any{"tracking_stage": "moving"})
	go w.Run(ctx)

	require.Eventually(t, func() bool { return store.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// The row persisted; fan-out is best effort and raises no error.
	select {
	case err := <-errCh:
		t.Fatalf("unexpected onError: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

// Closing the writer must finish what is already queued before Run
// returns; a terminal stage write may still be pending at teardown.
func TestWriterCloseDrainsPending(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	w := newTestWriter(store, pub, nil)

	w.Enqueue(domain.StageInvoiceDetails, map[string]any{"tracking_stage": "invoice_details"})
	w.Enqueue(domain.StagePaymentReceived, map[string]any{"tracking_stage": "payment_received"})

	go w.Run(context.Background())
	w.Close()

	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("writer did not drain after Close")
	}

	assert.Equal(t, 2, store.count())
	assert.Equal(t, 2, pub.count())
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "payment_received", store.updates[1].fields["tracking_stage"])
}

func TestWriterEnqueueNeverBlocks(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	w := newTestWriter(store, pub, nil)

	// No Run loop consuming; a burst of enqueues must still return.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			w.Enqueue(domain.StageWorking, map[string]any{"elapsed_seconds": i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked without a consumer")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.pending, 100)
}
