// Package messaging queues templated outbound messages to customers.
// Delivery happens in the messenger service; everything here is fire
// and forget.
package messaging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Template keys the messenger service knows how to render.
const (
	TemplateSpecialistWaiting = "specialist_waiting"
	TemplateWorkStarted       = "work_started"
	TemplateOrderCancelled    = "order_cancelled"
)

// OutboundMessage is the queue payload for one templated message.
type OutboundMessage struct {
	MessageID   string            `json:"message_id"`
	Recipient   string            `json:"recipient"`
	TemplateKey string            `json:"template_key"`
	Language    string            `json:"language"`
	Variables   map[string]string `json:"variables,omitempty"`
	QueuedAt    time.Time         `json:"queued_at"`
}

// Publisher is the outbound message bus. The retrying variant is used
// here: a queued customer message should survive a broker hiccup.
type Publisher interface {
	PublishWithRetry(ctx context.Context, exchange, routingKey string, body []byte, contentType string) error
}

// Relay publishes outbound messages. Failures are logged and swallowed;
// customer messaging must never block a stage transition.
type Relay struct {
	logger     *slog.Logger
	pub        Publisher
	exchange   string
	routingKey string
	timeout    time.Duration
}

func NewRelay(pub Publisher, exchange, routingKey string, logger *slog.Logger) *Relay {
	return &Relay{
		logger:     logger,
		pub:        pub,
		exchange:   exchange,
		routingKey: routingKey,
		timeout:    5 * time.Second,
	}
}

func (r *Relay) SendTemplate(recipient, templateKey, languageTag string, variables map[string]string) {
	msg := OutboundMessage{
		MessageID:   uuid.New().String(),
		Recipient:   recipient,
		TemplateKey: templateKey,
		Language:    languageTag,
		Variables:   variables,
		QueuedAt:    time.Now(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to marshal outbound message", slog.String("error", err.Error()))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.pub.PublishWithRetry(ctx, r.exchange, r.routingKey, body, "application/json"); err != nil {
			r.logger.Warn("failed to queue outbound message",
				slog.String("template_key", templateKey),
				slog.String("error", err.Error()),
			)
		}
	}()
}
