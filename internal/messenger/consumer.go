package messenger

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fieldtrack/tracker-be/internal/messenger/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// startMessageDispatcher listens to RabbitMQ deliveries and dispatches
// parsed messages to the sender pool. Runs on the calling goroutine
// until the context is cancelled.
func (m *Messenger) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	m.logger.Info("Message dispatcher started",
		slog.String("messenger_id", m.messengerID),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				m.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			var msg domain.OutboundMessage
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				m.logger.Error("Failed to parse message JSON",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				// NACK without requeue - malformed messages should go to DLQ
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					m.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if msg.MessageID == "" || msg.Recipient == "" || msg.TemplateKey == "" {
				m.logger.Error("Outbound message missing required fields",
					slog.String("message_id", msg.MessageID),
					slog.String("template_key", msg.TemplateKey),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					m.logger.Error("Failed to NACK invalid message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			task := &domain.MessageTask{
				Message:     msg,
				DeliveryTag: delivery.DeliveryTag,
			}

			select {
			case m.tasksChan <- task:
				m.logger.Debug("Message dispatched to sender pool",
					slog.String("message_id", msg.MessageID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				m.logger.Info("Message dispatcher stopped while dispatching")
				// NACK with requeue so the message is redelivered
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					m.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}
		}
	}
}
