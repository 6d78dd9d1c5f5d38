package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldtrack/tracker-be/internal/messenger/domain"
)

// spawnSenderPool spawns N sender goroutines based on concurrency
// configuration
func (m *Messenger) spawnSenderPool(ctx context.Context) {
	m.logger.Info("Spawning sender pool",
		slog.Int("concurrency", m.concurrency),
		slog.String("messenger_id", m.messengerID),
	)

	for i := 0; i < m.concurrency; i++ {
		m.wg.Add(1)
		go m.senderLoop(ctx, i)
	}
}

// senderLoop is the main delivery loop for each sender goroutine
func (m *Messenger) senderLoop(ctx context.Context, senderNum int) {
	defer m.wg.Done()

	senderName := fmt.Sprintf("%s-%d", m.messengerID, senderNum)
	m.logger.Info("Sender goroutine started",
		slog.String("sender_name", senderName),
	)

	for {
		select {
		case <-m.stopChan:
			m.logger.Info("Sender goroutine stopping - stopChan closed",
				slog.String("sender_name", senderName),
			)
			return

		case <-ctx.Done():
			m.logger.Info("Sender goroutine stopping - context canceled",
				slog.String("sender_name", senderName),
			)
			return

		case task, ok := <-m.tasksChan:
			if !ok {
				m.logger.Info("Sender goroutine stopping - tasksChan closed",
					slog.String("sender_name", senderName),
				)
				return
			}

			err := m.deliverMessage(ctx, &task.Message)

			channel := m.rabbitClient.GetChannel()
			if channel == nil {
				m.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("sender_name", senderName),
					slog.String("message_id", task.Message.MessageID),
				)
				continue
			}

			if err != nil {
				m.logger.Error("Message delivery failed",
					slog.String("sender_name", senderName),
					slog.String("message_id", task.Message.MessageID),
					slog.String("error", err.Error()),
				)

				requeue := m.shouldRequeueMessage(err)

				if nackErr := channel.Nack(task.DeliveryTag, false, requeue); nackErr != nil {
					m.logger.Error("Failed to NACK message",
						slog.String("sender_name", senderName),
						slog.String("message_id", task.Message.MessageID),
						slog.String("error", nackErr.Error()),
					)
				} else {
					m.logger.Info("Message NACKed",
						slog.String("sender_name", senderName),
						slog.String("message_id", task.Message.MessageID),
						slog.Bool("requeue", requeue),
					)
				}
			} else {
				if ackErr := channel.Ack(task.DeliveryTag, false); ackErr != nil {
					m.logger.Error("Failed to ACK message",
						slog.String("sender_name", senderName),
						slog.String("message_id", task.Message.MessageID),
						slog.String("error", ackErr.Error()),
					)
				} else {
					m.logger.Info("Message delivered",
						slog.String("sender_name", senderName),
						slog.String("message_id", task.Message.MessageID),
						slog.String("template_key", task.Message.TemplateKey),
					)
				}
			}
		}
	}
}

// shouldRequeueMessage determines if a message should be requeued based
// on the error type
func (m *Messenger) shouldRequeueMessage(err error) bool {
	// Don't requeue messages the provider can never deliver
	if errors.Is(err, domain.ErrUnknownTemplate) {
		return false
	}

	if errors.Is(err, domain.ErrInvalidMessage) {
		return false
	}

	if errors.Is(err, domain.ErrMaxRetriesExceeded) {
		return false
	}

	// Requeue for transient/retryable errors
	var retryableErr *domain.RetryableError
	if errors.As(err, &retryableErr) {
		return true
	}

	return false
}
