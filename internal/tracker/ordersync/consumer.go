package ordersync

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventSink receives parsed row-change events; the registry routes them
// to the engine that owns the order, if any.
type EventSink interface {
	ApplyRemote(orderID string, event OrderEvent)
}

// Source abstracts the queue subscription.
type Source interface {
	Consume(queue, consumerTag string) (<-chan amqp.Delivery, error)
}

// Consumer subscribes to order-change events and feeds them to the sink.
type Consumer struct {
	logger *slog.Logger
	source Source
	sink   EventSink
	queue  string
	tag    string
}

func NewConsumer(source Source, sink EventSink, queue, tag string, logger *slog.Logger) *Consumer {
	return &Consumer{
		logger: logger,
		source: source,
		sink:   sink,
		queue:  queue,
		tag:    tag,
	}
}

// Run consumes deliveries until the context is cancelled or the channel
// closes. Malformed payloads are dropped without requeue.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.source.Consume(c.queue, c.tag)
	if err != nil {
		return err
	}

	c.logger.Info("order event consumer started",
		slog.String("queue", c.queue),
		slog.String("consumer_tag", c.tag),
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("order event consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				c.logger.Warn("order event delivery channel closed")
				return nil
			}

			var event OrderEvent
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				c.logger.Error("failed to parse order event",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					c.logger.Error("failed to NACK malformed order event",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if event.OrderID == "" {
				c.logger.Warn("order event without order_id, dropping")
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					c.logger.Error("failed to NACK order event",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			c.sink.ApplyRemote(event.OrderID, event)

			if ackErr := delivery.Ack(false); ackErr != nil {
				c.logger.Error("failed to ACK order event",
					slog.String("order_id", event.OrderID),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}
