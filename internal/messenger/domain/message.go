package domain

import "time"

// OutboundMessage is the queue payload for one templated customer message
type OutboundMessage struct {
	MessageID   string            `json:"message_id"`
	Recipient   string            `json:"recipient"`
	TemplateKey string            `json:"template_key"`
	Language    string            `json:"language"`
	Variables   map[string]string `json:"variables,omitempty"`
	QueuedAt    time.Time         `json:"queued_at"`
}

// MessageTask pairs a parsed message with its RabbitMQ delivery tag
type MessageTask struct {
	Message     OutboundMessage
	DeliveryTag uint64
}
