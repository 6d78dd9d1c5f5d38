// Package notify publishes device-directed signals (local notifications,
// vibration, alert audio) for the specialist's app to execute.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// Signal kinds understood by the mobile client.
const (
	KindNotification = "notification"
	KindVibrate      = "vibrate"
	KindAudioStart   = "audio_start"
	KindAudioStop    = "audio_stop"
)

// Signal is one device command published to the notifications exchange.
type Signal struct {
	Kind         string `json:"kind"`
	SpecialistID string `json:"specialist_id"`
	Title        string `json:"title,omitempty"`
	Body         string `json:"body,omitempty"`
	Channel      string `json:"channel,omitempty"`
	Pattern      []int  `json:"pattern,omitempty"`
	AudioHandle  string `json:"audio_handle,omitempty"`
}

// Publisher is the outbound message bus.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte, contentType string) error
}

// Service sends signals for one specialist's device. Every method is
// best effort: failures are logged, never returned.
type Service struct {
	logger       *slog.Logger
	pub          Publisher
	exchange     string
	specialistID string
	timeout      time.Duration
}

func NewService(pub Publisher, exchange, specialistID string, logger *slog.Logger) *Service {
	return &Service{
		logger:       logger,
		pub:          pub,
		exchange:     exchange,
		specialistID: specialistID,
		timeout:      5 * time.Second,
	}
}

func (s *Service) Push(title, body, channel string) {
	s.send(Signal{Kind: KindNotification, Title: title, Body: body, Channel: channel})
}

func (s *Service) Vibrate(pattern []int) {
	s.send(Signal{Kind: KindVibrate, Pattern: pattern})
}

func (s *Service) StartAudioLoop(handle string) {
	s.send(Signal{Kind: KindAudioStart, AudioHandle: handle})
}

func (s *Service) StopAudioLoop(handle string) {
	s.send(Signal{Kind: KindAudioStop, AudioHandle: handle})
}

// send publishes off the caller's goroutine. The engine loop emits
// signals on its one-second tick; a stalled broker must not stall the
// countdowns behind it.
func (s *Service) send(signal Signal) {
	signal.SpecialistID = s.specialistID

	body, err := json.Marshal(signal)
	if err != nil {
		s.logger.Error("failed to marshal device signal", slog.String("error", err.Error()))
		return
	}

	routingKey := "device." + s.specialistID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		if err := s.pub.Publish(ctx, s.exchange, routingKey, body, "application/json"); err != nil {
			s.logger.Warn("failed to publish device signal",
				slog.String("kind", signal.Kind),
				slog.String("error", err.Error()),
			)
		}
	}()
}
