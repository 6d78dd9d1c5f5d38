// Package messenger delivers queued customer messages through an
// external WhatsApp-style messaging API. It consumes the outbound queue,
// renders templates per language, and posts to the provider with retries.
package messenger

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fieldtrack/tracker-be/internal/messenger/domain"
	"github.com/fieldtrack/tracker-be/shared/rabbitmq"
	"github.com/google/uuid"
)

// Config holds messenger configuration
type Config struct {
	Logger          *slog.Logger
	RabbitClient    *rabbitmq.Client
	Concurrency     int
	MaxMessages     int
	SendTimeout     time.Duration
	Endpoint        string
	APIKey          string
	MaxRetries      int
	RetryDelay      time.Duration
	DefaultLanguage string
	Queue           string
	ConsumerTag     string
}

// Messenger consumes outbound messages and delivers them concurrently
type Messenger struct {
	logger          *slog.Logger
	rabbitClient    *rabbitmq.Client
	httpClient      *http.Client
	concurrency     int
	sendTimeout     time.Duration
	endpoint        string
	apiKey          string
	maxRetries      int
	retryDelay      time.Duration
	defaultLanguage string
	queue           string
	consumerTag     string
	messengerID     string

	tasksChan chan *domain.MessageTask
	wg        sync.WaitGroup
	stopChan  chan struct{}
}

// New creates a new messenger instance
func New(cfg *Config) *Messenger {
	consumerTag := cfg.ConsumerTag
	if consumerTag == "" {
		consumerTag = "messenger-" + uuid.New().String()[:8]
	}

	defaultLanguage := cfg.DefaultLanguage
	if defaultLanguage == "" {
		defaultLanguage = "en"
	}

	return &Messenger{
		logger:          cfg.Logger,
		rabbitClient:    cfg.RabbitClient,
		httpClient:      &http.Client{Timeout: cfg.SendTimeout},
		concurrency:     cfg.Concurrency,
		sendTimeout:     cfg.SendTimeout,
		endpoint:        cfg.Endpoint,
		apiKey:          cfg.APIKey,
		maxRetries:      cfg.MaxRetries,
		retryDelay:      cfg.RetryDelay,
		defaultLanguage: defaultLanguage,
		queue:           cfg.Queue,
		consumerTag:     consumerTag,
		messengerID:     consumerTag,
		tasksChan:       make(chan *domain.MessageTask, cfg.MaxMessages),
		stopChan:        make(chan struct{}),
	}
}

// Start begins consuming and delivering messages until the context ends
func (m *Messenger) Start(ctx context.Context) error {
	m.logger.Info("Starting messenger",
		slog.Int("concurrency", m.concurrency),
		slog.String("queue", m.queue),
		slog.String("endpoint", m.endpoint),
	)

	deliveries, err := m.rabbitClient.Consume(m.queue, m.consumerTag)
	if err != nil {
		return err
	}

	m.spawnSenderPool(ctx)
	m.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the messenger
func (m *Messenger) Stop() {
	m.logger.Info("Stopping messenger...")
	close(m.stopChan)
	m.wg.Wait()
	m.logger.Info("Messenger stopped")
}
