package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldtrack/tracker-be/internal/config"
	"github.com/fieldtrack/tracker-be/internal/messenger"
	"github.com/fieldtrack/tracker-be/shared/logger"
	"github.com/fieldtrack/tracker-be/shared/rabbitmq"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("MESSENGER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/messenger-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateMessengerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting messenger service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	// Create messenger instance
	messengerInstance := messenger.New(&messenger.Config{
		Logger:          appLogger.Logger,
		RabbitClient:    rabbitClient,
		Concurrency:     cfg.Messenger.Concurrency,
		MaxMessages:     cfg.Messenger.MaxMessages,
		SendTimeout:     cfg.Messenger.SendTimeout,
		Endpoint:        cfg.Messenger.Endpoint,
		APIKey:          cfg.Messenger.APIKey,
		MaxRetries:      cfg.Messenger.MaxRetries,
		RetryDelay:      cfg.Messenger.RetryDelay,
		DefaultLanguage: cfg.Messenger.DefaultLanguage,
		Queue:           cfg.Messenger.Queue,
		ConsumerTag:     cfg.Messenger.ConsumerTag,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start messenger in a goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := messengerInstance.Start(ctx); err != nil {
			errChan <- err
		}
	}()

	appLogger.Info("Messenger service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Messenger error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop the messenger
	cancel()

	// Give the messenger time to shutdown gracefully
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Messenger.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		messengerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Messenger stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Messenger shutdown timeout exceeded, forcing exit")
	}

	if rabbitClient != nil {
		rabbitClient.Close()
	}

	appLogger.Info("Messenger service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initRabbitMQ initializes the RabbitMQ client and declares the topology
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:              cfg.Host,
		Port:              cfg.Port,
		User:              cfg.User,
		Password:          cfg.Password,
		VHost:             cfg.VHost,
		RetryAttempts:     cfg.Connection.RetryAttempts,
		RetryInterval:     cfg.Connection.RetryInterval,
		Heartbeat:         cfg.Connection.Heartbeat,
		ConnectionTimeout: cfg.Connection.ConnectionTimeout,
		PrefetchCount:     cfg.Consumer.PrefetchCount,
	}

	for _, ex := range cfg.Exchanges {
		rabbitConfig.Exchanges = append(rabbitConfig.Exchanges, rabbitmq.Exchange{
			Name:       ex.Name,
			Type:       ex.Type,
			Durable:    ex.Durable,
			AutoDelete: ex.AutoDelete,
		})
	}
	for _, q := range cfg.Queues {
		rabbitConfig.Queues = append(rabbitConfig.Queues, rabbitmq.Queue{
			Name:       q.Name,
			Durable:    q.Durable,
			AutoDelete: q.AutoDelete,
			Exclusive:  q.Exclusive,
		})
	}
	for _, b := range cfg.Bindings {
		rabbitConfig.Bindings = append(rabbitConfig.Bindings, rabbitmq.Binding{
			Queue:      b.Queue,
			Exchange:   b.Exchange,
			RoutingKey: b.RoutingKey,
		})
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
