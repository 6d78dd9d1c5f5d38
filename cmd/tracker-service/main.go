package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldtrack/tracker-be/internal/api/handler"
	"github.com/fieldtrack/tracker-be/internal/api/router"
	"github.com/fieldtrack/tracker-be/internal/config"
	"github.com/fieldtrack/tracker-be/internal/tracker"
	"github.com/fieldtrack/tracker-be/internal/tracker/lifecycle"
	"github.com/fieldtrack/tracker-be/internal/tracker/messaging"
	"github.com/fieldtrack/tracker-be/internal/tracker/ordersync"
	"github.com/fieldtrack/tracker-be/internal/tracker/storage"
	"github.com/fieldtrack/tracker-be/internal/tracker/wallet"
	"github.com/fieldtrack/tracker-be/shared/logger"
	"github.com/fieldtrack/tracker-be/shared/postgresql"
	"github.com/fieldtrack/tracker-be/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
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
	defaultConfigPath := os.Getenv("TRACKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/tracker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateTrackerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting tracker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	appLogger.Info("RabbitMQ connection established")

	// Wire stores, payout calculator and the engine registry
	db := dbClient.GetDB()
	orders := storage.NewOrderStore(db, appLogger.Logger)
	wallets := storage.NewWalletStore(db, appLogger.Logger)
	policies := storage.NewPolicyStore(db, appLogger.Logger)
	payouts := wallet.NewCalculator(wallets, policies, appLogger.Logger)

	relay := messaging.NewRelay(
		rabbitClient,
		cfg.Tracker.MessagingExchange,
		cfg.Tracker.MessagingRoutingKey,
		appLogger.Logger,
	)

	registry := tracker.NewRegistry(tracker.Config{
		Engine: lifecycle.Config{
			MovingGateSeconds:  cfg.Tracker.MovingGateSeconds,
			ArrivedGateSeconds: cfg.Tracker.ArrivedGateSeconds,
			AutoStartSeconds:   cfg.Tracker.AutoStartSeconds,
			AlertInterval:      int(cfg.Tracker.AlertInterval.Seconds()),
			MinWorkForNoShow:   cfg.Tracker.MinWorkForNoShow,
			ExtensionConflict:  cfg.Tracker.ExtensionConflictWindow,
			OpTimeout:          cfg.Tracker.OpTimeout,
		},
		OrderEventsExchange: cfg.Tracker.OrderEventsExchange,
		NotifyExchange:      cfg.Tracker.NotifyExchange,
		WriteTimeout:        cfg.Tracker.WriteTimeout,
	}, tracker.Deps{
		Logger:    appLogger.Logger,
		Orders:    orders,
		Wallets:   wallets,
		Policies:  policies,
		Payouts:   payouts,
		Publisher: rabbitClient,
		Messenger: relay,
	})
	defer registry.Close()

	consumer := ordersync.NewConsumer(
		rabbitClient,
		registry,
		cfg.Tracker.OrderEventsQueue,
		cfg.Tracker.ConsumerTag,
		appLogger.Logger,
	)

	// Initialize router
	r := initRouter(cfg.App.Environment, appLogger.Logger, registry, wallets, policies, dbClient, rabbitClient)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		appLogger.Info("Starting HTTP server",
			slog.String("address", addr),
			slog.Duration("read_timeout", cfg.Server.ReadTimeout),
			slog.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return consumer.Run(groupCtx)
	})

	group.Go(func() error {
		<-groupCtx.Done()

		appLogger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	appLogger.Info("Tracker service is running",
		slog.String("address", addr),
	)

	if err := group.Wait(); err != nil {
		appLogger.Error("Service stopped with error",
			slog.Any("error", err),
		)
		return err
	}

	appLogger.Info("Tracker service shutdown complete")
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

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client and declares the topology
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
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

// initRouter initializes the Gin router with all routes and middleware
func initRouter(environment string, logger *slog.Logger, registry *tracker.Registry, wallets *storage.WalletStore, policies *storage.PolicyStore, db *postgresql.Client, rabbit *rabbitmq.Client) *gin.Engine {
	// Set Gin mode based on environment
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	handlerDeps := &handler.Dependencies{
		Logger:   logger,
		Registry: registry,
		Wallets:  wallets,
		Policies: policies,
		DB:       db,
		Rabbit:   rabbit,
	}

	return router.SetupRouter(handlerDeps)
}
