package handler

import (
	"log/slog"

	"github.com/fieldtrack/tracker-be/internal/tracker"
	"github.com/fieldtrack/tracker-be/internal/tracker/storage"
	"github.com/fieldtrack/tracker-be/shared/postgresql"
	"github.com/fieldtrack/tracker-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger   *slog.Logger
	Registry *tracker.Registry
	Wallets  *storage.WalletStore
	Policies *storage.PolicyStore
	DB       *postgresql.Client
	Rabbit   *rabbitmq.Client
}

// TrackingHandler handles job tracking HTTP requests
type TrackingHandler struct {
	logger   *slog.Logger
	registry *tracker.Registry
}

// NewTrackingHandler creates a new TrackingHandler instance
func NewTrackingHandler(deps *Dependencies) *TrackingHandler {
	return &TrackingHandler{
		logger:   deps.Logger,
		registry: deps.Registry,
	}
}

// WalletHandler handles wallet HTTP requests
type WalletHandler struct {
	logger  *slog.Logger
	wallets *storage.WalletStore
}

// NewWalletHandler creates a new WalletHandler instance
func NewWalletHandler(deps *Dependencies) *WalletHandler {
	return &WalletHandler{
		logger:  deps.Logger,
		wallets: deps.Wallets,
	}
}

// PolicyHandler handles service policy HTTP requests
type PolicyHandler struct {
	logger   *slog.Logger
	policies *storage.PolicyStore
}

// NewPolicyHandler creates a new PolicyHandler instance
func NewPolicyHandler(deps *Dependencies) *PolicyHandler {
	return &PolicyHandler{
		logger:   deps.Logger,
		policies: deps.Policies,
	}
}
