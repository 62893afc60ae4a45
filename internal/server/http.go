package server

import (
	"context"
	"time"

	"atscore/internal/ai"
	"atscore/internal/config"
	appErrors "atscore/internal/errors"
	"atscore/internal/observability"
	"atscore/internal/pipeline"
	"atscore/internal/store"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AIStatus is the part of an AI provider reported by /health and /stats.
type AIStatus interface {
	GetModelInfo(ctx context.Context) *ai.ModelInfo
	GetCircuitBreakerStats() map[string]any
}

// Dependencies are the collaborators the handlers dispatch to.
type Dependencies struct {
	Processor     *pipeline.Processor
	Store         store.ReportStore
	AI            AIStatus // nil when running without an AI provider
	Observability *observability.ObservabilityManager
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// TLS Configuration
	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys    *APIKeySet
	AdminPaths []string

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request limits
	MaxRequestSize int64
	MaxFileSize    int64
	MaxBulkFiles   int

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	processor *pipeline.Processor
	store     store.ReportStore
	ai        AIStatus
	om        *observability.ObservabilityManager

	tablesWatcher *TablesWatcher
	vaultWatcher  *VaultWatcher

	// Logger
	Logger *appErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host           string
	Port           string
	Version        string
	TLSConfig      config.TLSConfig
	APIKeys        []string
	AdminPaths     []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxRequestSize int64
	MaxFileSize    int64
	MaxBulkFiles   int
	RateLimit      *config.RateLimitConfig
}

// ConfigFromApp builds a ServerConfig from the application configuration.
func ConfigFromApp(cfg *config.Config, version string) ServerConfig {
	rateLimit := cfg.Server.RateLimit
	return ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		AdminPaths:     cfg.Server.AdminPaths,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: cfg.App.MaxFileSize * int64(max(cfg.App.MaxBulkFiles, 1)),
		MaxFileSize:    cfg.App.MaxFileSize,
		MaxBulkFiles:   cfg.App.MaxBulkFiles,
		RateLimit:      &rateLimit,
	}
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, deps Dependencies, logger *appErrors.Logger) *Server {
	if logger == nil {
		logger = appErrors.NewNopLogger()
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:           cfg.Host,
		Port:           cfg.Port,
		Version:        cfg.Version,
		AppConfig:      appCfg,
		TLSConfig:      cfg.TLSConfig,
		APIKeys:        NewAPIKeySet(cfg.APIKeys),
		AdminPaths:     cfg.AdminPaths,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxRequestSize: cfg.MaxRequestSize,
		MaxFileSize:    cfg.MaxFileSize,
		MaxBulkFiles:   cfg.MaxBulkFiles,
		RateLimit:      cfg.RateLimit,
		RateLimiter:    rateLimiter,
		processor:      deps.Processor,
		store:          deps.Store,
		ai:             deps.AI,
		om:             deps.Observability,
		Logger:         logger,
	}
}
