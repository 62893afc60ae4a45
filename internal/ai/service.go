package ai

import (
	"fmt"
	"time"

	"atscore/internal/config"
	"atscore/internal/errors"
)

type providerOptions struct {
	usage             UsageRecorder
	modelCheckTimeout time.Duration
}

// Option configures a provider.
type Option func(*providerOptions)

// WithUsageRecorder reports token usage of every successful call.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(o *providerOptions) { o.usage = r }
}

// WithModelCheckTimeout bounds the model availability check.
func WithModelCheckTimeout(d time.Duration) Option {
	return func(o *providerOptions) {
		if d > 0 {
			o.modelCheckTimeout = d
		}
	}
}

func applyOptions(opts []Option) providerOptions {
	o := providerOptions{modelCheckTimeout: 10 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewProvider creates the extraction provider named by the configuration.
func NewProvider(cfg config.OperationAIConfig, logger *errors.Logger, opts ...Option) (Provider, error) {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	if cfg.Timeout == nil || cfg.MaxRetries == nil || cfg.Temperature == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			"AI operation config is missing timeout, retries or temperature", nil)
	}

	logger.Debug("Initializing AI provider",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries)

	switch cfg.Provider {
	case "gemini":
		provider, err := NewGeminiProvider(&cfg, logger, opts...)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
}
