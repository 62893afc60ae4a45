package cli

import (
	"context"
	"fmt"

	"atscore/internal/ai"
	"atscore/internal/archive"
	"atscore/internal/ats"
	"atscore/internal/cache"
	"atscore/internal/config"
	"atscore/internal/document"
	"atscore/internal/errors"
	"atscore/internal/observability"
	"atscore/internal/pipeline"
	"atscore/internal/store"
)

// stackOptions selects which parts of the processing stack a command needs.
type stackOptions struct {
	// Offline skips the AI provider and scores with empty structured fields.
	Offline bool
	// Persist opens the configured report store and upload archive.
	Persist bool
	// Observability is the telemetry manager, nil for commands without telemetry.
	Observability *observability.ObservabilityManager
}

// stack is the wired processing pipeline and the resources behind it.
type stack struct {
	processor *pipeline.Processor
	provider  ai.Provider
	store     store.ReportStore
	closers   []func() error
	logger    *errors.Logger
}

// buildStack wires the text extractor, the structured extractor (with cache
// and instrumentation), the scorer and, when asked, persistence.
func buildStack(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts stackOptions) (*stack, error) {
	s := &stack{logger: logger}
	om := opts.Observability

	scorer, err := loadScorer(cfg)
	if err != nil {
		return nil, err
	}

	text, err := document.NewExtractor(ctx, cfg.App.ParseTimeout, logger)
	if err != nil {
		return nil, err
	}

	var fields ai.StructuredExtractor
	if !opts.Offline {
		fields, err = s.buildExtractor(ctx, cfg, logger, om)
		if err != nil {
			s.Close()
			return nil, err
		}
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(om.GetMetrics()),
		pipeline.WithWorkers(cfg.App.Workers),
	}
	if extract := cfg.GetExtractConfig(); extract.Timeout != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithExtractTimeout(*extract.Timeout))
	}

	if opts.Persist {
		reports, err := store.New(ctx, cfg.Storage, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open report store: %w", err)
		}
		s.store = reports
		s.closers = append(s.closers, reports.Close)

		uploads, err := archive.New(ctx, cfg.Archive, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open upload archive: %w", err)
		}
		pipelineOpts = append(pipelineOpts, pipeline.WithStore(reports), pipeline.WithArchive(uploads))
	}

	s.processor = pipeline.New(text, fields, scorer, pipelineOpts...)
	return s, nil
}

// buildExtractor creates the AI provider and layers the cache and telemetry on it.
func (s *stack) buildExtractor(ctx context.Context, cfg *config.Config, logger *errors.Logger, om *observability.ObservabilityManager) (ai.StructuredExtractor, error) {
	extractCfg := cfg.GetExtractConfig()
	if extractCfg.APIKey == "" {
		return nil, errors.NewConfigError(errors.ErrCodeMissingAPIKey,
			"AI API key is not configured (set ATSCORE_AI_APIKEY or use --offline)", nil)
	}

	provider, err := ai.NewProvider(extractCfg, logger, ai.WithUsageRecorder(om.GetMetrics()))
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}
	s.provider = provider
	s.closers = append(s.closers, provider.Close)

	var extractor ai.StructuredExtractor = provider
	if cfg.Cache.Enabled {
		backend, err := cache.NewRedisBackend(ctx, cfg.Cache)
		if err != nil {
			logger.LogError(err, "Extraction cache unavailable, continuing without it")
		} else {
			s.closers = append(s.closers, backend.Close)
			extractor = cache.NewCachedExtractor(extractor, backend, cfg.Cache, logger)
		}
	}

	return om.InstrumentExtractor(extractor), nil
}

// Close releases the stack's resources in reverse order of creation.
func (s *stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.logger.LogError(err, "Failed to release resource")
		}
	}
	s.closers = nil
}

// loadScorer builds the scorer from the configured tables file, or from the
// built-in tables when none is set.
func loadScorer(cfg *config.Config) (*ats.Scorer, error) {
	tables := ats.DefaultTables()
	if path := cfg.Scoring.TablesFile; path != "" {
		var err error
		if tables, err = ats.LoadTables(path); err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "invalid scoring tables", err)
		}
	}
	return ats.NewScorer(tables)
}
