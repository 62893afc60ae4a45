package ai

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"time"

	"atscore/internal/config"
	appErrors "atscore/internal/errors"
	"atscore/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const extractOperation = "extract_fields"

// GeminiProvider implements Provider for Google Gemini
type GeminiProvider struct {
	client       *genai.Client
	config       *config.OperationAIConfig
	breaker      *CircuitBreaker[*genai.GenerateContentResponse]
	modelBreaker *CircuitBreaker[*genai.Model]
	usage        UsageRecorder
	modelTimeout time.Duration
	logger       *appErrors.Logger
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider for structured extraction
func NewGeminiProvider(cfg *config.OperationAIConfig, logger *appErrors.Logger, opts ...Option) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, appErrors.NewConfigError(appErrors.ErrCodeMissingAPIKey,
			"AI API key is required (set ATSCORE_AI_APIKEY or GEMINI_API_KEY)", nil)
	}
	options := applyOptions(opts)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	// Model checks only feed health reporting, so they trip later.
	modelCB := cfg.CircuitBreaker
	modelCB.MinRequests = max(modelCB.MinRequests, 5)
	modelCB.FailureThreshold = max(modelCB.FailureThreshold, 0.8)

	return &GeminiProvider{
		client:       client,
		config:       cfg,
		breaker:      NewCircuitBreaker[*genai.GenerateContentResponse]("extract", cfg.CircuitBreaker, logger),
		modelBreaker: NewCircuitBreaker[*genai.Model]("model-extract", modelCB, logger),
		usage:        options.usage,
		modelTimeout: options.modelCheckTimeout,
		logger:       logger,
	}, nil
}

// ExtractFields asks the model for the structured profile of a resume
func (g *GeminiProvider) ExtractFields(ctx context.Context, text string) (*types.StructuredFields, error) {
	tracer := otel.Tracer("atscore.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+extractOperation)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
		attribute.Int("input.resume_length", len(text)),
	)

	ctx, cancel := context.WithTimeout(ctx, *g.config.Timeout)
	defer cancel()

	userPrompt := BuildExtractionPrompt(g.config.UserPrompt, text, g.config.MaxInputChars)
	genaiConfig := g.buildExtractionConfig(resolvePrompt(g.config.SystemPrompt, DefaultSystemPrompt))

	result, err := g.breaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, extractOperation, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, appErrors.NewAIError(appErrors.ErrCodeAITimeout, "AI request timed out", err)
		}
		return nil, appErrors.NewAIError(appErrors.ErrCodeAIServiceFailed, "AI request failed", err)
	}

	fields, err := DecodeExtraction(result.Text())
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.LogError(err, "Model returned malformed extraction output", "model", g.config.Model)
		return nil, err
	}

	if usage := extractTokenUsage(result); usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
		if g.usage != nil {
			g.usage.RecordTokenUsage(ctx, extractOperation, g.config.Model, usage)
		}
	}

	span.SetAttributes(
		attribute.Bool("success", true),
		attribute.Int("output.languages", len(fields.Languages)),
		attribute.Int("output.technical_skills", len(fields.Skills.Technical)),
	)
	return fields, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = model.DisplayName
	info.Version = model.Version
	return info
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.breaker.GetStats(),
		"model_operations": g.modelBreaker.GetStats(),
		"overall_healthy":  g.breaker.IsHealthy() && g.modelBreaker.IsHealthy(),
	}
}

// Close implements Provider
func (g *GeminiProvider) Close() error {
	return nil
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := *g.config.MaxRetries
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}

		lastErr = err
		if !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"total_attempts", maxRetries+1)

	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped at 30s.
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, 30*time.Second)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
	}

	return false
}

// buildExtractionConfig creates the response schema for extraction requests
func (g *GeminiProvider) buildExtractionConfig(systemPrompt string) *genai.GenerateContentConfig {
	text := &genai.Schema{Type: genai.TypeString}
	textList := &genai.Schema{Type: genai.TypeArray, Items: text}
	school := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"school":     text,
			"location":   text,
			"year":       text,
			"percentage": text,
		},
	}

	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":      text,
				"email":     text,
				"phone":     text,
				"linkedin":  text,
				"github":    text,
				"leetcode":  text,
				"codechef":  text,
				"languages": textList,
				"education": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"10th": school,
						"12th": school,
						"bachelor": {
							Type: genai.TypeObject,
							Properties: map[string]*genai.Schema{
								"institute":           text,
								"location":            text,
								"degree":              text,
								"department":          text,
								"expected_graduation": text,
								"cgpa":                text,
							},
						},
					},
				},
				"skills": {
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"technical": textList,
						"soft":      textList,
					},
				},
				"experience":   text,
				"projects":     text,
				"certificates": textList,
				"role_match":   text,
				"summary":      text,
			},
			Required: []string{"name", "email", "languages", "education", "skills"},
		},
	}

	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}
	return cfg
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
