package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"atscore/internal/config"
	appErrors "atscore/internal/errors"
)

func timePtr(d time.Duration) *time.Duration { return &d }
func intPtr(i int) *int                      { return &i }
func float32Ptr(f float32) *float32          { return &f }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network timeout", timeoutErr{}, true},
		{"rate limited", &googleapi.Error{Code: http.StatusTooManyRequests}, true},
		{"unavailable wrapped", fmt.Errorf("call: %w", &googleapi.Error{Code: http.StatusServiceUnavailable}), true},
		{"bad request", &googleapi.Error{Code: http.StatusBadRequest}, false},
		{"unauthorized", &googleapi.Error{Code: http.StatusUnauthorized}, false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableError(tt.err))
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	for attempt, base := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second} {
		d := backoffDelay(attempt)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+base/10)
	}
	assert.Equal(t, 30*time.Second, backoffDelay(10))
}

func TestExecuteWithRetryStopsOnNonRetryable(t *testing.T) {
	g := &GeminiProvider{
		config: &config.OperationAIConfig{MaxRetries: intPtr(3)},
		logger: appErrors.NewNopLogger(),
	}
	calls := 0
	_, err := g.executeWithRetry(context.Background(), "test", func() (*genai.GenerateContentResponse, error) {
		calls++
		return nil, &googleapi.Error{Code: http.StatusBadRequest}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestExecuteWithRetryRetriesTransient(t *testing.T) {
	g := &GeminiProvider{
		config: &config.OperationAIConfig{MaxRetries: intPtr(1)},
		logger: appErrors.NewNopLogger(),
	}
	calls := 0
	resp, err := g.executeWithRetry(context.Background(), "test", func() (*genai.GenerateContentResponse, error) {
		calls++
		if calls == 1 {
			return nil, &googleapi.Error{Code: http.StatusServiceUnavailable}
		}
		return &genai.GenerateContentResponse{}, nil
	})
	require.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, 2, calls)
}

func TestExecuteWithRetryHonoursCancellation(t *testing.T) {
	g := &GeminiProvider{
		config: &config.OperationAIConfig{MaxRetries: intPtr(3)},
		logger: appErrors.NewNopLogger(),
	}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := g.executeWithRetry(ctx, "test", func() (*genai.GenerateContentResponse, error) {
		calls++
		cancel()
		return nil, &googleapi.Error{Code: http.StatusServiceUnavailable}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestBuildExtractionConfig(t *testing.T) {
	g := &GeminiProvider{config: &config.OperationAIConfig{Temperature: float32Ptr(0.2)}}
	cfg := g.buildExtractionConfig("system")

	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	require.NotNil(t, cfg.ResponseSchema)
	for _, key := range []string{"name", "education", "skills", "experience", "projects", "languages"} {
		assert.Contains(t, cfg.ResponseSchema.Properties, key)
	}
	assert.Contains(t, cfg.ResponseSchema.Properties["education"].Properties, "10th")
	require.NotNil(t, cfg.SystemInstruction)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.2, *cfg.Temperature, 1e-6)

	g.config.Temperature = float32Ptr(0)
	assert.Nil(t, g.buildExtractionConfig("").Temperature)
}

func TestExtractTokenUsage(t *testing.T) {
	assert.Nil(t, extractTokenUsage(nil))
	assert.Nil(t, extractTokenUsage(&genai.GenerateContentResponse{}))

	usage := extractTokenUsage(&genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     120,
			CandidatesTokenCount: 80,
			TotalTokenCount:      200,
		},
	})
	require.NotNil(t, usage)
	assert.Equal(t, int64(120), usage.InputTokens)
	assert.Equal(t, int64(80), usage.OutputTokens)
	assert.Equal(t, int64(200), usage.TotalTokens)
}

func TestNewProviderErrors(t *testing.T) {
	base := config.OperationAIConfig{
		Provider:    "gemini",
		Model:       "gemini-2.0-flash",
		Timeout:     timePtr(time.Second),
		MaxRetries:  intPtr(0),
		Temperature: float32Ptr(0.1),
	}

	_, err := NewProvider(base, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsType(err, appErrors.ErrorTypeConfig))

	other := base
	other.APIKey = "k"
	other.Provider = "openrouter"
	_, err = NewProvider(other, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported AI provider")

	incomplete := base
	incomplete.Timeout = nil
	_, err = NewProvider(incomplete, nil)
	assert.Error(t, err)
}

func TestCircuitBreakerTripsAndReports(t *testing.T) {
	cb := NewCircuitBreaker[string]("test", config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}, nil)
	require.NotNil(t, cb)
	assert.True(t, cb.IsHealthy())
	assert.Equal(t, "AI-test", cb.GetStats()["name"])

	failing := func() (string, error) { return "", errors.New("upstream down") }
	_, _ = cb.Execute(failing)
	_, _ = cb.Execute(failing)

	assert.False(t, cb.IsHealthy())
	assert.Equal(t, "open", cb.GetStats()["state"])

	_, err := cb.Execute(func() (string, error) { return "ok", nil })
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestDisabledCircuitBreakerPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker[string]("off", config.CircuitBreakerConfig{Enabled: false}, nil)
	assert.Nil(t, cb)
	assert.True(t, cb.IsHealthy())
	assert.Equal(t, false, cb.GetStats()["enabled"])

	out, err := cb.Execute(func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestBuildExtractionPrompt(t *testing.T) {
	prompt := BuildExtractionPrompt("", "Go developer with 100% uptime", 0)
	assert.True(t, strings.HasSuffix(prompt, "Go developer with 100% uptime"))
	assert.Contains(t, prompt, `"10th"`)

	prompt = BuildExtractionPrompt("Resume:\n%s\nEnd", "héllo wörld", 5)
	assert.Equal(t, "Resume:\nhéllo\nEnd", prompt)

	prompt = BuildExtractionPrompt("No placeholder", "text", 0)
	assert.Equal(t, "No placeholder\ntext", prompt)

	assert.Equal(t, "mine", resolvePrompt("mine", "default"))
	assert.Equal(t, "default", resolvePrompt("  ", "default"))
}
