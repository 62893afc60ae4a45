package ai

import (
	"context"

	"atscore/internal/types"
)

// StructuredExtractor turns resume text into structured profile fields.
type StructuredExtractor interface {
	ExtractFields(ctx context.Context, text string) (*types.StructuredFields, error)
}

// Provider is an LLM backend for structured extraction.
type Provider interface {
	StructuredExtractor
	GetModelInfo(ctx context.Context) *ModelInfo
	GetCircuitBreakerStats() map[string]any
	Close() error
}

// UsageRecorder receives token usage for each successful AI call.
type UsageRecorder interface {
	RecordTokenUsage(ctx context.Context, operation, model string, usage *TokenUsage)
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
