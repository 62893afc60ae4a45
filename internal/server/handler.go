package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	appErrors "atscore/internal/errors"
	"atscore/internal/store"
)

// getHealthCheckTimeout returns the configured health check timeout
func (s *Server) getHealthCheckTimeout() time.Duration {
	if s.AppConfig == nil || s.AppConfig.Observability.HealthCheck.Timeout <= 0 {
		return 15 * time.Second
	}
	return s.AppConfig.Observability.HealthCheck.Timeout
}

// healthHandler reports storage reachability, AI model status and circuit breaker state
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.getHealthCheckTimeout())
	defer cancel()

	response := map[string]any{
		"status":  "healthy",
		"service": "atscore",
		"version": s.Version,
	}
	overallHealthy := true

	if s.store != nil {
		if err := s.store.Ping(ctx); err != nil {
			response["storage"] = map[string]any{"available": false, "error": err.Error()}
			overallHealthy = false
		} else {
			response["storage"] = map[string]any{"available": true}
		}
	}

	if s.ai != nil {
		modelInfo := s.ai.GetModelInfo(ctx)
		response["ai_model"] = modelInfo
		if modelInfo != nil && !modelInfo.Available {
			overallHealthy = false
		}

		breakers := s.ai.GetCircuitBreakerStats()
		response["circuit_breakers"] = breakers
		if healthy, ok := breakers["overall_healthy"].(bool); ok && !healthy {
			overallHealthy = false
		}
	} else {
		response["ai_model"] = map[string]any{"available": false, "message": "AI extraction disabled"}
	}

	response["scoring"] = map[string]any{
		"tables_file": s.tablesFile(),
		"watching":    s.tablesWatcher != nil && s.tablesWatcher.IsRunning(),
	}

	status := http.StatusOK
	if !overallHealthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response, s.Logger)
}

// statsHandler provides server statistics including rate limiting and circuit breaker state
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "atscore",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"max_file_size_bytes":    s.MaxFileSize,
			"max_bulk_files":         s.MaxBulkFiles,
			"api_keys_configured":    s.APIKeys.Len(),
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	if s.ai != nil {
		response["circuit_breakers"] = s.ai.GetCircuitBreakerStats()
	}

	if s.vaultWatcher != nil {
		response["api_key_rotation"] = s.vaultWatcher.Status()
	}

	writeJSON(w, http.StatusOK, response, s.Logger)
}

func (s *Server) tablesFile() string {
	if s.AppConfig == nil {
		return ""
	}
	return s.AppConfig.Scoring.TablesFile
}

// statusForError maps an application error to its HTTP status and title.
func statusForError(err error) (int, string) {
	if errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "Not found"
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "Request too large"
	}

	appErr, ok := appErrors.As(err)
	if !ok {
		return http.StatusInternalServerError, "Internal server error"
	}
	switch appErr.Type {
	case appErrors.ErrorTypeValidation:
		return http.StatusBadRequest, "Invalid request"
	case appErrors.ErrorTypeNotFound:
		return http.StatusNotFound, "Not found"
	case appErrors.ErrorTypeAI, appErrors.ErrorTypeNetwork, appErrors.ErrorTypeExtraction:
		return http.StatusBadGateway, "Upstream processing failed"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeAppError logs err and writes the mapped error response. Messages of
// internal failures are not exposed.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status, title := statusForError(err)

	message := "An unexpected error occurred"
	if status != http.StatusInternalServerError {
		message = err.Error()
		if appErr, ok := appErrors.As(err); ok {
			message = appErr.Message
		}
	}

	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	} else {
		s.Logger.Debug("Request rejected", "endpoint", r.URL.Path, "status", status, "error", err.Error())
	}
	writeErrorResponse(w, title, message, status)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any, logger *appErrors.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.LogError(err, "Failed to encode response")
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, title, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: title, Message: message}, nil)
}
