package server

import (
	"net/http"
	"strings"
	"sync"
)

// Handler returns the routed API wrapped with HTTP instrumentation.
func (s *Server) Handler() http.Handler {
	return s.om.HTTPMiddleware()(s.setupRoutes())
}

// setupRoutes configures all HTTP routes and middleware
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)

	mux.HandleFunc("POST /resume/upload_resume", s.protect(s.uploadResumeHandler))
	mux.HandleFunc("POST /analyze_all", s.protect(s.analyzeAllHandler))

	mux.HandleFunc("POST /user/upload_resume", s.protect(s.userUploadHandler))
	mux.HandleFunc("GET /user/history/{email}", s.protect(s.userHistoryHandler))
	mux.HandleFunc("GET /user/info/{email}", s.protect(s.userInfoHandler))
	mux.HandleFunc("GET /user/all", s.protect(s.userListHandler))

	mux.HandleFunc("POST /admin/filter_uploaded_resumes", s.protect(s.filterResumesHandler))

	return mux
}

// protect applies rate limiting, API key authentication and the body size
// limit, in that order.
func (s *Server) protect(h http.HandlerFunc) http.HandlerFunc {
	return s.rateLimitMiddleware()(s.authMiddleware(s.requestSizeLimitMiddleware()(h)))
}

// APIKeySet is the set of accepted API keys. It can be replaced at runtime
// when keys rotate.
type APIKeySet struct {
	mu   sync.RWMutex
	keys map[string]bool
}

// NewAPIKeySet builds a set, ignoring empty keys.
func NewAPIKeySet(keys []string) *APIKeySet {
	set := &APIKeySet{}
	set.Replace(keys)
	return set
}

// Replace swaps in a new key list and returns the number of keys kept.
func (k *APIKeySet) Replace(keys []string) int {
	// Convert API keys slice to map for O(1) lookup
	next := make(map[string]bool, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			next[key] = true
		}
	}

	k.mu.Lock()
	k.keys = next
	k.mu.Unlock()
	return len(next)
}

// Contains reports whether key is accepted.
func (k *APIKeySet) Contains(key string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys[key]
}

// Len returns the number of configured keys.
func (k *APIKeySet) Len() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys)
}

// requiresAPIKey reports whether path is guarded. With no admin paths
// configured every API route is guarded.
func (s *Server) requiresAPIKey(path string) bool {
	if len(s.AdminPaths) == 0 {
		return true
	}
	for _, prefix := range s.AdminPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// authMiddleware provides API key authentication
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication if no API keys are configured
		if s.APIKeys.Len() == 0 || !s.requiresAPIKey(r.URL.Path) {
			next(w, r)
			return
		}

		apiKey := requestAPIKey(r)
		if apiKey == "" {
			s.Logger.Info("Authentication failed: missing API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr)
			writeErrorResponse(w, "Missing API key", "X-API-Key header or Authorization Bearer token required", http.StatusUnauthorized)
			return
		}

		if !s.APIKeys.Contains(apiKey) {
			s.Logger.Info("Authentication failed: invalid API key",
				"endpoint", r.URL.Path,
				"client_ip", r.RemoteAddr,
				"api_key_prefix", maskAPIKey(apiKey))
			writeErrorResponse(w, "Invalid API key", "Unauthorized access", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API authentication successful",
			"endpoint", r.URL.Path,
			"client_ip", r.RemoteAddr,
			"api_key_prefix", maskAPIKey(apiKey))

		next(w, r)
	}
}

// requestAPIKey reads the X-API-Key header, falling back to a Bearer token.
func requestAPIKey(r *http.Request) string {
	if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
		return apiKey
	}
	if after, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return after
	}
	return ""
}

// requestSizeLimitMiddleware limits the size of incoming requests
func (s *Server) requestSizeLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if s.MaxRequestSize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestSize)
			}

			next(w, r)
		}
	}
}

// maskAPIKey masks an API key for logging (shows only first 8 characters)
func maskAPIKey(apiKey string) string {
	if len(apiKey) <= 8 {
		return "****"
	}
	return apiKey[:8] + "****"
}
