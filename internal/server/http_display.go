package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

// displayEndpoints shows available API endpoints
func (s *Server) displayEndpoints() {
	scheme := "http"
	if s.TLSConfig.Mode == "server" || s.TLSConfig.Mode == "mutual" {
		scheme = "https"
	}
	fmt.Printf("Listening on %s://%s:%s\n", scheme, s.Host, s.Port)
	fmt.Println("Available endpoints:")
	fmt.Println("  GET  /health                         - Health check")
	fmt.Println("  GET  /stats                          - Server statistics")
	fmt.Println("  POST /resume/upload_resume           - Score a resume")
	fmt.Println("  POST /analyze_all                    - Score a resume and report profile handles")
	fmt.Println("  POST /user/upload_resume             - Score and store a user's resume")
	fmt.Println("  GET  /user/history/{email}           - Latest analysis of a user")
	fmt.Println("  GET  /user/info/{email}              - Stored profile of a user")
	fmt.Println("  GET  /user/all                       - All users")
	fmt.Println("  POST /admin/filter_uploaded_resumes  - Screen resumes against filters (?format=xlsx)")
}

// displayAuthInfo shows authentication configuration
func (s *Server) displayAuthInfo() {
	if s.APIKeys.Len() > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", s.APIKeys.Len())
		if len(s.AdminPaths) > 0 {
			fmt.Printf("Include 'X-API-Key: <your-key>' header in requests under %v\n", s.AdminPaths)
		} else {
			fmt.Println("Include 'X-API-Key: <your-key>' header in all API requests")
		}
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: admin endpoints are publicly accessible!")
	}
}

// displayRequestLimitInfo shows request size limit configuration
func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB), per file: %.1f MB, bulk files: %d\n",
			s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024),
			float64(s.MaxFileSize)/(1024*1024), s.MaxBulkFiles)
	} else {
		fmt.Println("Request size limit: DISABLED")
		fmt.Println("WARNING: No request size limits configured!")
	}
}

// displayRateLimitInfo shows rate limiting configuration
func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
