package config

import (
	"fmt"
	"slices"
)

var storageDrivers = []string{"memory", "sqlite", "postgres"}

// Validate checks if the configuration is valid. The AI API key is checked
// when the extraction provider is built, so offline scoring works without one.
func (c *Config) Validate() error {
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("AI timeout must be positive")
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("AI maxRetries cannot be negative")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if !slices.Contains(c.App.SupportedFormats, c.App.DefaultFormat) {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}
	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("app maxFileSize must be positive")
	}
	if c.App.MaxBulkFiles <= 0 {
		return fmt.Errorf("app maxBulkFiles must be positive")
	}
	if c.App.Workers <= 0 {
		return fmt.Errorf("app workers must be positive")
	}

	if !slices.Contains(storageDrivers, c.Storage.Driver) {
		return fmt.Errorf("invalid storage driver: %s (must be one of %v)", c.Storage.Driver, storageDrivers)
	}
	if c.Storage.Driver == "postgres" && c.Storage.DSN == "" && c.Vault.Secrets.Storage == "" {
		return fmt.Errorf("storage dsn is required for the postgres driver")
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache addr is required when the cache is enabled")
	}
	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
		return fmt.Errorf("archive endpoint and bucket are required when the archive is enabled")
	}

	if err := c.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("TLS configuration error: %w", err)
	}

	return nil
}

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	switch tls.Mode {
	case "", "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	if (tls.CertFile == "" && tls.CertContent == "") || (tls.KeyFile == "" && tls.KeyContent == "") {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", tls.Mode)
	}
	if tls.CertFile != "" && tls.CertContent != "" {
		return fmt.Errorf("cannot specify both certFile and certContent - choose one")
	}
	if tls.KeyFile != "" && tls.KeyContent != "" {
		return fmt.Errorf("cannot specify both keyFile and keyContent - choose one")
	}

	if tls.Mode == "mutual" {
		if tls.CAFile == "" && tls.CAContent == "" {
			return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
		}
		switch tls.ClientAuthPolicy {
		case "require", "request", "verify", "":
		default:
			return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tls.ClientAuthPolicy)
		}
	}

	switch tls.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
}
