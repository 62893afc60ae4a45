package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ATSCORE"

// LoadConfig loads configuration from a .env file, environment variables and
// a config file. An empty configFile searches the default locations.
func LoadConfig(configFile string) (*Config, error) {
	log.Println("[CONFIG] Starting configuration loading process")

	if err := godotenv.Load(); err == nil {
		log.Println("[CONFIG] Loaded environment overrides from .env")
	}

	v := viper.New()
	setDefaults(v)
	log.Println("[CONFIG] Applied default configuration values")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	log.Printf("[CONFIG] Configured environment variable handling with prefix '%s'", envPrefix)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/atscore/")
		v.AddConfigPath("$HOME/.atscore")
		v.AddConfigPath(".")
		log.Println("[CONFIG] Configured config file search paths: /etc/atscore/, $HOME/.atscore, .")
	}

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		log.Println("[CONFIG] No config file found, using defaults and environment variables")
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Successfully loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.applyFallbacks()
	config.logConfigurationSources(configFileUsed)

	if err := config.loadPromptFiles(); err != nil {
		return nil, fmt.Errorf("failed to load custom prompts: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Println("[CONFIG] Configuration loading completed successfully")
	return &config, nil
}

// Default returns the built-in configuration without reading files or the
// environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		panic(fmt.Sprintf("default configuration does not decode: %v", err))
	}
	config.applyFallbacks()
	return &config
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.1)

	v.SetDefault("ai.extract.provider", "")
	v.SetDefault("ai.extract.model", "")
	v.SetDefault("ai.extract.apiKey", "")
	v.SetDefault("ai.extract.systemPrompt", "")
	v.SetDefault("ai.extract.systemPromptFile", "")
	v.SetDefault("ai.extract.userPrompt", "")
	v.SetDefault("ai.extract.userPromptFile", "")
	v.SetDefault("ai.extract.maxInputChars", 60000)
	v.SetDefault("ai.extract.circuitBreaker.enabled", true)
	v.SetDefault("ai.extract.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.extract.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.extract.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.extract.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.extract.circuitBreaker.failureThreshold", 0.6)

	// Server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.tls.mode", "disabled")
	v.SetDefault("server.tls.certFile", "")
	v.SetDefault("server.tls.keyFile", "")
	v.SetDefault("server.tls.caFile", "")
	v.SetDefault("server.tls.minVersion", "1.2")
	v.SetDefault("server.tls.clientAuthPolicy", "require")
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.adminPaths", []string{"/admin/", "/user/all"})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 10*1024*1024)
	v.SetDefault("app.maxBulkFiles", 200)
	v.SetDefault("app.workers", 4)
	v.SetDefault("app.parseTimeout", 30*time.Second)

	// Scoring
	v.SetDefault("scoring.tablesFile", "")
	v.SetDefault("scoring.watch", true)
	v.SetDefault("scoring.debounceDelay", time.Second)

	// Storage
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("storage.maxOpenConns", 10)
	v.SetDefault("storage.connMaxLifetime", 30*time.Minute)
	v.SetDefault("storage.timeout", 5*time.Second)

	// Cache
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 24*time.Hour)
	v.SetDefault("cache.keyPrefix", "atscore:extract:")

	// Archive
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.endpoint", "localhost:9000")
	v.SetDefault("archive.accessKey", "")
	v.SetDefault("archive.secretKey", "")
	v.SetDefault("archive.bucket", "resumes")
	v.SetDefault("archive.region", "")
	v.SetDefault("archive.useSSL", false)

	// Vault
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.aiKey", "")
	v.SetDefault("vault.secrets.tlsCerts", "")
	v.SetDefault("vault.secrets.storage", "")
	v.SetDefault("vault.watch.enabled", false)
	v.SetDefault("vault.watch.pollInterval", 5*time.Minute)

	// Observability
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "atscore")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
}

func (c *Config) applyFallbacks() {
	// Keys from the environment arrive as one comma-separated value.
	c.Server.APIKeys = splitList(strings.Join(c.Server.APIKeys, ","))
	if len(c.Server.APIKeys) == 0 {
		c.Server.APIKeys = splitList(os.Getenv(envPrefix + "_SERVER_APIKEYS"))
	}

	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}

	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}

	if c.Storage.Driver == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = "file:atscore.db?_pragma=busy_timeout(5000)"
	}

	if c.Observability.ServiceInstance == "" {
		if hostname, err := os.Hostname(); err == nil {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-%s", c.Observability.ServiceName, hostname)
		} else {
			c.Observability.ServiceInstance = fmt.Sprintf("%s-1", c.Observability.ServiceName)
		}
	}

	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")
	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		envPrefix + "_AI_APIKEY",
		envPrefix + "_AI_MODEL",
		envPrefix + "_SERVER_PORT",
		envPrefix + "_SERVER_HOST",
		envPrefix + "_APP_LOGLEVEL",
		envPrefix + "_STORAGE_DRIVER",
		envPrefix + "_STORAGE_DSN",
		envPrefix + "_CACHE_ADDR",
		envPrefix + "_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}

	log.Println("[CONFIG] Environment variables:")
	hasEnvVars := false
	for _, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		if isSensitive(envVar) {
			log.Printf("[CONFIG]   %s=***MASKED***", envVar)
		} else {
			log.Printf("[CONFIG]   %s=%s", envVar, value)
		}
		hasEnvVars = true
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   None set")
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	log.Printf("[CONFIG] AI Provider: %s", c.AI.Provider)
	log.Printf("[CONFIG] AI Model: %s", c.AI.Model)
	if c.AI.APIKey != "" {
		log.Println("[CONFIG] AI API Key: ***CONFIGURED***")
	} else {
		log.Println("[CONFIG] AI API Key: ***NOT SET***")
	}
	log.Printf("[CONFIG] Server: %s:%s (TLS %s)", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Log Level: %s", c.App.LogLevel)
	log.Printf("[CONFIG] Storage Driver: %s", c.Storage.Driver)
	log.Printf("[CONFIG] Cache Enabled: %t", c.Cache.Enabled)
	log.Printf("[CONFIG] Archive Enabled: %t", c.Archive.Enabled)
	log.Printf("[CONFIG] Scoring Tables: %s", valueOr(c.Scoring.TablesFile, "built-in"))
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
	log.Println("[CONFIG] =====================================")
}

func isSensitive(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "key") || strings.Contains(lower, "dsn") || strings.Contains(lower, "password")
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// splitList splits a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
