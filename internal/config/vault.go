package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"atscore/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets     `mapstructure:"secrets"`
	Watch   VaultWatchConfig `mapstructure:"watch"`
}

// VaultSecrets defines where to find secrets in Vault (KVv2 paths).
type VaultSecrets struct {
	APIKeys  string `mapstructure:"apiKeys"`  // key "keys", comma-separated
	AIKey    string `mapstructure:"aiKey"`    // key "api_key"
	TLSCerts string `mapstructure:"tlsCerts"` // keys "cert", "key", "ca"
	Storage  string `mapstructure:"storage"`  // key "dsn"
}

// VaultWatchConfig controls polling of the API keys secret for rotation.
type VaultWatchConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"pollInterval"`
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	config VaultConfig
	logger *errors.Logger
}

// NewVaultClient creates a new Vault client from configuration. It returns
// nil without error when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !config.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = errors.NewNopLogger()
	}

	logger.Debug("Initializing Vault client",
		"address", config.Address,
		"namespace", config.Namespace,
		"token_file", config.TokenFile,
		"has_token", config.Token != "")

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", config.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault",
		"address", config.Address,
		"version", health.Version,
		"sealed", health.Sealed)

	return &VaultClient{client: client, config: config, logger: logger}, nil
}

// resolveVaultToken resolves the Vault token from config or file
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}
	vc.logger.Debug("Reading secret from Vault", "path", path)

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return parseKVv2(secret.Data, path)
}

// parseKVv2 unwraps the data and metadata envelope of a KVv2 read.
func parseKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses version value from the types the Vault API returns
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		// json.Number and friends
		if s, ok := v.(fmt.Stringer); ok {
			return parseVersionValue(s.String(), path)
		}
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// GetStringSecret retrieves a string value from a Vault secret
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	return stringField(secret, path, key)
}

func stringField(secret *VaultSecret, path, key string) (string, error) {
	value, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	strValue, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}
	return strValue, nil
}

// GetStringSliceSecret retrieves a comma-separated string as a slice from Vault
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitList(value), nil
}

// SecretReader is the subset of the Vault client used to apply secrets.
type SecretReader interface {
	GetSecretV2(path string) (*VaultSecret, error)
	GetStringSecret(path, key string) (string, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if !config.Vault.Enabled {
		return nil
	}
	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client, config, logger)
}

func applySecrets(client SecretReader, config *Config, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.NewNopLogger()
	}
	secrets := config.Vault.Secrets

	if secrets.APIKeys != "" {
		keys, err := client.GetStringSliceSecret(secrets.APIKeys, "keys")
		if err != nil {
			return fmt.Errorf("failed to load API keys from vault: %w", err)
		}
		if len(keys) > 0 {
			config.Server.APIKeys = keys
			logger.Info("API keys loaded from Vault", "count", len(keys))
		} else {
			logger.Warn("No API keys found in Vault", "path", secrets.APIKeys)
		}
	}

	if secrets.AIKey != "" {
		key, err := client.GetStringSecret(secrets.AIKey, "api_key")
		if err != nil {
			return fmt.Errorf("failed to load AI API key from vault: %w", err)
		}
		if key != "" {
			config.AI.APIKey = key
			if config.AI.Extract.APIKey == "" {
				config.AI.Extract.APIKey = key
			}
			logger.Info("AI API key loaded from Vault")
		}
	}

	if secrets.TLSCerts != "" {
		tlsData, err := client.GetSecretV2(secrets.TLSCerts)
		if err != nil {
			return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
		}
		loaded := 0
		for key, target := range map[string]*string{
			"cert": &config.Server.TLS.CertContent,
			"key":  &config.Server.TLS.KeyContent,
			"ca":   &config.Server.TLS.CAContent,
		} {
			if content, ok := tlsData.Data[key].(string); ok && content != "" {
				*target = content
				loaded++
			}
		}
		// Vault content wins over file paths.
		if config.Server.TLS.CertContent != "" {
			config.Server.TLS.CertFile = ""
		}
		if config.Server.TLS.KeyContent != "" {
			config.Server.TLS.KeyFile = ""
		}
		if config.Server.TLS.CAContent != "" {
			config.Server.TLS.CAFile = ""
		}
		logger.Info("TLS certificates loaded from Vault", "certificates_loaded", loaded)
	}

	if secrets.Storage != "" {
		dsn, err := client.GetStringSecret(secrets.Storage, "dsn")
		if err != nil {
			return fmt.Errorf("failed to load storage DSN from vault: %w", err)
		}
		if dsn != "" {
			config.Storage.DSN = dsn
			logger.Info("Storage DSN loaded from Vault")
		}
	}

	return nil
}
