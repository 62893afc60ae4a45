package config

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]*VaultSecret

func (f fakeSecrets) GetSecretV2(path string) (*VaultSecret, error) {
	if s, ok := f[path]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("secret not found at path: %s", path)
}

func (f fakeSecrets) GetStringSecret(path, key string) (string, error) {
	s, err := f.GetSecretV2(path)
	if err != nil {
		return "", err
	}
	return stringField(s, path, key)
}

func (f fakeSecrets) GetStringSliceSecret(path, key string) ([]string, error) {
	v, err := f.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	return splitList(v), nil
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{"int64", int64(42), 42, false},
		{"int", 7, 7, false},
		{"float64", float64(42), 42, false},
		{"string", "42", 42, false},
		{"json number", json.Number("5"), 5, false},
		{"bad string", "not-a-number", 0, true},
		{"unsupported", []string{"42"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersionValue(tt.input, "secret/data/x")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseKVv2(t *testing.T) {
	secret, err := parseKVv2(map[string]any{
		"data":     map[string]any{"api_key": "abc"},
		"metadata": map[string]any{"version": json.Number("3")},
	}, "secret/data/ai")
	require.NoError(t, err)
	assert.Equal(t, int64(3), secret.Version)
	assert.Equal(t, "abc", secret.Data["api_key"])

	_, err = parseKVv2(map[string]any{"api_key": "abc"}, "secret/ai")
	assert.Error(t, err)

	_, err = parseKVv2(map[string]any{"data": map[string]any{}}, "secret/data/ai")
	assert.Error(t, err)
}

func TestApplySecrets(t *testing.T) {
	cfg := Default()
	cfg.Server.TLS.CertFile = "/etc/cert.pem"
	cfg.Vault.Secrets = VaultSecrets{
		APIKeys:  "secret/data/keys",
		AIKey:    "secret/data/ai",
		TLSCerts: "secret/data/tls",
		Storage:  "secret/data/db",
	}
	reader := fakeSecrets{
		"secret/data/keys": {Data: map[string]any{"keys": "k1, k2"}, Version: 1},
		"secret/data/ai":   {Data: map[string]any{"api_key": "gem"}, Version: 1},
		"secret/data/tls":  {Data: map[string]any{"cert": "CERT", "key": "KEY"}, Version: 2},
		"secret/data/db":   {Data: map[string]any{"dsn": "postgres://u:p@db/ats"}, Version: 1},
	}

	require.NoError(t, applySecrets(reader, cfg, nil))
	assert.Equal(t, []string{"k1", "k2"}, cfg.Server.APIKeys)
	assert.Equal(t, "gem", cfg.AI.APIKey)
	assert.Equal(t, "gem", cfg.AI.Extract.APIKey)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CertFile)
	assert.Empty(t, cfg.Server.TLS.CAContent)
	assert.Equal(t, "postgres://u:p@db/ats", cfg.Storage.DSN)
}

func TestApplySecretsErrors(t *testing.T) {
	cfg := Default()
	cfg.Vault.Secrets.AIKey = "secret/data/missing"
	assert.Error(t, applySecrets(fakeSecrets{}, cfg, nil))

	cfg = Default()
	cfg.Vault.Secrets.AIKey = "secret/data/ai"
	reader := fakeSecrets{"secret/data/ai": {Data: map[string]any{"api_key": 12}}}
	assert.Error(t, applySecrets(reader, cfg, nil))
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyVaultSecrets(cfg, nil))

	client, err := NewVaultClient(VaultConfig{Enabled: false}, nil)
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestResolveVaultToken(t *testing.T) {
	token, err := resolveVaultToken(VaultConfig{Token: "root"})
	require.NoError(t, err)
	assert.Equal(t, "root", token)

	_, err = resolveVaultToken(VaultConfig{})
	assert.Error(t, err)

	_, err = resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token"})
	assert.Error(t, err)
}
