package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atscore/internal/config"
)

func TestConfigureTLS(t *testing.T) {
	tests := []struct {
		name    string
		tls     config.TLSConfig
		wantErr string
	}{
		{"disabled", config.TLSConfig{Mode: "disabled"}, ""},
		{"invalid mode", config.TLSConfig{Mode: "sometimes"}, "invalid TLS mode"},
		{"server without cert", config.TLSConfig{Mode: "server"}, "certificate and key are required"},
		{"bad content", config.TLSConfig{Mode: "server", CertContent: "x", KeyContent: "y"}, "from content"},
		{"missing files", config.TLSConfig{Mode: "mutual", CertFile: "/nope/cert.pem", KeyFile: "/nope/key.pem"}, "from files"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, func(c *ServerConfig) { c.TLSConfig = tt.tls })
			httpServer := ts.setupHTTPServer()
			err := ts.configureTLS(httpServer)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Nil(t, httpServer.TLSConfig)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestClientAuthPolicy(t *testing.T) {
	s := &Server{}
	for policy, want := range map[string]string{
		"request": "RequestClientCert",
		"verify":  "VerifyClientCertIfGiven",
		"":        "RequireAndVerifyClientCert",
		"require": "RequireAndVerifyClientCert",
	} {
		s.TLSConfig.ClientAuthPolicy = policy
		assert.Equal(t, want, s.getClientAuthPolicy().String(), policy)
	}
}
