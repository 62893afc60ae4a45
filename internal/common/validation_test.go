package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	tests := []struct {
		name      string
		format    string
		supported []string
		wantErr   string
	}{
		{"json", "json", supported, ""},
		{"text", "text", supported, ""},
		{"markdown", "markdown", supported, ""},
		{"xml rejected", "xml", supported, "unsupported output format 'xml'. Supported formats: [json text markdown]"},
		{"case sensitive", "JSON", supported, "unsupported output format 'JSON'"},
		{"empty format", "", supported, "unsupported output format ''"},
		{"no restrictions", "anything", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supported)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveOutputFormat(t *testing.T) {
	supported := []string{"json", "text", "markdown"}

	format, err := ResolveOutputFormat("", "text", supported)
	require.NoError(t, err)
	assert.Equal(t, "text", format)

	format, err = ResolveOutputFormat("", "", supported)
	require.NoError(t, err)
	assert.Equal(t, "json", format)

	format, err = ResolveOutputFormat("markdown", "text", supported)
	require.NoError(t, err)
	assert.Equal(t, "markdown", format)

	_, err = ResolveOutputFormat("yaml", "text", supported)
	assert.Error(t, err)
}
