package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.MaxFiles)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxFileBytes)
	assert.Equal(t, 120*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 30*time.Second, cfg.ChatTimeout)
	assert.Equal(t, 10, cfg.ChatContextWindow)
	assert.Equal(t, cfg.ConverterURL, cfg.ChatURL)
	assert.Equal(t, os.TempDir(), cfg.TempDir)
	assert.True(t, cfg.IsLocalStorage())
	assert.False(t, cfg.UsesOpenAIChat())
	assert.Equal(t, cfg.DatabaseURL, cfg.GetDatabaseReadDSN())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SCAN_MAX_FILES", "3")
	t.Setenv("CONVERTER_URL", "http://converter:9000/")
	t.Setenv("CHAT_URL", "http://chat:9100")
	t.Setenv("SCAN_DATABASE_READ1_URL", "postgres://replica/scan")
	t.Setenv("SCAN_API_PORT", "8088")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.MaxFiles)
	assert.Equal(t, "http://converter:9000", cfg.ConverterURL)
	assert.Equal(t, "http://chat:9100", cfg.ChatURL)
	assert.Equal(t, "postgres://replica/scan", cfg.GetDatabaseReadDSN())
	assert.Equal(t, ":8088", cfg.Addr())
}

func TestLoadRejectsIncompleteCombinations(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"auth without issuer", map[string]string{"AUTH_ENABLED": "true", "AUTH_JWKS_URL": "http://kc/certs"}},
		{"auth without jwks", map[string]string{"AUTH_ENABLED": "true", "AUTH_ISSUER": "http://kc"}},
		{"s3 without bucket", map[string]string{"SCAN_STORAGE_BACKEND": "s3"}},
		{"openai without key", map[string]string{"CHAT_PROVIDER": "openai"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
