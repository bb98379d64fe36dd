package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-monolith/mono"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, ":3000", cfg.Addr())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 5000, cfg.MaxMessageLength)
	assert.Equal(t, []string{"a great big tree"}, cfg.Triggers())
	assert.False(t, cfg.AssistEnabled(), "no api key configured")
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("GEMINI_API", "key")
	t.Setenv("ASSIST_TRIGGERS", " a great big tree , , describe this ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, []string{"a great big tree", "describe this"}, cfg.Triggers())
	assert.True(t, cfg.AssistEnabled())
}

func TestLoad_FromDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PUBLIC_DIR=/srv/www\n"), 0o600))
	t.Setenv("PUBLIC_DIR", "")
	require.NoError(t, os.Unsetenv("PUBLIC_DIR"))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/www", cfg.PublicDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"port out of range", "PORT", "70000"},
		{"port not a number", "PORT", "http"},
		{"unknown log level", "LOG_LEVEL", "verbose"},
		{"zero queue", "SEND_QUEUE_SIZE", "0"},
		{"bad base url", "GEMINI_BASE_URL", "not a url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_MonoLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  mono.LogLevel
	}{
		{"debug", mono.LogLevelDebug},
		{"info", mono.LogLevelInfo},
		{"warn", mono.LogLevelWarn},
		{"error", mono.LogLevelError},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.level)
			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.MonoLogLevel())
		})
	}
}
