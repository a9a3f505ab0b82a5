package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidConfig(t *testing.T) {
	yamlConfig := `
server:
  port: 9090
  read_timeout: 45s
  write_timeout: 10m
  max_body_bytes: 65536
  shutdown_timeout: 45s

llm:
  provider: anthropic
  model: claude-3-5-haiku-latest
  api_key: sk-test
  max_output_tokens: 1024
  temperature: 0.2

generation:
  timeout: 20s
  stream_timeout: 2m
  fallback_message: "Try again later."
  deduplicate: false

auth:
  api_keys: [key-a, key-b]

logging:
  level: debug
  format: text

routes:
  - path: /transform
    handler: transform
    version: v1
  - path: /health
    handler: health
`

	config, err := Load(strings.NewReader(yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, 45*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, int64(65536), config.Server.MaxBodyBytes)

	assert.Equal(t, ProviderAnthropic, config.LLM.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", config.LLM.Model)
	assert.Equal(t, 1024, config.LLM.MaxOutputTokens)
	assert.InDelta(t, 0.2, config.LLM.Temperature, 1e-9)

	assert.Equal(t, 20*time.Second, config.Generation.Timeout)
	assert.Equal(t, 2*time.Minute, config.Generation.StreamTimeout)
	assert.Equal(t, "Try again later.", config.Generation.FallbackMessage)
	assert.False(t, config.Generation.Deduplicate)
	// untouched keys keep their defaults
	assert.Equal(t, "cl100k_base", config.Generation.TokenEncoding)

	assert.Equal(t, []string{"key-a", "key-b"}, config.Auth.APIKeys)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Len(t, config.Routes, 2)
}

func TestLoadEmptyDocumentUsesDefaults(t *testing.T) {
	config, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server, config.Server)
	assert.Len(t, config.Routes, 5)
}

func TestLoadInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   string
	}{
		{
			name:   "invalid port",
			config: "server:\n  port: -1\n",
			want:   "invalid port",
		},
		{
			name:   "invalid log level",
			config: "logging:\n  level: invalid\n",
			want:   "invalid log level",
		},
		{
			name:   "empty provider",
			config: "llm:\n  provider: \"\"\n",
			want:   "empty LLM provider",
		},
		{
			name:   "temperature out of range",
			config: "llm:\n  temperature: 3\n",
			want:   "temperature out of range",
		},
		{
			name:   "zero generation timeout",
			config: "generation:\n  timeout: 0s\n",
			want:   "generation timeout must be positive",
		},
		{
			name:   "write timeout shorter than stream",
			config: "server:\n  write_timeout: 10s\ngeneration:\n  stream_timeout: 1m\n",
			want:   "shorter than stream timeout",
		},
		{
			name:   "blank fallback message",
			config: "generation:\n  fallback_message: \"  \"\n",
			want:   "empty fallback message",
		},
		{
			name:   "otlp without endpoint",
			config: "tracing:\n  enabled: true\n  exporter: otlp\n",
			want:   "requires an endpoint",
		},
		{
			name:   "unknown exporter",
			config: "tracing:\n  enabled: true\n  exporter: zipkin\n",
			want:   "invalid tracing exporter",
		},
		{
			name:   "empty route path",
			config: "routes:\n  - path: \"\"\n    handler: test\n",
			want:   "empty path",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.config))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, ProviderGemini, config.LLM.Provider)
	assert.Equal(t, DefaultFallbackMessage, config.Generation.FallbackMessage)
	assert.True(t, config.Generation.Deduplicate)
	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.False(t, config.Tracing.Enabled)
	assert.Empty(t, config.Auth.APIKeys)

	handlers := make([]string, 0, len(config.Routes))
	for _, r := range config.Routes {
		handlers = append(handlers, r.Handler)
	}
	assert.Equal(t, []string{"transform", "chat", "exam", "health", "metrics"}, handlers)
	assert.NoError(t, config.Validate())
}
