// Package config provides configuration management for the studyscribe server.
// It covers the HTTP server, the LLM backend, generation limits, traffic
// controls, logging, tracing and route definitions.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Supported backend names. Any other provider name is handed to gollm.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config represents the complete server configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	LLM            LLMConfig            `yaml:"llm"`
	Generation     GenerationConfig     `yaml:"generation"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	Auth           AuthConfig           `yaml:"auth"`
	Logging        LoggingConfig        `yaml:"logging"`
	Tracing        TracingConfig        `yaml:"tracing"`
	Routes         []RouteConfig        `yaml:"routes"`
}

// ServerConfig holds server-specific configuration for the HTTP server.
type ServerConfig struct {
	// Port specifies the HTTP server port (default: 8080)
	Port int `yaml:"port"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body (default: 30s)
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds the whole response. Chat streams run inside it,
	// so it must exceed generation.stream_timeout (default: 5m)
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// MaxHeaderBytes controls the maximum number of bytes the server will
	// read parsing the request header's keys and values (default: 1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// MaxBodyBytes caps request bodies on POST routes (default: 1MB)
	MaxBodyBytes int64 `yaml:"max_body_bytes"`

	// ShutdownTimeout specifies how long to wait for the server to shutdown
	// gracefully before forcing termination (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LLMConfig selects and parameterizes the model backend.
type LLMConfig struct {
	// Provider is "gemini", "anthropic", or any provider gollm understands
	// (e.g. "openai", "ollama", "groq")
	Provider string `yaml:"provider"`

	// Model is the name of the model to use
	Model string `yaml:"model"`

	// APIKey is the authentication key for the provider's API.
	// Falls back to GEMINI_API_KEY or ANTHROPIC_API_KEY when empty.
	APIKey string `yaml:"api_key"`

	// Endpoint overrides the provider base URL (optional)
	Endpoint string `yaml:"endpoint"`

	// MaxOutputTokens caps generated tokens per call
	MaxOutputTokens int `yaml:"max_output_tokens"`

	// Temperature is the sampling temperature, between 0 and 2
	Temperature float64 `yaml:"temperature"`
}

// GenerationConfig controls how model calls are bounded and softened.
type GenerationConfig struct {
	// Timeout bounds a single batch generation
	Timeout time.Duration `yaml:"timeout"`

	// StreamTimeout bounds a whole chat stream
	StreamTimeout time.Duration `yaml:"stream_timeout"`

	// FallbackMessage is returned in place of model output when a batch
	// transform fails upstream
	FallbackMessage string `yaml:"fallback_message"`

	// MaxContentTokens rejects request content above this size (0 disables)
	MaxContentTokens int `yaml:"max_content_tokens"`

	// TokenEncoding names the tiktoken encoding used for counting
	TokenEncoding string `yaml:"token_encoding"`

	// Deduplicate collapses identical concurrent batch calls into one
	Deduplicate bool `yaml:"deduplicate"`
}

// CircuitBreakerConfig configures the breaker guarding the backend.
type CircuitBreakerConfig struct {
	// MaxRequests is maximum number of requests allowed to pass through when in half-open state
	MaxRequests uint32 `yaml:"max_requests"`

	// Interval is the cyclic period of the closed state for the circuit breaker
	Interval time.Duration `yaml:"interval"`

	// Timeout is the period of the open state until it becomes half-open
	Timeout time.Duration `yaml:"timeout"`

	// FailureThreshold is the number of consecutive failures needed to trip the circuit
	FailureThreshold uint32 `yaml:"failure_threshold"`
}

// RateLimitConfig configures the per-client token bucket.
type RateLimitConfig struct {
	// RequestsPerSecond is the steady refill rate per client IP
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the bucket size
	Burst int `yaml:"burst"`
}

// AuthConfig lists the API keys accepted by the auth middleware.
// An empty list disables authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	// Level sets logging verbosity: debug, info, warn, error
	Level string `yaml:"level"`

	// Format specifies log output format: json or text
	Format string `yaml:"format"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Exporter is "stdout" or "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP/gRPC collector address
	Endpoint string `yaml:"endpoint"`

	ServiceName string `yaml:"service_name"`
}

// RouteConfig holds route-specific configuration.
type RouteConfig struct {
	// Path is the URL path to match
	Path string `yaml:"path"`

	// Handler specifies which handler to use for this route
	Handler string `yaml:"handler"`

	// Version prefixes Path when set (e.g., "v1" mounts /v1/transform)
	Version string `yaml:"version"`

	// Methods specifies the allowed HTTP methods for this route
	Methods []string `yaml:"methods"`

	// Headers specifies the required headers for this route
	Headers map[string]string `yaml:"headers,omitempty"`

	// Middleware specifies the route-specific middleware
	Middleware []string `yaml:"middleware,omitempty"`
}

// DefaultFallbackMessage is the apologetic text of a softened transform.
const DefaultFallbackMessage = "Sorry, I couldn't generate a response right now. Please try again in a moment."

// DefaultConfig returns a configuration that passes Validate once a
// provider API key is supplied.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    5 * time.Minute,
			MaxHeaderBytes:  1 << 20,
			MaxBodyBytes:    1 << 20,
			ShutdownTimeout: 30 * time.Second,
		},

		LLM: LLMConfig{
			Provider:        ProviderGemini,
			Model:           "gemini-2.0-flash",
			MaxOutputTokens: 2048,
			Temperature:     0.7,
		},

		Generation: GenerationConfig{
			Timeout:          60 * time.Second,
			StreamTimeout:    3 * time.Minute,
			FallbackMessage:  DefaultFallbackMessage,
			MaxContentTokens: 100000,
			TokenEncoding:    "cl100k_base",
			Deduplicate:      true,
		},

		CircuitBreaker: CircuitBreakerConfig{
			MaxRequests:      1,
			Interval:         30 * time.Second,
			Timeout:          10 * time.Second,
			FailureThreshold: 5,
		},

		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			Burst:             10,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},

		Tracing: TracingConfig{
			Enabled:     false,
			Exporter:    "stdout",
			ServiceName: "studyscribe",
		},

		Routes: DefaultRoutes(),
	}
}

// DefaultRoutes returns the standard route table.
func DefaultRoutes() []RouteConfig {
	return []RouteConfig{
		{
			Path:       "/transform",
			Handler:    "transform",
			Version:    "v1",
			Methods:    []string{"POST"},
			Headers:    map[string]string{"Content-Type": "application/json"},
			Middleware: []string{"auth", "ratelimit"},
		},
		{
			Path:       "/chat",
			Handler:    "chat",
			Version:    "v1",
			Methods:    []string{"POST"},
			Headers:    map[string]string{"Content-Type": "application/json"},
			Middleware: []string{"auth", "ratelimit"},
		},
		{
			Path:       "/exam",
			Handler:    "exam",
			Version:    "v1",
			Methods:    []string{"POST"},
			Headers:    map[string]string{"Content-Type": "application/json"},
			Middleware: []string{"auth", "ratelimit"},
		},
		{
			Path:    "/health",
			Handler: "health",
			Methods: []string{"GET"},
		},
		{
			Path:    "/metrics",
			Handler: "metrics",
			Methods: []string{"GET"},
		},
	}
}

// LoadFile loads configuration from a YAML file
func LoadFile(filename string) (*Config, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// expandEnvVars resolves ${VAR} and ${VAR:-default} references. A default
// applies when the variable is unset or empty. Nested references produced
// by an expansion are resolved until the string stops changing.
func expandEnvVars(s string) (string, error) {
	if strings.Count(s, "${") > strings.Count(s, "}") {
		return "", fmt.Errorf("invalid syntax: unterminated variable reference")
	}

	result := os.Expand(s, func(key string) string {
		if i := strings.Index(key, ":-"); i >= 0 {
			if val := os.Getenv(key[:i]); val != "" {
				return val
			}
			return key[i+2:]
		}
		return os.Getenv(key)
	})

	prev := ""
	for prev != result {
		prev = result
		result = os.Expand(result, os.Getenv)
	}

	return result, nil
}

// Load loads configuration from an io.Reader
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expandedData, err := expandEnvVars(string(data))
	if err != nil {
		return nil, fmt.Errorf("expand environment variables: %w", err)
	}

	// Start with defaults
	config := DefaultConfig()

	dec := yaml.NewDecoder(strings.NewReader(expandedData))
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	config.applyKeyFallback()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// applyKeyFallback fills an empty API key from the provider's conventional
// environment variable.
func (c *Config) applyKeyFallback() {
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case ProviderGemini:
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	case ProviderAnthropic:
		c.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("negative read timeout: %v", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout < 0 {
		return fmt.Errorf("negative write timeout: %v", c.Server.WriteTimeout)
	}
	if c.Server.MaxHeaderBytes < 0 {
		return fmt.Errorf("negative max header bytes: %d", c.Server.MaxHeaderBytes)
	}
	if c.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("negative max body bytes: %d", c.Server.MaxBodyBytes)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("negative shutdown timeout: %v", c.Server.ShutdownTimeout)
	}

	// LLM validation
	if c.LLM.Provider == "" {
		return fmt.Errorf("empty LLM provider")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("empty LLM model")
	}
	if c.LLM.MaxOutputTokens < 0 {
		return fmt.Errorf("negative max output tokens: %d", c.LLM.MaxOutputTokens)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("temperature out of range [0,2]: %v", c.LLM.Temperature)
	}

	// Generation validation
	if c.Generation.Timeout <= 0 {
		return fmt.Errorf("generation timeout must be positive: %v", c.Generation.Timeout)
	}
	if c.Generation.StreamTimeout <= 0 {
		return fmt.Errorf("generation stream timeout must be positive: %v", c.Generation.StreamTimeout)
	}
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < c.Generation.StreamTimeout {
		return fmt.Errorf("write timeout %v shorter than stream timeout %v", c.Server.WriteTimeout, c.Generation.StreamTimeout)
	}
	if strings.TrimSpace(c.Generation.FallbackMessage) == "" {
		return fmt.Errorf("empty fallback message")
	}
	if c.Generation.MaxContentTokens < 0 {
		return fmt.Errorf("negative max content tokens: %d", c.Generation.MaxContentTokens)
	}

	// Circuit breaker validation
	if c.CircuitBreaker.FailureThreshold == 0 {
		return fmt.Errorf("circuit breaker failure threshold must be positive")
	}
	if c.CircuitBreaker.Timeout < 0 || c.CircuitBreaker.Interval < 0 {
		return fmt.Errorf("negative circuit breaker duration")
	}

	// Rate limit validation
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("negative rate limit settings")
	}

	// Logging validation
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Tracing validation
	if c.Tracing.Enabled {
		switch c.Tracing.Exporter {
		case "stdout":
		case "otlp":
			if c.Tracing.Endpoint == "" {
				return fmt.Errorf("otlp exporter requires an endpoint")
			}
		default:
			return fmt.Errorf("invalid tracing exporter: %s", c.Tracing.Exporter)
		}
	}

	// Route validation
	for i, route := range c.Routes {
		if route.Path == "" {
			return fmt.Errorf("empty path in route %d", i)
		}
		if route.Handler == "" {
			return fmt.Errorf("empty handler in route %d", i)
		}
	}

	return nil
}
