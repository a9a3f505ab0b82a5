package provider

import (
	"context"

	"github.com/teilomillet/studyscribe/config"
)

// NewBackend selects the backend named by cfg.Provider. Names other than
// gemini and anthropic are passed to gollm.
func NewBackend(ctx context.Context, cfg config.LLMConfig) (Backend, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return NewGeminiBackend(ctx, cfg)
	case config.ProviderAnthropic:
		return NewAnthropicBackend(cfg)
	default:
		return NewGollmBackend(cfg)
	}
}
