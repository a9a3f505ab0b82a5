package provider

import (
	"context"
	"fmt"

	"github.com/teilomillet/gollm"

	"github.com/teilomillet/studyscribe/config"
)

// GollmBackend reaches any provider gollm supports (openai, ollama, groq...).
// gollm has no streaming call, so Stream yields the whole reply as one chunk.
type GollmBackend struct {
	name string
	llm  gollm.LLM
}

// NewGollmBackend builds a gollm client from the llm config section.
func NewGollmBackend(cfg config.LLMConfig) (*GollmBackend, error) {
	opts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(cfg.Model),
		gollm.SetMaxRetries(0),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}
	if cfg.MaxOutputTokens > 0 {
		opts = append(opts, gollm.SetMaxTokens(cfg.MaxOutputTokens))
	}
	if cfg.Temperature > 0 {
		opts = append(opts, gollm.SetTemperature(cfg.Temperature))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, fmt.Errorf("create gollm %s client: %w", cfg.Provider, err)
	}
	if cfg.Endpoint != "" {
		llm.SetEndpoint(cfg.Endpoint)
	}
	return NewGollmBackendWithLLM(cfg.Provider, llm), nil
}

// NewGollmBackendWithLLM wraps an existing gollm.LLM.
func NewGollmBackendWithLLM(name string, llm gollm.LLM) *GollmBackend {
	return &GollmBackend{name: name, llm: llm}
}

func (g *GollmBackend) Name() string { return g.name }

// Generate sends the system instruction as a system message ahead of the prompt.
func (g *GollmBackend) Generate(ctx context.Context, prompt, system string) (string, error) {
	p := &gollm.Prompt{}
	if system != "" {
		p.Messages = append(p.Messages, gollm.PromptMessage{Role: "system", Content: system})
	}
	p.Messages = append(p.Messages, gollm.PromptMessage{Role: "user", Content: prompt})

	return g.llm.Generate(ctx, p)
}

func (g *GollmBackend) Stream(ctx context.Context, prompt, system string) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 1)
	go func() {
		defer close(out)
		text, err := g.Generate(ctx, prompt, system)
		if err != nil {
			send(ctx, out, StreamChunk{Err: err})
			return
		}
		if text != "" {
			send(ctx, out, StreamChunk{Text: text})
		}
	}()
	return out, nil
}
