package provider

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/teilomillet/studyscribe/config"
)

// GeminiBackend calls the Gemini API through google.golang.org/genai.
type GeminiBackend struct {
	client          *genai.Client
	model           string
	temperature     float64
	maxOutputTokens int
}

// NewGeminiBackend creates a Gemini API client. Endpoint, when set,
// replaces the public base URL.
func NewGeminiBackend(ctx context.Context, cfg config.LLMConfig) (*GeminiBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiBackend{
		client:          client,
		model:           cfg.Model,
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
	}, nil
}

func (g *GeminiBackend) Name() string { return config.ProviderGemini }

func (g *GeminiBackend) contentConfig(system string) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if g.temperature > 0 {
		gc.Temperature = genai.Ptr(float32(g.temperature))
	}
	if g.maxOutputTokens > 0 {
		gc.MaxOutputTokens = int32(g.maxOutputTokens)
	}
	return gc
}

func (g *GeminiBackend) Generate(ctx context.Context, prompt, system string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.contentConfig(system))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return resp.Text(), nil
}

func (g *GeminiBackend) Stream(ctx context.Context, prompt, system string) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk, 1)
	go func() {
		defer close(out)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.contentConfig(system)) {
			if err != nil {
				send(ctx, out, StreamChunk{Err: fmt.Errorf("gemini stream: %w", err)})
				return
			}
			if text := resp.Text(); text != "" {
				if !send(ctx, out, StreamChunk{Text: text}) {
					return
				}
			}
		}
	}()
	return out, nil
}
