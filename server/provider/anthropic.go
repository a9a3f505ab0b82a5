package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/teilomillet/studyscribe/config"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicBackend calls the Messages API. SDK retries are disabled;
// this service does not retry model calls.
type AnthropicBackend struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

func NewAnthropicBackend(cfg config.LLMConfig) (*AnthropicBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrMissingAPIKey)
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	maxTokens := int64(cfg.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicBackend{
		client:      anthropic.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
	}, nil
}

func (a *AnthropicBackend) Name() string { return config.ProviderAnthropic }

func (a *AnthropicBackend) params(prompt, system string) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		MaxTokens: a.maxTokens,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if a.temperature > 0 {
		params.Temperature = param.NewOpt(a.temperature)
	}
	return params
}

func (a *AnthropicBackend) Generate(ctx context.Context, prompt, system string) (string, error) {
	msg, err := a.client.Messages.New(ctx, a.params(prompt, system))
	if err != nil {
		return "", fmt.Errorf("anthropic generate: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String(), nil
}

func (a *AnthropicBackend) Stream(ctx context.Context, prompt, system string) (<-chan StreamChunk, error) {
	stream := a.client.Messages.NewStreaming(ctx, a.params(prompt, system))
	out := make(chan StreamChunk, 1)
	go func() {
		defer close(out)
		defer stream.Close()
		for stream.Next() {
			event := stream.Current()
			if event.Type != "content_block_delta" {
				continue
			}
			delta := event.AsContentBlockDelta()
			if delta.Delta.Type != "text_delta" || delta.Delta.Text == "" {
				continue
			}
			if !send(ctx, out, StreamChunk{Text: delta.Delta.Text}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(ctx, out, StreamChunk{Err: fmt.Errorf("anthropic stream: %w", err)})
		}
	}()
	return out, nil
}
