package processing

import (
	"context"
	"strings"

	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/metrics"
	"github.com/teilomillet/studyscribe/server/prompt"
	"github.com/teilomillet/studyscribe/server/provider"
)

type chatMessages struct {
	Messages []ChatMessage `json:"messages" validate:"required,min=1,dive"`
}

// StreamChat answers the most recent user message with the chat persona.
// Earlier turns and system messages are not sent to the model.
//
// Chunks arrive in model order. An upstream failure during the stream
// ends it with a single error chunk; no placeholder text is produced.
func (d *Dispatcher) StreamChat(ctx context.Context, messages []ChatMessage) (<-chan provider.StreamChunk, error) {
	action := string(prompt.ActionChat)
	content, err := d.lastUserMessage(messages)
	if err != nil {
		d.observe(action, metrics.OutcomeInvalid)
		return nil, err
	}

	p, err := prompt.Build(prompt.ActionChat, content, prompt.Options{})
	if err != nil {
		d.observe(action, metrics.OutcomeFailed)
		return nil, errors.NewInternalError("", err)
	}

	src, err := d.invoker.Stream(ctx, p.Text, p.System)
	if err != nil {
		d.observe(action, metrics.OutcomeFailed)
		return nil, asUpstream(err)
	}

	out := make(chan provider.StreamChunk, 1)
	go func() {
		defer close(out)
		for chunk := range src {
			if chunk.Err != nil {
				d.observe(action, metrics.OutcomeFailed)
				relay(ctx, out, provider.StreamChunk{Err: asUpstream(chunk.Err)})
				return
			}
			if !relay(ctx, out, chunk) {
				return
			}
			if d.metrics != nil {
				d.metrics.StreamChunks.Inc()
			}
		}
		d.observe(action, metrics.OutcomeOK)
	}()
	return out, nil
}

func (d *Dispatcher) lastUserMessage(messages []ChatMessage) (string, error) {
	if err := d.validator.Struct(chatMessages{Messages: messages}); err != nil {
		return "", err
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "user" {
			continue
		}
		if strings.TrimSpace(messages[i].Content) == "" {
			return "", errors.NewInvalidRequestError("the last user message is empty", map[string]interface{}{
				"field": "messages",
			})
		}
		if err := d.validator.Content("messages", messages[i].Content); err != nil {
			return "", err
		}
		return messages[i].Content, nil
	}
	return "", errors.NewInvalidRequestError("no user message to answer", map[string]interface{}{
		"field": "messages",
	})
}

func relay(ctx context.Context, out chan<- provider.StreamChunk, c provider.StreamChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
