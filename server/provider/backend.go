// Package provider adapts hosted LLM SDKs to a single prompt-in, text-out
// contract and guards every call with a timeout, a circuit breaker,
// tracing and metrics.
package provider

import (
	"context"
)

// StreamChunk is one incremental piece of generated text. A stream ends
// either by closing with no error chunk, or with exactly one chunk whose
// Err is set followed by close.
type StreamChunk struct {
	Text string
	Err  error
}

// Backend is one concrete LLM SDK adapter. Implementations must stop their
// stream goroutine when ctx is done.
type Backend interface {
	Name() string
	Generate(ctx context.Context, prompt, system string) (string, error)
	Stream(ctx context.Context, prompt, system string) (<-chan StreamChunk, error)
}

// Invoker is what the processing layer depends on. *Manager implements it.
type Invoker interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
	Stream(ctx context.Context, prompt, system string) (<-chan StreamChunk, error)
}

// send delivers c unless ctx is done first.
func send(ctx context.Context, out chan<- StreamChunk, c StreamChunk) bool {
	select {
	case out <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
