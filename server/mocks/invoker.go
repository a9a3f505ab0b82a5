package mocks

import (
	"context"
	"sync"

	"github.com/teilomillet/studyscribe/server/provider"
)

// Call is one recorded invocation.
type Call struct {
	Mode   string // "generate" or "stream"
	Prompt string
	System string
}

// StubInvoker is a scriptable provider.Backend and provider.Invoker that
// records what it was asked. With no funcs set, Generate echoes the prompt
// and Stream yields it as a single chunk.
type StubInvoker struct {
	NameValue    string
	GenerateFunc func(ctx context.Context, prompt, system string) (string, error)
	StreamFunc   func(ctx context.Context, prompt, system string) (<-chan provider.StreamChunk, error)

	mu    sync.Mutex
	calls []Call
}

var (
	_ provider.Backend = (*StubInvoker)(nil)
	_ provider.Invoker = (*StubInvoker)(nil)
)

// NewStubInvoker returns a stub whose Generate always returns text.
func NewStubInvoker(text string) *StubInvoker {
	return &StubInvoker{
		GenerateFunc: func(context.Context, string, string) (string, error) { return text, nil },
	}
}

// NewFailingInvoker returns a stub whose every call fails with err, both
// batch and streaming.
func NewFailingInvoker(err error) *StubInvoker {
	return &StubInvoker{
		GenerateFunc: func(context.Context, string, string) (string, error) { return "", err },
		StreamFunc: func(context.Context, string, string) (<-chan provider.StreamChunk, error) {
			return ChunkStream(provider.StreamChunk{Err: err}), nil
		},
	}
}

func (s *StubInvoker) Name() string {
	if s.NameValue == "" {
		return "stub"
	}
	return s.NameValue
}

func (s *StubInvoker) record(mode, prompt, system string) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Mode: mode, Prompt: prompt, System: system})
	s.mu.Unlock()
}

func (s *StubInvoker) Generate(ctx context.Context, prompt, system string) (string, error) {
	s.record("generate", prompt, system)
	if s.GenerateFunc != nil {
		return s.GenerateFunc(ctx, prompt, system)
	}
	return prompt, nil
}

func (s *StubInvoker) Stream(ctx context.Context, prompt, system string) (<-chan provider.StreamChunk, error) {
	s.record("stream", prompt, system)
	if s.StreamFunc != nil {
		return s.StreamFunc(ctx, prompt, system)
	}
	return ChunkStream(provider.StreamChunk{Text: prompt}), nil
}

// Calls returns a snapshot of recorded invocations.
func (s *StubInvoker) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of recorded invocations.
func (s *StubInvoker) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// ChunkStream returns a closed, pre-filled channel holding chunks.
func ChunkStream(chunks ...provider.StreamChunk) <-chan provider.StreamChunk {
	ch := make(chan provider.StreamChunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch
}

// TextChunks builds a clean stream of text chunks.
func TextChunks(texts ...string) <-chan provider.StreamChunk {
	chunks := make([]provider.StreamChunk, len(texts))
	for i, t := range texts {
		chunks[i] = provider.StreamChunk{Text: t}
	}
	return ChunkStream(chunks...)
}
