package provider_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teilomillet/studyscribe/config"
	scribeerrors "github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/circuitbreaker"
	"github.com/teilomillet/studyscribe/server/mocks"
	"github.com/teilomillet/studyscribe/server/provider"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Generation.Timeout = time.Second
	cfg.Generation.StreamTimeout = time.Second
	cfg.Generation.Deduplicate = false
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		FailureThreshold: 2,
	}
	return cfg
}

func newManager(t *testing.T, b provider.Backend, cfg *config.Config) *provider.Manager {
	t.Helper()
	m, err := provider.NewManager(b, cfg, zaptest.NewLogger(t), prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func collect(t *testing.T, ch <-chan provider.StreamChunk) (texts []string, errs []error) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case c, ok := <-ch:
			if !ok {
				return texts, errs
			}
			if c.Err != nil {
				errs = append(errs, c.Err)
			} else {
				texts = append(texts, c.Text)
			}
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func TestNewManagerRequiresBackend(t *testing.T) {
	_, err := provider.NewManager(nil, testConfig(), nil, nil)
	assert.ErrorIs(t, err, provider.ErrNilBackend)
}

func TestManagerGenerate(t *testing.T) {
	stub := mocks.NewStubInvoker("a summary")
	m := newManager(t, stub, testConfig())

	text, err := m.Generate(context.Background(), "prompt", "system")
	require.NoError(t, err)
	assert.Equal(t, "a summary", text)

	calls := stub.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, mocks.Call{Mode: "generate", Prompt: "prompt", System: "system"}, calls[0])
}

func TestManagerGenerateWrapsFailure(t *testing.T) {
	cause := errors.New("503 overloaded")
	m := newManager(t, mocks.NewFailingInvoker(cause), testConfig())

	text, err := m.Generate(context.Background(), "p", "s")
	assert.Empty(t, text)
	assert.ErrorIs(t, err, scribeerrors.ErrUpstreamModel)
	assert.ErrorIs(t, err, cause)
}

func TestManagerGenerateTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Generation.Timeout = 20 * time.Millisecond
	stub := &mocks.StubInvoker{
		GenerateFunc: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	m := newManager(t, stub, cfg)

	start := time.Now()
	_, err := m.Generate(context.Background(), "slow", "")
	assert.ErrorIs(t, err, scribeerrors.ErrUpstreamModel)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestManagerBreakerFailsFast(t *testing.T) {
	stub := mocks.NewFailingInvoker(errors.New("down"))
	m := newManager(t, stub, testConfig())

	for i := 0; i < 2; i++ {
		_, err := m.Generate(context.Background(), "p", "")
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, m.Breaker().State())

	_, err := m.Generate(context.Background(), "p", "")
	assert.ErrorIs(t, err, scribeerrors.ErrUpstreamModel)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, stub.CallCount(), "open breaker must not reach the backend")

	_, err = m.Stream(context.Background(), "p", "")
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

func TestManagerCallerCancellationDoesNotTrip(t *testing.T) {
	stub := &mocks.StubInvoker{
		GenerateFunc: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}
	m := newManager(t, stub, testConfig())

	for i := 0; i < 3; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.Generate(ctx, "p", "")
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, m.Breaker().State())
}

func TestManagerDeduplicatesIdenticalCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Generation.Deduplicate = true

	var calls atomic.Int32
	release := make(chan struct{})
	stub := &mocks.StubInvoker{
		GenerateFunc: func(ctx context.Context, prompt, _ string) (string, error) {
			calls.Add(1)
			<-release
			return "shared " + prompt, nil
		},
	}
	m := newManager(t, stub, cfg)

	const n = 5
	var wg sync.WaitGroup
	results := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Generate(context.Background(), "same", "sys")
		}(i)
	}

	// Let every goroutine join the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "shared same", results[i])
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestManagerDoesNotDeduplicateDistinctCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Generation.Deduplicate = true
	stub := &mocks.StubInvoker{} // echoes the prompt
	m := newManager(t, stub, cfg)

	var wg sync.WaitGroup
	for _, p := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			got, err := m.Generate(context.Background(), p, "")
			assert.NoError(t, err)
			assert.Equal(t, p, got)
		}(p)
	}
	wg.Wait()
	assert.Equal(t, 3, stub.CallCount())
}

func TestManagerStreamRelaysInOrder(t *testing.T) {
	stub := &mocks.StubInvoker{
		StreamFunc: func(context.Context, string, string) (<-chan provider.StreamChunk, error) {
			return mocks.TextChunks("Photo", "synthesis ", "is..."), nil
		},
	}
	m := newManager(t, stub, testConfig())

	ch, err := m.Stream(context.Background(), "Explain photosynthesis", "persona")
	require.NoError(t, err)

	texts, errs := collect(t, ch)
	assert.Empty(t, errs)
	assert.Equal(t, []string{"Photo", "synthesis ", "is..."}, texts)
}

func TestManagerStreamTerminalError(t *testing.T) {
	cause := errors.New("connection reset")
	stub := &mocks.StubInvoker{
		StreamFunc: func(context.Context, string, string) (<-chan provider.StreamChunk, error) {
			return mocks.ChunkStream(
				provider.StreamChunk{Text: "partial"},
				provider.StreamChunk{Err: cause},
				provider.StreamChunk{Text: "never relayed"},
			), nil
		},
	}
	m := newManager(t, stub, testConfig())

	ch, err := m.Stream(context.Background(), "p", "")
	require.NoError(t, err)

	texts, errs := collect(t, ch)
	assert.Equal(t, []string{"partial"}, texts)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], scribeerrors.ErrUpstreamModel)
	assert.ErrorIs(t, errs[0], cause)
}

func TestManagerStreamStartFailure(t *testing.T) {
	cause := errors.New("dial failed")
	stub := &mocks.StubInvoker{
		StreamFunc: func(context.Context, string, string) (<-chan provider.StreamChunk, error) {
			return nil, cause
		},
	}
	m := newManager(t, stub, testConfig())

	ch, err := m.Stream(context.Background(), "p", "")
	assert.Nil(t, ch)
	assert.ErrorIs(t, err, scribeerrors.ErrUpstreamModel)
	assert.ErrorIs(t, err, cause)
}

func TestManagerStreamTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Generation.StreamTimeout = 30 * time.Millisecond
	stub := &mocks.StubInvoker{
		StreamFunc: func(ctx context.Context, _, _ string) (<-chan provider.StreamChunk, error) {
			out := make(chan provider.StreamChunk)
			go func() {
				defer close(out)
				select {
				case out <- provider.StreamChunk{Text: "first"}:
				case <-ctx.Done():
					return
				}
				<-ctx.Done() // then stall and close silently
			}()
			return out, nil
		},
	}
	m := newManager(t, stub, cfg)

	ch, err := m.Stream(context.Background(), "p", "")
	require.NoError(t, err)

	texts, errs := collect(t, ch)
	assert.Equal(t, []string{"first"}, texts)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.DeadlineExceeded)
}

func TestManagerStreamStopsWhenConsumerLeaves(t *testing.T) {
	stopped := make(chan struct{})
	stub := &mocks.StubInvoker{
		StreamFunc: func(ctx context.Context, _, _ string) (<-chan provider.StreamChunk, error) {
			out := make(chan provider.StreamChunk)
			go func() {
				defer close(stopped)
				defer close(out)
				for {
					select {
					case out <- provider.StreamChunk{Text: "tick"}:
					case <-ctx.Done():
						return
					}
				}
			}()
			return out, nil
		},
	}
	m := newManager(t, stub, testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := m.Stream(ctx, "p", "")
	require.NoError(t, err)

	first := <-ch
	assert.Equal(t, "tick", first.Text)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("producer goroutine leaked after consumer cancellation")
	}
	// The relay closes without delivering an error to a departed consumer.
	for range ch {
	}
	assert.Equal(t, gobreaker.StateClosed, m.Breaker().State())
}
