package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/teilomillet/studyscribe/config"
	scribeerrors "github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/circuitbreaker"
)

const (
	modeGenerate = "generate"
	modeStream   = "stream"
)

// Manager guards one Backend. Every failure it returns is an
// UpstreamModelError wrapping the cause. It never retries.
type Manager struct {
	backend Backend
	breaker *circuitbreaker.CircuitBreaker
	group   singleflight.Group
	cfg     config.GenerationConfig
	logger  *zap.Logger
	tracer  trace.Tracer
	metrics *managerMetrics
}

// NewManager creates a manager around backend.
func NewManager(backend Backend, cfg *config.Config, logger *zap.Logger, registry *prometheus.Registry) (*Manager, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		backend: backend,
		breaker: circuitbreaker.NewCircuitBreaker(backend.Name(), cfg.CircuitBreaker, logger, registry),
		cfg:     cfg.Generation,
		logger:  logger.With(zap.String("backend", backend.Name())),
		tracer:  otel.Tracer("github.com/teilomillet/studyscribe/server/provider"),
		metrics: newManagerMetrics(registry),
	}, nil
}

// BackendName returns the guarded backend's name.
func (m *Manager) BackendName() string { return m.backend.Name() }

// Breaker exposes the circuit breaker for health reporting.
func (m *Manager) Breaker() *circuitbreaker.CircuitBreaker { return m.breaker }

// Generate returns the full model reply. Identical concurrent calls share
// one upstream request when de-duplication is enabled; each caller still
// honours its own ctx.
func (m *Manager) Generate(ctx context.Context, prompt, system string) (string, error) {
	if !m.cfg.Deduplicate {
		return m.generate(ctx, prompt, system)
	}

	key := requestKey(prompt, system)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		// Detached so one caller leaving does not fail the others; the
		// generation timeout still bounds it.
		return m.generate(context.WithoutCancel(ctx), prompt, system)
	})

	select {
	case res := <-ch:
		if res.Shared {
			m.metrics.deduplicatedRequests.Inc()
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", scribeerrors.NewUpstreamModelError(m.backend.Name(), ctx.Err())
	}
}

func (m *Manager) generate(ctx context.Context, prompt, system string) (string, error) {
	name := m.backend.Name()
	ctx, span := m.tracer.Start(ctx, "provider.Generate",
		trace.WithAttributes(attribute.String("llm.backend", name), attribute.Int("llm.prompt_length", len(prompt))))
	defer span.End()

	done, err := m.breaker.Allow()
	if err != nil {
		return "", m.fail(span, modeGenerate, err)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := m.backend.Generate(ctx, prompt, system)
	m.metrics.requestLatency.WithLabelValues(name, modeGenerate).Observe(time.Since(start).Seconds())
	done(err)
	if err != nil {
		return "", m.fail(span, modeGenerate, err)
	}

	span.SetAttributes(attribute.Int("llm.response_length", len(text)))
	span.SetStatus(codes.Ok, "")
	return text, nil
}

// Stream relays backend chunks in order. The returned channel is closed when
// the backend finishes, fails, times out or ctx is cancelled; a failure is
// delivered as one terminal chunk carrying an UpstreamModelError.
func (m *Manager) Stream(ctx context.Context, prompt, system string) (<-chan StreamChunk, error) {
	name := m.backend.Name()
	sctx, span := m.tracer.Start(ctx, "provider.Stream",
		trace.WithAttributes(attribute.String("llm.backend", name), attribute.Int("llm.prompt_length", len(prompt))))

	done, err := m.breaker.Allow()
	if err != nil {
		err = m.fail(span, modeStream, err)
		span.End()
		return nil, err
	}

	sctx, cancel := context.WithTimeout(sctx, m.cfg.StreamTimeout)
	start := time.Now()
	src, err := m.backend.Stream(sctx, prompt, system)
	if err != nil {
		cancel()
		done(err)
		err = m.fail(span, modeStream, err)
		span.End()
		return nil, err
	}

	out := make(chan StreamChunk, 1)
	go func() {
		var streamErr error
		chunks := 0
		defer func() {
			cancel()
			done(streamErr)
			m.metrics.requestLatency.WithLabelValues(name, modeStream).Observe(time.Since(start).Seconds())
			span.SetAttributes(attribute.Int("llm.chunks", chunks))
			if streamErr == nil {
				span.SetStatus(codes.Ok, "")
			}
			span.End()
			close(out)
		}()

		for chunk := range src {
			if chunk.Err != nil {
				streamErr = chunk.Err
				send(ctx, out, StreamChunk{Err: m.fail(span, modeStream, chunk.Err)})
				return
			}
			if !send(ctx, out, chunk) {
				streamErr = ctx.Err()
				return
			}
			chunks++
		}

		// A backend may close silently when its context ends.
		if err := sctx.Err(); err != nil {
			streamErr = err
			if ctx.Err() == nil {
				send(ctx, out, StreamChunk{Err: m.fail(span, modeStream, err)})
			}
		}
	}()
	return out, nil
}

// fail records err and wraps it for callers.
func (m *Manager) fail(span trace.Span, mode string, err error) *scribeerrors.ScribeError {
	name := m.backend.Name()
	if !errors.Is(err, context.Canceled) {
		m.metrics.upstreamErrors.WithLabelValues(name, mode).Inc()
		m.logger.Warn("model call failed", zap.String("mode", mode), zap.Error(err))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return scribeerrors.NewUpstreamModelError(name, err)
}

// requestKey identifies a batch call for de-duplication.
func requestKey(prompt, system string) string {
	h := sha256.New()
	h.Write([]byte(system))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	return hex.EncodeToString(h.Sum(nil))
}
