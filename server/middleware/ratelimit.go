package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/time/rate"

	"github.com/teilomillet/studyscribe/config"
	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server/metrics"
)

// RateLimiter keeps one token bucket per client IP.
type RateLimiter struct {
	cfg      config.RateLimitConfig
	metrics  *metrics.Metrics
	mu       sync.Mutex
	visitors map[string]*rate.Limiter
}

// NewRateLimiter creates a limiter. m may be nil.
func NewRateLimiter(cfg config.RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	return &RateLimiter{
		cfg:      cfg,
		metrics:  m,
		visitors: make(map[string]*rate.Limiter),
	}
}

func (l *RateLimiter) getOrCreate(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, exists := l.visitors[ip]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
		l.visitors[ip] = limiter
	}
	return limiter
}

// Reset forgets every client bucket.
func (l *RateLimiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visitors = make(map[string]*rate.Limiter)
}

// Handler rejects requests over the client's budget with a 429.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if l.getOrCreate(ip).Allow() {
			next.ServeHTTP(w, r)
			return
		}

		if l.metrics != nil {
			l.metrics.RateLimitHits.WithLabelValues(ip).Inc()
		}
		retryAfter := l.retryAfterSeconds()
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		errors.WriteError(w, errors.NewRateLimitError(GetRequestID(r.Context()), retryAfter))
	})
}

func (l *RateLimiter) retryAfterSeconds() int {
	if l.cfg.RequestsPerSecond <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(1/l.cfg.RequestsPerSecond)))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
