// Package server wires the studyscribe HTTP surface together and runs it.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teilomillet/studyscribe/config"
	"github.com/teilomillet/studyscribe/server/circuitbreaker"
	"github.com/teilomillet/studyscribe/server/handlers"
	"github.com/teilomillet/studyscribe/server/metrics"
	"github.com/teilomillet/studyscribe/server/middleware"
	"github.com/teilomillet/studyscribe/server/processing"
	"github.com/teilomillet/studyscribe/server/provider"
	"github.com/teilomillet/studyscribe/server/routing"
	"github.com/teilomillet/studyscribe/server/validation"
)

// Deps are the components the HTTP surface is built from. Breaker,
// Validator and Metrics may be nil.
type Deps struct {
	Config    *config.Config
	Invoker   provider.Invoker
	Backend   string
	Breaker   *circuitbreaker.CircuitBreaker
	Validator *validation.Validator
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// NewHandler builds the routed handler for d.Config.Routes.
func NewHandler(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m := d.Metrics
	if m == nil {
		m = metrics.NewMetrics()
	}

	dispatcher := processing.NewDispatcher(d.Invoker, d.Validator, d.Config.Generation, m, logger)

	handlerMap := map[string]http.Handler{
		"transform": handlers.NewTransformHandler(dispatcher, logger),
		"chat":      handlers.NewChatHandler(dispatcher, logger),
		"exam":      handlers.NewExamHandler(dispatcher, logger),
		"health":    handlers.NewHealthHandler(d.Backend, d.Breaker, logger),
		"metrics":   m.Handler(),
	}
	named := map[string]routing.Middleware{
		"auth":      middleware.Authentication(d.Config.Auth.APIKeys),
		"ratelimit": middleware.NewRateLimiter(d.Config.RateLimit, m).Handler,
	}

	return routing.NewRouter(d.Config, handlerMap, named, logger,
		middleware.Logging(logger),
		middleware.PrometheusMetrics(m),
	)
}

// Server represents the HTTP server
type Server struct {
	httpServer      *http.Server
	logger          *zap.Logger
	shutdownTimeout time.Duration
	wg              sync.WaitGroup
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig, handler http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:           fmt.Sprintf(":%d", cfg.Port),
			Handler:        handler,
			ReadTimeout:    cfg.ReadTimeout,
			WriteTimeout:   cfg.WriteTimeout,
			MaxHeaderBytes: cfg.MaxHeaderBytes,
		},
		logger:          logger,
		shutdownTimeout: cfg.ShutdownTimeout,
	}
}

// WatchLogLevel applies the logging level of every config the watcher
// publishes. The level is the only setting changed at runtime; the
// goroutine ends when the watcher closes its channel.
func (s *Server) WatchLogLevel(w config.Watcher, level zap.AtomicLevel) {
	updates := w.Subscribe()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for cfg := range updates {
			var lvl zapcore.Level
			if err := lvl.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
				s.logger.Warn("ignoring invalid log level", zap.String("level", cfg.Logging.Level))
				continue
			}
			if level.Level() != lvl {
				level.SetLevel(lvl)
				s.logger.Info("log level changed", zap.String("level", lvl.String()))
			}
		}
	}()
}

// Start starts the server and blocks until ctx is done or the listener
// fails. In-flight requests get the shutdown timeout to finish.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Server started", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		s.logger.Info("Shutting down server", zap.Duration("timeout", timeout))
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during server shutdown: %w", err)
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// Wait blocks until background watchers have stopped.
func (s *Server) Wait() {
	s.wg.Wait()
}
