package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/teilomillet/studyscribe/config"
	"github.com/teilomillet/studyscribe/errors"
	"github.com/teilomillet/studyscribe/server"
	"github.com/teilomillet/studyscribe/server/metrics"
	"github.com/teilomillet/studyscribe/server/provider"
	"github.com/teilomillet/studyscribe/server/validation"
	"github.com/teilomillet/studyscribe/telemetry"
)

var (
	configFile = flag.String("config", "studyscribe.yaml", "Path to configuration file")
	validate   = flag.Bool("validate", false, "Validate configuration and exit")
	version    = flag.Bool("version", false, "Print version and exit")
)

const Version = "v0.1.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("studyscribe %s\n", Version)
		os.Exit(0)
	}

	// Load validates as well
	cfg, err := config.LoadFile(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *validate {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	level := zap.NewAtomicLevel()
	logger, err := newLogger(cfg.Logging, level)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()
	errors.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, level, logger); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, level zap.AtomicLevel, logger *zap.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Tracing, Version, logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer shutdownTracing(context.Background())

	backend, err := provider.NewBackend(ctx, cfg.LLM)
	if err != nil {
		return fmt.Errorf("create backend: %w", err)
	}

	m := metrics.NewMetrics()
	mgr, err := provider.NewManager(backend, cfg, logger, m.Registry())
	if err != nil {
		return fmt.Errorf("create provider manager: %w", err)
	}

	// Counting is best effort; the encoding may be unavailable offline.
	var counter *validation.TokenCounter
	if cfg.Generation.MaxContentTokens > 0 {
		counter, err = validation.NewTokenCounter(cfg.Generation.TokenEncoding)
		if err != nil {
			logger.Warn("content token budget disabled",
				zap.String("encoding", cfg.Generation.TokenEncoding),
				zap.Error(err))
			counter = nil
		}
	}

	handler := server.NewHandler(server.Deps{
		Config:    cfg,
		Invoker:   mgr,
		Backend:   mgr.BackendName(),
		Breaker:   mgr.Breaker(),
		Validator: validation.New(counter, cfg.Generation.MaxContentTokens),
		Metrics:   m,
		Logger:    logger,
	})
	srv := server.NewServer(cfg.Server, handler, logger)

	watcher, err := config.NewConfigWatcher(*configFile, logger)
	if err != nil {
		logger.Warn("config reload disabled", zap.Error(err))
	} else {
		srv.WatchLogLevel(watcher, level)
		defer func() {
			watcher.Close()
			srv.Wait()
		}()
	}

	logger.Info("Starting studyscribe",
		zap.String("version", Version),
		zap.Int("port", cfg.Server.Port),
		zap.String("backend", mgr.BackendName()))
	return srv.Start(ctx)
}

func newLogger(cfg config.LoggingConfig, level zap.AtomicLevel) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	level.SetLevel(lvl)

	zc := zap.NewProductionConfig()
	zc.Level = level
	if cfg.Format == "text" {
		zc.Encoding = "console"
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	return zc.Build()
}
