package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/canvass-ai/surveyd/internal/agent"
	"github.com/canvass-ai/surveyd/internal/config"
	"github.com/canvass-ai/surveyd/internal/normalizer"
	"github.com/canvass-ai/surveyd/internal/orchestrator"
	"github.com/canvass-ai/surveyd/internal/pipeline"
	"github.com/canvass-ai/surveyd/internal/provider"
	"github.com/canvass-ai/surveyd/internal/registration"
	"github.com/canvass-ai/surveyd/internal/search"
	"github.com/canvass-ai/surveyd/internal/server"
	"github.com/canvass-ai/surveyd/internal/session"
	"github.com/canvass-ai/surveyd/internal/storage"
	"github.com/canvass-ai/surveyd/internal/storage/memory"
	"github.com/canvass-ai/surveyd/internal/storage/sqldb"
	"github.com/canvass-ai/surveyd/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load .env file if it exists
	_ = godotenv.Load()

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	shutdown, err := telemetry.InitTracer("surveyd", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	// Register built-in providers
	registration.RegisterBuiltins()

	watcher, err := config.NewWatcher(*configPath, logger)
	if err != nil {
		log.Fatalf("Failed to create config watcher: %v", err)
	}
	cfg, err := watcher.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	providers, err := provider.FromConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to build providers: %v", err)
	}

	agents := agent.DefaultRegistry(cfg.Domains.Overrides)

	var responseLog storage.ResponseLog
	switch cfg.Storage.Type {
	case "sqlite":
		responseLog, err = sqldb.New(cfg.Storage.SQLite.Path)
		if err != nil {
			log.Fatalf("Failed to open sqlite storage: %v", err)
		}
	default:
		responseLog = memory.New()
	}
	defer func() {
		if err := responseLog.Close(); err != nil {
			logger.Error("failed to close response log", slog.String("error", err.Error()))
		}
	}()

	sessionOpts := []session.Option{}
	if cfg.Session.MaxTurns > 0 {
		sessionOpts = append(sessionOpts, session.WithMaxTurns(cfg.Session.MaxTurns))
	}
	if cfg.Session.MaxAge != "" {
		maxAge, err := time.ParseDuration(cfg.Session.MaxAge)
		if err != nil {
			log.Fatalf("Invalid session.max_age %q: %v", cfg.Session.MaxAge, err)
		}
		sessionOpts = append(sessionOpts, session.WithMaxAge(maxAge))
	}
	sessions := session.NewMemoryStore(sessionOpts...)

	if hf, ok := providers.Get(provider.NameHF).(interface{ Degraded() bool }); ok && hf.Degraded() {
		logger.Warn("hf provider has no credential, running in echo-stub degraded mode")
	}

	norm := normalizer.New(providers, normalizer.WithLogger(logger))
	orch := orchestrator.New(agents, providers, norm, sessions, responseLog,
		orchestrator.WithLogger(logger))
	pipe := pipeline.New(providers, search.NewDuckDuckGo(),
		pipeline.WithLogger(logger),
		pipeline.WithMaxResults(cfg.Search.MaxResults),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Session.MaxAge != "" {
		go sweepSessions(ctx, sessions, logger)
	}

	// Hot-reload applies per-domain model overrides without a restart.
	if err := watcher.Watch(ctx, func(fresh *config.Config) {
		agents.Register(agent.NewAgriculture(fresh.Domains.Overrides["agriculture"]))
		agents.Register(agent.NewEducation(fresh.Domains.Overrides["education"]))
		agents.Register(agent.NewHealthcare(fresh.Domains.Overrides["healthcare"]))
		logger.Info("domain model overrides reloaded")
	}); err != nil {
		logger.Warn("config watch unavailable", slog.String("error", err.Error()))
	}

	srv := server.New(cfg.Server.Port, logger, orch, pipe)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	logger.Info("surveyd started",
		slog.Int("port", cfg.Server.Port),
		slog.String("storage", cfg.Storage.Type),
		slog.Any("domains", agents.Domains()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		logger.Info("shutdown signal received, stopping...")
		cancel()
		if err := <-errCh; err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}

	logger.Info("surveyd shutdown complete")
}

// sweepSessions periodically evicts idle sessions so an abandoned session
// does not hold memory forever.
func sweepSessions(ctx context.Context, sessions *session.MemoryStore, logger *slog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := sessions.Sweep(); evicted > 0 {
				logger.Info("evicted idle sessions", slog.Int("count", evicted))
			}
		}
	}
}
