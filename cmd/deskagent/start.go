package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okdesk/deskagent/internal/collaborate"
	"github.com/okdesk/deskagent/internal/config"
	"github.com/okdesk/deskagent/internal/cron"
	"github.com/okdesk/deskagent/internal/dispatch"
	"github.com/okdesk/deskagent/internal/executor"
	"github.com/okdesk/deskagent/internal/gateway"
	"github.com/okdesk/deskagent/internal/intent"
	"github.com/okdesk/deskagent/internal/memory"
	"github.com/okdesk/deskagent/internal/memory/sqlite"
	"github.com/okdesk/deskagent/internal/planner"
	"github.com/okdesk/deskagent/internal/provider"
	"github.com/okdesk/deskagent/internal/tracing"
)

func startCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the assistant backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			if cfgPath == "" {
				resolved, err := resolveConfigPath()
				if err != nil {
					return err
				}
				cfgPath = resolved
			}
			return runStart(cfgPath)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Path to configuration file")
	return cmd
}

func runStart(cfgPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	logger := buildLogger(cfg.Logging)
	logger.Info("deskagent starting", "version", version, "config", cfgPath)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.Init(ctx, tracing.Config{
			ServiceName: cfg.Tracing.ServiceName,
			Endpoint:    cfg.Tracing.Endpoint,
			Insecure:    true,
		})
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("tracing shutdown", "error", err)
			}
		}()
	}

	store, checkpointer, closeStore, err := openStore(cfg.Memory, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var llm provider.Provider
	if cfg.Provider.APIKey != "" {
		llm = provider.NewOpenAIClient(provider.Config{
			BaseURL:   cfg.Provider.BaseURL,
			APIKey:    cfg.Provider.APIKey,
			Model:     cfg.Provider.Model,
			MaxTokens: cfg.Provider.MaxTokens,
			Timeout:   cfg.Provider.TimeoutDuration(),
		})
	} else {
		logger.Warn("no provider api_key configured, running on deterministic fallbacks only")
	}

	sessions := dispatch.NewInMemorySessionStore()
	sessions.SetMaxSessions(cfg.Sessions.Max)
	lanes := dispatch.NewLaneLock()

	exec := executor.New(logger)
	plan := planner.New(llm, logger)
	relay := collaborate.New(logger)

	dispatcher := dispatch.New(dispatch.Options{
		Classifier: intent.NewClassifier(llm, logger),
		Executor:   exec,
		Planner:    plan,
		Store:      store,
		Provider:   llm,
		Sessions:   sessions,
		Lanes:      lanes,
		Logger:     logger,
	})

	gw := gateway.New(gateway.Options{
		Config: gateway.Config{
			Listen:         cfg.Gateway.Listen,
			ReadTimeout:    cfg.Gateway.ReadTimeoutDuration(),
			WriteTimeout:   cfg.Gateway.WriteTimeoutDuration(),
			DefaultSession: cfg.Gateway.DefaultSession,
		},
		Dispatcher: dispatcher,
		Executor:   exec,
		Planner:    plan,
		Relay:      relay,
		Store:      store,
		Sessions:   sessions,
		Logger:     logger,
	})

	scheduler := cron.NewScheduler(logger)
	if err := scheduler.RegisterJob(&cron.SessionPruneJob{
		Sessions:     sessions,
		Lanes:        lanes,
		MaxIdle:      cfg.Sessions.MaxIdleDuration(),
		Logger:       logger,
		ScheduleExpr: cfg.Jobs.SessionPrune,
	}); err != nil {
		return err
	}
	if checkpointer != nil {
		if err := scheduler.RegisterJob(&cron.WALCheckpointJob{
			Store:        checkpointer,
			Logger:       logger,
			ScheduleExpr: cfg.Jobs.WALCheckpoint,
		}); err != nil {
			return err
		}
	}
	if err := scheduler.Start(); err != nil {
		return err
	}

	if err := gw.Start(); err != nil {
		_ = scheduler.Stop(context.Background())
		return err
	}

	<-ctx.Done()
	logger.Info("deskagent shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := gw.Stop(stopCtx); err != nil {
		logger.Error("gateway stop", "error", err)
	}
	if err := scheduler.Stop(stopCtx); err != nil {
		logger.Error("scheduler stop", "error", err)
	}
	return nil
}

// openStore opens the configured memory store. Returns the store, a
// checkpointer when the store is WAL-backed (nil otherwise), and a
// close function.
func openStore(cfg config.MemoryConfig, logger *slog.Logger) (memory.Store, cron.Checkpointer, func(), error) {
	if cfg.Path == ":memory:" {
		logger.Info("memory store: in-process (no persistence)")
		return memory.NewInMemoryStore(), nil, func() {}, nil
	}

	path := cfg.Path
	if path == "" {
		path = sqlite.DefaultPath(cfg.DataDir)
	}
	store, err := sqlite.Open(sqlite.Config{
		Path:        path,
		WAL:         cfg.WAL,
		BusyTimeout: int(cfg.BusyTimeoutDuration() / time.Millisecond),
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open memory store: %w", err)
	}
	logger.Info("memory store: sqlite", "path", path)
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing memory store", "error", err)
		}
	}
	return store, store, closeFn, nil
}

func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
