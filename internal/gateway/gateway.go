// Package gateway exposes the desktop-assistant backend over HTTP:
// the agent endpoints mirroring the original surface, health,
// prometheus metrics, and a websocket chat stream.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/okdesk/deskagent/internal/collaborate"
	"github.com/okdesk/deskagent/internal/dispatch"
	"github.com/okdesk/deskagent/internal/executor"
	"github.com/okdesk/deskagent/internal/memory"
	"github.com/okdesk/deskagent/internal/planner"
)

// Replier produces an assistant reply for one user message.
type Replier interface {
	Reply(ctx context.Context, message, sessionID string) string
}

// Config holds the server settings.
type Config struct {
	Listen          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// DefaultSession is used when a request carries no session id.
	DefaultSession string
}

func (c *Config) defaults() {
	if c.Listen == "" {
		c.Listen = ":8000"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 30 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 60 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.DefaultSession == "" {
		c.DefaultSession = "default"
	}
}

// Options bundles the collaborators the gateway serves.
type Options struct {
	Config     Config
	Dispatcher Replier
	Executor   *executor.Executor
	Planner    *planner.Planner
	Relay      *collaborate.Relay
	Store      memory.Store
	Sessions   dispatch.SessionStore
	Logger     *slog.Logger
}

// Gateway is the HTTP server for the assistant backend.
type Gateway struct {
	config     Config
	logger     *slog.Logger
	dispatcher Replier
	executor   *executor.Executor
	planner    *planner.Planner
	relay      *collaborate.Relay
	store      memory.Store
	sessions   dispatch.SessionStore
	metrics    *Metrics
	server     *http.Server
	startedAt  time.Time
}

// New creates a Gateway.
func New(opts Options) *Gateway {
	opts.Config.defaults()
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Gateway{
		config:     opts.Config,
		logger:     opts.Logger,
		dispatcher: opts.Dispatcher,
		executor:   opts.Executor,
		planner:    opts.Planner,
		relay:      opts.Relay,
		store:      opts.Store,
		sessions:   opts.Sessions,
		metrics:    NewMetrics(),
	}
}

// Start binds the listen address and serves in the background.
func (g *Gateway) Start() error {
	g.startedAt = time.Now()

	g.server = &http.Server{
		Addr:         g.config.Listen,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Listen)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.config.Listen, err)
	}

	go func() {
		g.logger.Info("gateway listening", "addr", g.config.Listen)
		if err := g.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Error("gateway serve error", "error", err)
		}
	}()

	return nil
}

// Stop shuts the server down gracefully.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	g.logger.Info("gateway shutting down")
	return g.server.Shutdown(shutdownCtx)
}
