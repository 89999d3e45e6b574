// Package server implements the vehicle state HTTP API: the control
// registry, the authoritative state document, simulated telemetry, and the
// assistant relay that lets a model drive state updates.
package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/telltale-dev/telltale/internal/car"
	"github.com/telltale-dev/telltale/internal/llm"
	"github.com/telltale-dev/telltale/internal/schema"
)

const rateLimitWindow = 60 * time.Second

// Opts holds configuration for New.
type Opts struct {
	Registry  *schema.Registry
	Store     *car.Store
	Simulator *car.Simulator
	Providers []llm.Provider

	// APIKey gates mutating routes when non-empty.
	APIKey string

	// RateLimit caps assistant calls per client per minute. Zero or
	// negative disables the limiter.
	RateLimit int

	Logger *slog.Logger     // defaults to slog.Default()
	Now    func() time.Time // defaults to time.Now
}

// Server wires the HTTP surface over the vehicle domain.
type Server struct {
	registry  *schema.Registry
	store     *car.Store
	sim       *car.Simulator
	providers map[string]llm.Provider
	apiKey    string
	limiter   *rateLimiter
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Server.
func New(opts Opts) (*Server, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("server: registry is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("server: store is required")
	}
	if opts.Simulator == nil {
		return nil, fmt.Errorf("server: simulator is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	providers := make(map[string]llm.Provider, len(opts.Providers))
	for _, p := range opts.Providers {
		providers[p.Name()] = p
	}

	return &Server{
		registry:  opts.Registry,
		store:     opts.Store,
		sim:       opts.Simulator,
		providers: providers,
		apiKey:    opts.APIKey,
		limiter:   newRateLimiter(opts.RateLimit, rateLimitWindow, opts.Now),
		logger:    opts.Logger,
		now:       opts.Now,
	}, nil
}

// Handler returns the router with all routes and middleware registered.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.requestLog())
	s.registerRoutes(router)
	return router
}

// Tick advances the driving simulation one step at the current speed. The
// serve command calls this on a schedule so telemetry stays live between
// polls.
func (s *Server) Tick() {
	s.sim.Advance(s.now(), s.store.SpeedKPH())
}

// StartOpts holds configuration for Start.
type StartOpts struct {
	Port int
	Out  io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = 5000
	}

	addr := fmt.Sprintf(":%d", opts.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Vehicle server running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
