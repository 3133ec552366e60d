package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/tazlauanubianca/Crowdsensing/internal/history"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/config"
	"github.com/tazlauanubianca/Crowdsensing/internal/infrastructure/logging"
	"github.com/tazlauanubianca/Crowdsensing/internal/simulation"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// RunView is the read-only view of a simulation the API serves.
// *simulation.Simulation satisfies it.
type RunView interface {
	RunID() string
	Scenario() *simulation.Scenario
	Status() simulation.Status
	Err() error
	Rounds() []simulation.RoundSnapshot
	DeviceStates() []simulation.DeviceState
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Run     RunView            // optional; attach later with SetRun
	History history.Repository // optional; history endpoints answer 503 without it
	Hub     *Hub               // optional; a hub is created when nil
	Version string
}

// Server is the HTTP inspection API.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	history history.Repository
	hub     *Hub
	version string

	mu       sync.RWMutex
	run      RunView
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.Logger)
	}

	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		history: deps.History,
		hub:     hub,
		version: deps.Version,
		run:     deps.Run,
	}, nil
}

// Hub returns the server's WebSocket hub, for registration as an observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// SetRun attaches the simulation whose state the API serves.
func (s *Server) SetRun(run RunView) {
	s.mu.Lock()
	s.run = run
	s.mu.Unlock()
}

func (s *Server) currentRun() RunView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.run
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in the background.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the listening address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.RLock()
	srv, cancel := s.server, s.cancel
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}

	// Stops the hub and disconnects WebSocket clients.
	cancel()

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
