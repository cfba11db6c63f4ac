package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/smartlock-core/internal/attendance"
	"github.com/nerrad567/smartlock-core/internal/audit"
	"github.com/nerrad567/smartlock-core/internal/coordinator"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlock-core/internal/infrastructure/logging"
)

const (
	// gracefulShutdownTimeout is the maximum time to wait for in-flight
	// requests to complete during shutdown.
	gracefulShutdownTimeout = 10 * time.Second

	readTimeout  = 5 * time.Second
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
)

// StateSource provides the current lock state.
type StateSource interface {
	Snapshot() coordinator.State
}

// HealthChecker reports whether a backing connection works.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.MetricsConfig
	Logger     *logging.Logger
	State      StateSource // nil on nodes that do not run the coordinator
	Bus        HealthChecker
	Telemetry  HealthChecker         // optional; reported, never fails /healthz
	Metrics    http.Handler          // optional
	Audit      audit.Repository      // optional
	Attendance attendance.Repository // optional
	Version    string

	// Now defaults to time.Now. Used for the default attendance date.
	Now func() time.Time
}

// Server is the HTTP server for the lock node.
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg        config.MetricsConfig
	logger     *logging.Logger
	state      StateSource
	bus        HealthChecker
	telemetry  HealthChecker
	metrics    http.Handler
	audit      audit.Repository
	attendance attendance.Repository
	version    string
	now        func() time.Time

	mu     sync.Mutex
	server *http.Server
	addr   net.Addr
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bus == nil {
		return nil, fmt.Errorf("bus health is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		state:      deps.State,
		bus:        deps.Bus,
		telemetry:  deps.Telemetry,
		metrics:    deps.Metrics,
		audit:      deps.Audit,
		attendance: deps.Attendance,
		version:    deps.Version,
		now:        deps.Now,
	}, nil
}

// Handler returns the routed handler without starting a listener.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listen address and serves in a background goroutine.
//
// Binding happens before Start returns, so a port already in use is
// reported here rather than logged later.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return fmt.Errorf("api server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("binding %s: %w", s.cfg.Listen, err)
	}

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	s.addr = ln.Addr()

	s.logger.Info("API server starting", "address", s.addr.String())
	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}(s.server)

	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

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

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
