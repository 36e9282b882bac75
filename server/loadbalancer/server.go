package loadbalancer

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/Koded0214h/MicroServices/logger"
	"github.com/Koded0214h/MicroServices/pkg/metrics"
	"github.com/Koded0214h/MicroServices/server"
)

// DefaultListenBacklog is the listen() backlog used when none is configured.
const DefaultListenBacklog = 100

// DefaultConnectTimeout bounds the dial to a selected backend.
const DefaultConnectTimeout = 5 * time.Second

// Server accepts client connections and relays each one to a healthy
// backend. Every accepted connection is handled in its own goroutine; a
// connection that cannot be served (no healthy backend, or the dial fails)
// is closed without retrying another backend.
type Server struct {
	name           string
	addr           string
	listenBacklog  int
	connectTimeout time.Duration

	registry *Registry
	monitor  *Monitor

	appCtx context.Context
}

// ServerOptions configures a load balancer server.
type ServerOptions struct {
	Name           string // Server name for logging
	Addr           string
	Backends       []string
	ListenBacklog  int
	HealthInterval time.Duration
	ProbeTimeout   time.Duration
	ConnectTimeout time.Duration
}

// New creates a load balancer server with its registry and health monitor.
func New(appCtx context.Context, opts ServerOptions) (*Server, error) {
	registry, err := NewRegistry(opts.Backends)
	if err != nil {
		return nil, err
	}

	backlog := opts.ListenBacklog
	if backlog <= 0 {
		backlog = DefaultListenBacklog
	}
	connectTimeout := opts.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	return &Server{
		name:           opts.Name,
		addr:           opts.Addr,
		listenBacklog:  backlog,
		connectTimeout: connectTimeout,
		registry:       registry,
		monitor:        NewMonitor(registry, opts.HealthInterval, opts.ProbeTimeout),
		appCtx:         appCtx,
	}, nil
}

// Registry exposes the backend pool, mainly for status reporting.
func (s *Server) Registry() *Registry {
	return s.registry
}

// Start binds the listen address and serves until the application context is
// cancelled. A bind failure is returned to the caller; there is no fallback
// address.
func (s *Server) Start() error {
	listener, err := server.ListenWithBacklog(context.Background(), "tcp", s.addr, s.listenBacklog)
	if err != nil {
		return fmt.Errorf("failed to create TCP listener on %s: %w", s.addr, err)
	}
	logger.Info("load balancer listening", "name", s.name, "addr", s.addr, "backlog", s.listenBacklog, "backends", len(s.registry.All()))

	go s.monitor.Run(s.appCtx)

	// Unblock Accept on shutdown.
	go func() {
		<-s.appCtx.Done()
		listener.Close()
	}()

	// Relay sessions are not drained; they end abruptly when the process
	// terminates.
	return s.acceptConnections(listener)
}

func (s *Server) acceptConnections(listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			// Listener was closed as part of shutdown.
			if s.appCtx.Err() != nil {
				return nil
			}
			// Accept errors are connection-level issues; the listener
			// itself is still healthy.
			logger.Debug("failed to accept connection", "name", s.name, "error", err)
			continue
		}

		metrics.ConnectionsTotal.Inc()
		metrics.ConnectionsCurrent.Inc()

		go s.handleConnection(conn)
	}
}

// handleConnection serves one client: pick a backend, dial it, relay.
func (s *Server) handleConnection(clientConn net.Conn) {
	defer metrics.ConnectionsCurrent.Dec()

	start := time.Now()

	backend, ok := s.registry.Next()
	if !ok {
		logger.Warn("no healthy backend available", "name", s.name, "remote", clientConn.RemoteAddr())
		metrics.ConnectionsRejected.WithLabelValues("no_backend").Inc()
		clientConn.Close()
		return
	}
	metrics.BackendSelections.WithLabelValues(backend.Addr()).Inc()

	backendConn, err := net.DialTimeout("tcp", backend.Addr(), s.connectTimeout)
	if err != nil {
		logger.Error("failed to connect to backend", "name", s.name, "backend", backend.Addr(), "error", err)
		metrics.ConnectionsRejected.WithLabelValues("dial_failed").Inc()
		clientConn.Close()
		return
	}

	logger.Debug("relaying connection", "name", s.name, "remote", clientConn.RemoteAddr(), "backend", backend.Addr())
	Relay(clientConn, backendConn)
	metrics.ConnectionDuration.Observe(time.Since(start).Seconds())
}
