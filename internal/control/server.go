// Package control implements the inbound control server: a Unix-socket
// listener driven entirely by the reactor, with one non-blocking state
// machine per accepted connection and an exact-match route table.
//
// Every connection carries exactly one request and is closed after the
// response. Bodies are JSON; responses always include Connection: close.
package control

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"

	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/monitoring"
	"github.com/lespaceman/athena-browser-sub000/internal/reactor"
)

// Config tunes the control server.
type Config struct {
	// SocketPath is where the server listens. Required.
	SocketPath string

	// MaxBodyBytes caps a request, headers included. Default 1 MiB.
	MaxBodyBytes int

	// GzipMinBytes is the smallest response body worth compressing when
	// the client accepts gzip. Default 1 KiB.
	GzipMinBytes int

	// RateLimitRPS/RateLimitBurst throttle dispatches. Zero disables.
	RateLimitRPS   float64
	RateLimitBurst int

	// IdleTimeout closes connections that make no read or write progress
	// for this long, so a client that sends half a request and stalls
	// cannot pin a connection forever. Default 30s.
	IdleTimeout time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
	if c.GzipMinBytes <= 0 {
		c.GzipMinBytes = 1024
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 1
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 30 * time.Second
	}
}

// Server accepts and serves control connections. All methods and callbacks
// run on the reactor thread.
type Server struct {
	cfg      Config
	loop     reactor.Reactor
	log      *logging.Logger
	metrics  *monitoring.Metrics
	routes   *RouteTable
	limiter  *rate.Limiter
	instance string

	listenFd   int
	conns      map[int]*conn
	running    bool
	sweepTimer reactor.TimerID
}

// NewServer creates a server over an already-populated route table.
func NewServer(cfg Config, routes *RouteTable, loop reactor.Reactor, log *logging.Logger, metrics *monitoring.Metrics) *Server {
	cfg.applyDefaults()
	s := &Server{
		cfg:      cfg,
		loop:     loop,
		log:      log.Component("control"),
		metrics:  metrics,
		routes:   routes,
		instance: uuid.NewString(),
		listenFd: -1,
		conns:    make(map[int]*conn),
	}
	if cfg.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	return s
}

// Serve binds the socket and registers the listener with the reactor. It
// returns immediately; connection handling happens as the loop runs.
func (s *Server) Serve() error {
	if s.running {
		return fmt.Errorf("control server already running")
	}
	if s.cfg.SocketPath == "" {
		return fmt.Errorf("control socket path not configured")
	}
	if err := removeStaleSocket(s.cfg.SocketPath); err != nil {
		return err
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return fmt.Errorf("failed to create control socket: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: s.cfg.SocketPath}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to bind %s: %w", s.cfg.SocketPath, err)
	}
	// Only the owning user may drive the control plane.
	if err := os.Chmod(s.cfg.SocketPath, 0o600); err != nil {
		unix.Close(fd)
		os.Remove(s.cfg.SocketPath)
		return fmt.Errorf("failed to restrict socket mode: %w", err)
	}
	if err := unix.Listen(fd, 128); err != nil {
		unix.Close(fd)
		os.Remove(s.cfg.SocketPath)
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.SocketPath, err)
	}

	s.listenFd = fd
	if err := s.loop.RegisterReadable(fd, s.acceptReady); err != nil {
		unix.Close(fd)
		os.Remove(s.cfg.SocketPath)
		s.listenFd = -1
		return err
	}
	s.running = true
	s.sweepTimer = s.loop.ScheduleTimer(s.cfg.IdleTimeout/2, s.sweepIdle)
	s.log.Info("control server listening",
		zap.String("socket", s.cfg.SocketPath),
		zap.String("instance", s.instance),
		zap.Int("routes", s.routes.Len()))
	return nil
}

// acceptReady drains the accept queue. Runs whenever the listener is
// readable.
func (s *Server) acceptReady() {
	for {
		nfd, _, err := unix.Accept4(s.listenFd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			return
		}
		if err != nil {
			if s.running {
				s.log.Warn("accept failed", zap.Error(err))
			}
			return
		}
		c := newConn(nfd, s)
		s.conns[nfd] = c
		if err := s.loop.RegisterReadable(nfd, c.readable); err != nil {
			delete(s.conns, nfd)
			unix.Close(nfd)
			continue
		}
		s.metrics.ControlConnections.Inc()
	}
}

// Shutdown closes the listener, all live connections, and unlinks the
// socket file. Idempotent.
func (s *Server) Shutdown() {
	if !s.running {
		return
	}
	s.running = false

	s.loop.CancelTimer(s.sweepTimer)
	s.loop.Unregister(s.listenFd)
	unix.Close(s.listenFd)
	s.listenFd = -1

	for _, c := range s.conns {
		c.destroy()
	}

	if err := os.Remove(s.cfg.SocketPath); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to unlink control socket", zap.Error(err))
	}
	s.log.Info("control server stopped")
}

// sweepIdle closes connections with no recent read or write progress.
func (s *Server) sweepIdle() bool {
	if !s.running {
		return false
	}
	cutoff := time.Now().Add(-s.cfg.IdleTimeout)
	for _, c := range s.conns {
		if c.lastActive.Before(cutoff) {
			s.log.Debug("closing idle connection", zap.String("conn", string(c.id)))
			c.destroy()
		}
	}
	return true
}

// allow consults the rate limiter; no limiter means always allowed.
func (s *Server) allow() bool {
	return s.limiter == nil || s.limiter.Allow()
}

// removeStaleSocket unlinks a leftover socket file nobody answers on. A
// live listener makes the bind fail instead of being hijacked.
func removeStaleSocket(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", path, 100*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("control socket %s is already in use", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove stale socket %s: %w", path, err)
	}
	return nil
}
