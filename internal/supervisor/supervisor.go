// Package supervisor owns the helper process lifecycle: spawn, readiness,
// periodic health checks, crash-driven restarts with exponential backoff,
// and graceful shutdown.
//
// A Supervisor is confined to the reactor thread. The only off-thread
// activity is the per-process waiter goroutine (records the exit into an
// atomic slot) and the stdout drain (forwards helper log lines); both are
// observed from the loop, never the other way around.
package supervisor

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lespaceman/athena-browser-sub000/internal/channel"
	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/monitoring"
	"github.com/lespaceman/athena-browser-sub000/internal/reactor"
	"github.com/lespaceman/athena-browser-sub000/internal/shared/id"
)

// Config describes how to run and watch the helper. Immutable after New.
type Config struct {
	// HelperPath is the executable; HelperArgs its arguments.
	HelperPath string
	HelperArgs []string

	// Env entries are appended to the inherited environment.
	Env []string

	// StartupTimeout bounds the wait for the readiness line. Default 5s.
	StartupTimeout time.Duration

	// HealthInterval spaces periodic health checks. Default 10s.
	HealthInterval time.Duration

	// HealthTimeout bounds one health probe. Default 2s.
	HealthTimeout time.Duration

	// CallTimeout bounds one outbound Call exchange. Default 5s.
	CallTimeout time.Duration

	// RestartMaxAttempts caps consecutive crash restarts. Default 3.
	RestartMaxAttempts int

	// InitialBackoff is the first restart delay; it doubles per attempt up
	// to BackoffCeiling. Defaults 100ms and 30s.
	InitialBackoff time.Duration
	BackoffCeiling time.Duration

	// GracefulStopTimeout is how long Shutdown waits after the graceful
	// signal before force-killing. Default 2s.
	GracefulStopTimeout time.Duration

	// UsePTY runs the helper under a pseudo-terminal so its output stays
	// line-buffered.
	UsePTY bool
}

func (c *Config) applyDefaults() {
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = 5 * time.Second
	}
	if c.HealthInterval <= 0 {
		c.HealthInterval = 10 * time.Second
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = 2 * time.Second
	}
	if c.CallTimeout <= 0 {
		c.CallTimeout = 5 * time.Second
	}
	if c.RestartMaxAttempts <= 0 {
		c.RestartMaxAttempts = 3
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = 100 * time.Millisecond
	}
	if c.BackoffCeiling <= 0 {
		c.BackoffCeiling = 30 * time.Second
	}
	if c.GracefulStopTimeout <= 0 {
		c.GracefulStopTimeout = 2 * time.Second
	}
}

// Supervisor runs the helper process state machine. All methods must be
// called from the reactor thread.
type Supervisor struct {
	cfg        Config
	loop       reactor.Reactor
	log        *logging.Logger
	metrics    *monitoring.Metrics
	classifier Classifier

	// OnStateChange, when set before Initialize, observes every
	// transition. Called on the reactor thread.
	OnStateChange func(from, to RuntimeState)

	state      RuntimeState
	proc       *process
	socketPath string
	callCh     *channel.Channel
	healthCh   *channel.Channel

	restartAttempts int
	restartTimer    reactor.TimerID
	healthTimer     reactor.TimerID
	haveHealthTimer bool
	haveRestart     bool

	lastErr      error
	shuttingDown bool
}

// New creates a supervisor. The reactor is used for health and restart
// timers only; the supervisor registers no file descriptors.
func New(cfg Config, loop reactor.Reactor, log *logging.Logger, metrics *monitoring.Metrics) *Supervisor {
	cfg.applyDefaults()
	return &Supervisor{
		cfg:        cfg,
		loop:       loop,
		log:        log.Component("supervisor"),
		metrics:    metrics,
		classifier: DefaultClassifier,
		state:      Stopped,
	}
}

// SetClassifier replaces the termination classifier. Must be called before
// Initialize.
func (s *Supervisor) SetClassifier(c Classifier) {
	if c != nil {
		s.classifier = c
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() RuntimeState { return s.state }

// SocketPath returns the socket announced by the helper, empty before the
// first successful start.
func (s *Supervisor) SocketPath() string { return s.socketPath }

// LastError returns the most recent failure, nil when healthy.
func (s *Supervisor) LastError() error { return s.lastErr }

// Initialize spawns the helper and waits for readiness. Valid from Stopped
// or Crashed.
func (s *Supervisor) Initialize() error {
	switch s.state {
	case Stopped, Crashed:
	default:
		return fmt.Errorf("initialize from state %s", s.state)
	}
	// A pending auto-restart from a previous crash would otherwise fire
	// later and spawn a second helper next to this one.
	s.cancelTimers()
	s.shuttingDown = false
	return s.start()
}

// start spawns, awaits readiness, and arms the health timer. Runs on the
// reactor thread; the readiness wait is the one deliberate blocking window.
func (s *Supervisor) start() error {
	s.transition(Starting)

	proc, err := spawn(s.cfg, s.log)
	if err != nil {
		s.lastErr = err
		s.transition(Crashed)
		return err
	}
	s.proc = proc

	sock, err := proc.awaitReady(s.cfg.StartupTimeout)
	if err != nil {
		s.lastErr = err
		proc.stop(s.cfg.GracefulStopTimeout)
		s.transition(Crashed)
		return err
	}

	s.socketPath = sock
	s.callCh = channel.New(sock, channel.Options{ExchangeTimeout: s.cfg.CallTimeout}, s.log)
	s.healthCh = channel.New(sock, channel.Options{
		ConnectTimeout:  s.cfg.HealthTimeout,
		ExchangeTimeout: s.cfg.HealthTimeout,
	}, s.log)

	s.lastErr = nil
	s.transition(Ready)
	s.restartAttempts = 0

	s.healthTimer = s.loop.ScheduleTimer(s.cfg.HealthInterval, s.healthTick)
	s.haveHealthTimer = true

	s.log.Info("helper ready", zap.String("socket", sock), zap.Int("pid", proc.cmd.Process.Pid))
	return nil
}

// Call performs one request against the helper. No automatic retry; a
// crash discovered during the exchange fails the call with
// ErrProcessCrashed.
func (s *Supervisor) Call(method, path string, body []byte) ([]byte, error) {
	switch s.state {
	case Ready, Unhealthy:
	case Crashed:
		return nil, fmt.Errorf("%w: %v", ErrProcessCrashed, s.lastErr)
	default:
		return nil, fmt.Errorf("%w: state %s", ErrNotRunning, s.state)
	}

	headers := map[string]string{"X-Request-Id": string(id.NewRequestID())}
	start := time.Now()
	resp, err := s.callCh.Exchange(method, path, headers, body)
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.RecordOutboundCall(method, path, result, time.Since(start))

	if err != nil && s.proc.exitResult() != nil {
		return nil, fmt.Errorf("%w: %v", ErrProcessCrashed, err)
	}
	return resp, err
}

// Shutdown stops the helper: graceful signal, bounded wait, force kill.
// Idempotent; always ends in Stopped with the process handle released.
func (s *Supervisor) Shutdown() {
	if s.state == Stopped {
		return
	}
	s.shuttingDown = true
	s.cancelTimers()

	if s.proc != nil {
		s.proc.stop(s.cfg.GracefulStopTimeout)
		s.proc = nil
	}
	s.transition(Stopped)
}

func (s *Supervisor) cancelTimers() {
	if s.haveHealthTimer {
		s.loop.CancelTimer(s.healthTimer)
		s.haveHealthTimer = false
	}
	if s.haveRestart {
		s.loop.CancelTimer(s.restartTimer)
		s.haveRestart = false
	}
}

func (s *Supervisor) transition(to RuntimeState) {
	if s.state == to {
		return
	}
	from := s.state
	s.state = to
	s.metrics.RecordStateTransition(from.String(), to.String())
	s.log.Info("state transition",
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	if s.OnStateChange != nil {
		s.OnStateChange(from, to)
	}
}
