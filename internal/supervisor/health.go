package supervisor

import (
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// HealthStatus is the helper's answer to GET /health.
type HealthStatus struct {
	Healthy      bool   `json:"healthy"`
	Ready        bool   `json:"ready"`
	UptimeMs     int64  `json:"uptimeMs"`
	RequestCount int64  `json:"requestCount"`
	Version      string `json:"version"`
}

// CheckHealth probes the helper once. A transport failure or unparseable
// body yields ErrHealthCheckFailed; an intact response is returned as-is,
// healthy or not.
func (s *Supervisor) CheckHealth() (HealthStatus, error) {
	var status HealthStatus
	if s.healthCh == nil {
		return status, fmt.Errorf("%w: %v", ErrHealthCheckFailed, ErrNotRunning)
	}
	body, err := s.healthCh.Exchange("GET", "/health", nil, nil)
	if err != nil {
		return status, fmt.Errorf("%w: %v", ErrHealthCheckFailed, err)
	}
	if err := sonic.Unmarshal(body, &status); err != nil {
		return status, fmt.Errorf("%w: bad health body: %v", ErrHealthCheckFailed, err)
	}
	return status, nil
}

// healthTick runs on the reactor thread every HealthInterval. Checks never
// overlap: the next tick is scheduled only after this one returns. A
// detected exit stops the health timer and hands over to the restart path.
func (s *Supervisor) healthTick() bool {
	if s.shuttingDown {
		s.haveHealthTimer = false
		return false
	}

	if exit := s.proc.exitResult(); exit != nil {
		s.onCrash(exit)
		s.haveHealthTimer = false
		return false
	}

	status, err := s.CheckHealth()
	ok := err == nil && status.Healthy
	s.metrics.RecordHealthCheck(ok)

	switch {
	case ok && s.state == Unhealthy:
		s.lastErr = nil
		s.transition(Ready)
		s.restartAttempts = 0
	case !ok && s.state == Ready:
		if err == nil {
			err = fmt.Errorf("%w: helper reports healthy=false", ErrHealthCheckFailed)
		}
		s.lastErr = err
		s.log.Warn("health check failed", zap.Error(err))
		s.transition(Unhealthy)
	}
	return true
}

// onCrash classifies the exit and schedules a restart if budget remains.
func (s *Supervisor) onCrash(exit *exitResult) {
	term := s.classifier(exit.state)
	s.lastErr = fmt.Errorf("%w: %s", ErrProcessCrashed, term)
	s.log.Error("helper exited unexpectedly",
		zap.String("termination", term.String()),
		zap.Int("restart_attempts", s.restartAttempts))
	s.transition(Crashed)
	// The waiter has already reaped the child; the output stream (pipe
	// read end, or pty master) is the one handle still held here. A
	// flapping helper would otherwise leak one per crash cycle.
	s.proc.out.Close()
	s.proc = nil
	s.scheduleRestart()
}

// scheduleRestart arms a one-shot backoff timer, or gives up when the
// attempt budget is spent.
func (s *Supervisor) scheduleRestart() {
	if s.restartAttempts >= s.cfg.RestartMaxAttempts {
		s.lastErr = fmt.Errorf("%w: after %d attempts: %v",
			ErrRestartBudgetExhausted, s.restartAttempts, s.lastErr)
		s.log.Error("giving up on helper restarts",
			zap.Int("attempts", s.restartAttempts))
		return
	}

	backoff := s.backoff(s.restartAttempts)
	s.restartAttempts++
	s.metrics.RestartsTotal.Inc()
	s.log.Info("scheduling helper restart",
		zap.Duration("backoff", backoff),
		zap.Int("attempt", s.restartAttempts))

	s.restartTimer = s.loop.ScheduleTimer(backoff, func() bool {
		s.haveRestart = false
		if s.shuttingDown {
			return false
		}
		if err := s.start(); err != nil {
			s.scheduleRestart()
		}
		return false
	})
	s.haveRestart = true
}

// backoff doubles the initial delay per prior attempt, capped at the
// ceiling.
func (s *Supervisor) backoff(attempts int) time.Duration {
	d := s.cfg.InitialBackoff
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= s.cfg.BackoffCeiling {
			return s.cfg.BackoffCeiling
		}
	}
	return d
}
