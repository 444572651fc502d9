package supervisor

import "errors"

var (
	// ErrSpawnFailed means the helper process could not be started or did
	// not speak the readiness protocol.
	ErrSpawnFailed = errors.New("helper spawn failed")

	// ErrReadyTimeout means the helper did not announce readiness within
	// the startup timeout.
	ErrReadyTimeout = errors.New("timed out waiting for helper readiness")

	// ErrProcessCrashed means the helper exited outside an explicit
	// shutdown.
	ErrProcessCrashed = errors.New("helper process crashed")

	// ErrHealthCheckFailed means a health probe got no usable response.
	ErrHealthCheckFailed = errors.New("helper health check failed")

	// ErrRestartBudgetExhausted means the crash-restart attempt budget ran
	// out and the supervisor stays in Crashed until told otherwise.
	ErrRestartBudgetExhausted = errors.New("helper restart budget exhausted")

	// ErrNotRunning means a call was attempted with no live helper.
	ErrNotRunning = errors.New("helper is not running")
)
