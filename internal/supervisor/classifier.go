package supervisor

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// TerminationReason categorizes how the helper process ended.
type TerminationReason int

const (
	// ReasonExited means a normal exit with a status code.
	ReasonExited TerminationReason = iota
	// ReasonKilled means an external kill signal ended the process.
	ReasonKilled
	// ReasonCrashed means a fault signal (segfault, abort, bus error).
	ReasonCrashed
	// ReasonUnknown means the wait status could not be interpreted.
	ReasonUnknown
)

func (r TerminationReason) String() string {
	switch r {
	case ReasonExited:
		return "exited"
	case ReasonKilled:
		return "killed"
	case ReasonCrashed:
		return "crashed"
	default:
		return "unknown"
	}
}

// Termination describes one observed process exit.
type Termination struct {
	Reason   TerminationReason
	ExitCode int
	Signal   unix.Signal
}

func (t Termination) String() string {
	switch t.Reason {
	case ReasonExited:
		return fmt.Sprintf("exited with code %d", t.ExitCode)
	case ReasonKilled, ReasonCrashed:
		return fmt.Sprintf("%s by signal %s", t.Reason, unix.SignalName(t.Signal))
	default:
		return "terminated for unknown reason"
	}
}

// Classifier turns a raw process exit into a Termination. Hosts with
// platform-specific knowledge (cgroup OOM events, job objects) can install
// their own.
type Classifier func(*os.ProcessState) Termination

// DefaultClassifier interprets POSIX wait status: fault signals are crashes,
// other signals are kills, anything else is a plain exit.
func DefaultClassifier(ps *os.ProcessState) Termination {
	if ps == nil {
		return Termination{Reason: ReasonUnknown}
	}
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok {
		return Termination{Reason: ReasonUnknown, ExitCode: ps.ExitCode()}
	}
	if ws.Signaled() {
		sig := unix.Signal(ws.Signal())
		switch sig {
		case unix.SIGSEGV, unix.SIGABRT, unix.SIGBUS, unix.SIGILL, unix.SIGFPE:
			return Termination{Reason: ReasonCrashed, Signal: sig}
		default:
			return Termination{Reason: ReasonKilled, Signal: sig}
		}
	}
	return Termination{Reason: ReasonExited, ExitCode: ws.ExitStatus()}
}
