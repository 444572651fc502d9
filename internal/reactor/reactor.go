// Package reactor abstracts the host's event loop behind a minimal
// readiness-registration interface.
//
// The control server and supervisor depend only on Reactor, never on a
// concrete loop: a GUI host adapts its toolkit's I/O-watch mechanism, while
// headless hosts and tests use the poll(2)-backed Poll implementation in
// this package. All callbacks fire on the loop thread, which is what lets
// the rest of the control plane stay lock-free.
package reactor

import "time"

// TimerID identifies a scheduled timer.
type TimerID uint64

// Reactor registers file-descriptor readiness callbacks and timers with the
// host event loop. All methods must be called from the loop thread.
type Reactor interface {
	// RegisterReadable invokes cb whenever fd is readable (level-triggered)
	// until Unregister is called. Error and hangup conditions also invoke
	// cb so the owner observes EOF on its next read.
	RegisterReadable(fd int, cb func()) error

	// RegisterWritable invokes cb whenever fd is writable until Unregister
	// is called for the write side.
	RegisterWritable(fd int, cb func()) error

	// Unregister removes both read and write interest for fd.
	Unregister(fd int)

	// UnregisterWritable removes only write interest for fd. Used when a
	// partially-written response finishes flushing but the connection is
	// still reading.
	UnregisterWritable(fd int)

	// ScheduleTimer invokes cb after interval, then repeatedly every
	// interval for as long as cb returns true.
	ScheduleTimer(interval time.Duration, cb func() bool) TimerID

	// CancelTimer stops a scheduled timer. Canceling an already-fired or
	// unknown timer is a no-op.
	CancelTimer(id TimerID)
}
