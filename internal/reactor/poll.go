package reactor

import (
	"container/heap"
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
)

// Poll is a poll(2)-backed Reactor for headless hosts and tests.
// It is single-threaded: Tick and Run must be driven from one goroutine,
// and every registration call must come from callbacks on that goroutine
// (or from before the loop starts).
type Poll struct {
	log     *logging.Logger
	readers map[int]func()
	writers map[int]func()
	timers  timerHeap
	nextID  TimerID
}

// NewPoll creates a poll-backed reactor.
func NewPoll(log *logging.Logger) *Poll {
	return &Poll{
		log:     log.Component("reactor"),
		readers: make(map[int]func()),
		writers: make(map[int]func()),
	}
}

// RegisterReadable implements Reactor.
func (p *Poll) RegisterReadable(fd int, cb func()) error {
	p.readers[fd] = cb
	return nil
}

// RegisterWritable implements Reactor.
func (p *Poll) RegisterWritable(fd int, cb func()) error {
	p.writers[fd] = cb
	return nil
}

// Unregister implements Reactor.
func (p *Poll) Unregister(fd int) {
	delete(p.readers, fd)
	delete(p.writers, fd)
}

// UnregisterWritable implements Reactor.
func (p *Poll) UnregisterWritable(fd int) {
	delete(p.writers, fd)
}

// ScheduleTimer implements Reactor.
func (p *Poll) ScheduleTimer(interval time.Duration, cb func() bool) TimerID {
	p.nextID++
	id := p.nextID
	heap.Push(&p.timers, &timer{
		id:       id,
		deadline: time.Now().Add(interval),
		interval: interval,
		cb:       cb,
	})
	return id
}

// CancelTimer implements Reactor.
func (p *Poll) CancelTimer(id TimerID) {
	for _, t := range p.timers {
		if t.id == id {
			t.cancelled = true
			return
		}
	}
}

// Tick runs one poll iteration, waiting at most maxWait for readiness.
// It returns after dispatching whatever became ready and firing due timers.
func (p *Poll) Tick(maxWait time.Duration) error {
	wait := maxWait
	if next, ok := p.nextDeadline(); ok {
		if until := time.Until(next); until < wait {
			wait = until
		}
	}
	if wait < 0 {
		wait = 0
	}

	fds := make([]unix.PollFd, 0, len(p.readers)+len(p.writers))
	for fd := range p.readers {
		fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
	}
	for fd := range p.writers {
		if i := indexOf(fds, int32(fd)); i >= 0 {
			fds[i].Events |= unix.POLLOUT
		} else {
			fds = append(fds, unix.PollFd{Fd: int32(fd), Events: unix.POLLOUT})
		}
	}

	if len(fds) > 0 {
		_, err := unix.Poll(fds, int(wait.Milliseconds()))
		if err != nil && err != unix.EINTR {
			return err
		}
	} else if wait > 0 {
		time.Sleep(wait)
	}

	for _, pfd := range fds {
		fd := int(pfd.Fd)
		if pfd.Revents&(unix.POLLIN|unix.POLLERR|unix.POLLHUP) != 0 {
			// Callback may have unregistered the fd while handling an
			// earlier event in this same tick.
			if cb, ok := p.readers[fd]; ok {
				cb()
			}
		}
		if pfd.Revents&(unix.POLLOUT|unix.POLLERR) != 0 {
			if cb, ok := p.writers[fd]; ok {
				cb()
			}
		}
	}

	p.fireTimers()
	return nil
}

// Run drives the loop until ctx is cancelled.
func (p *Poll) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if err := p.Tick(50 * time.Millisecond); err != nil {
			p.log.Error("poll tick failed", zap.Error(err))
			return
		}
	}
}

func (p *Poll) nextDeadline() (time.Time, bool) {
	for len(p.timers) > 0 && p.timers[0].cancelled {
		heap.Pop(&p.timers)
	}
	if len(p.timers) == 0 {
		return time.Time{}, false
	}
	return p.timers[0].deadline, true
}

func (p *Poll) fireTimers() {
	now := time.Now()
	for len(p.timers) > 0 {
		t := p.timers[0]
		if t.cancelled {
			heap.Pop(&p.timers)
			continue
		}
		if t.deadline.After(now) {
			return
		}
		heap.Pop(&p.timers)
		if t.cb() {
			t.deadline = now.Add(t.interval)
			heap.Push(&p.timers, t)
		}
	}
}

func indexOf(fds []unix.PollFd, fd int32) int {
	for i := range fds {
		if fds[i].Fd == fd {
			return i
		}
	}
	return -1
}
