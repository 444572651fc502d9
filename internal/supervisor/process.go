package supervisor

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
)

// exitResult is recorded once by the waiter goroutine when the child exits.
type exitResult struct {
	state *os.ProcessState
}

// process owns one spawned helper: its command handle, the read side of its
// combined stdout/stderr stream, and the exit observation slot. The waiter
// and drain goroutines are the only code that runs off the loop thread; they
// communicate exclusively through the atomic exit slot, the exit channel,
// and the logger.
type process struct {
	cmd    *exec.Cmd
	out    *os.File
	exit   atomic.Pointer[exitResult]
	exitCh chan struct{}

	// readyCh carries the first stdout line exactly once.
	readyCh chan string
}

// spawn starts the helper and begins reading its output. When usePTY is
// set the child runs under a pseudo-terminal, which keeps its stdio
// line-buffered so the readiness line arrives promptly even from runtimes
// that block-buffer pipes.
func spawn(cfg Config, log *logging.Logger) (*process, error) {
	cmd := exec.Command(cfg.HelperPath, cfg.HelperArgs...)
	cmd.Env = append(os.Environ(), cfg.Env...)

	p := &process{
		cmd:     cmd,
		exitCh:  make(chan struct{}),
		readyCh: make(chan string, 1),
	}

	if cfg.UsePTY {
		f, err := pty.Start(cmd)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
		}
		p.out = f
	} else {
		pr, pw, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
		}
		cmd.Stdout = pw
		cmd.Stderr = pw
		if err := cmd.Start(); err != nil {
			pr.Close()
			pw.Close()
			return nil, fmt.Errorf("%w: %v", ErrSpawnFailed, err)
		}
		// The child holds its own copy of the write end.
		pw.Close()
		p.out = pr
	}

	go p.wait()
	go p.readLoop(log)
	return p, nil
}

// wait records the exit result. cmd.Wait is called here and nowhere else.
func (p *process) wait() {
	_ = p.cmd.Wait()
	p.exit.Store(&exitResult{state: p.cmd.ProcessState})
	close(p.exitCh)
}

// readLoop delivers the first output line to readyCh, then forwards the
// rest of the helper's output to the log until EOF.
func (p *process) readLoop(log *logging.Logger) {
	scanner := bufio.NewScanner(p.out)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			p.readyCh <- line
			continue
		}
		if line != "" {
			log.Debug("helper output", zap.String("line", line))
		}
	}
	close(p.readyCh)
}

// readySentinel prefixes the helper's announcement of its socket path.
const readySentinel = "READY "

// awaitReady blocks until the helper prints its readiness line, it exits,
// or the timeout elapses. Returns the announced socket path.
func (p *process) awaitReady(timeout time.Duration) (string, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	select {
	case line, ok := <-p.readyCh:
		if !ok {
			return "", fmt.Errorf("%w: helper closed stdout before announcing readiness", ErrSpawnFailed)
		}
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, readySentinel) {
			return "", fmt.Errorf("%w: unexpected first output line %q", ErrSpawnFailed, line)
		}
		sock := strings.TrimSpace(strings.TrimPrefix(line, readySentinel))
		if sock == "" || !filepath.IsAbs(sock) {
			return "", fmt.Errorf("%w: invalid socket path in readiness line %q", ErrSpawnFailed, line)
		}
		return sock, nil
	case <-p.exitCh:
		return "", fmt.Errorf("%w: exited before announcing readiness", ErrProcessCrashed)
	case <-deadline.C:
		return "", ErrReadyTimeout
	}
}

// exitResult returns the recorded exit, or nil while the child runs.
func (p *process) exitResult() *exitResult {
	return p.exit.Load()
}

// signal delivers sig, tolerating an already-dead child.
func (p *process) signal(sig syscall.Signal) {
	if p.exit.Load() != nil {
		return
	}
	_ = p.cmd.Process.Signal(sig)
}

// stop terminates the child: graceful signal first, force kill after the
// grace period. Blocks until the waiter has observed the exit.
func (p *process) stop(grace time.Duration) {
	if p.exit.Load() == nil {
		p.signal(syscall.SIGTERM)
		graceTimer := time.NewTimer(grace)
		select {
		case <-p.exitCh:
			graceTimer.Stop()
		case <-graceTimer.C:
			p.signal(syscall.SIGKILL)
			<-p.exitCh
		}
	}
	p.out.Close()
}
