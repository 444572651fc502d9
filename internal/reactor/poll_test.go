package reactor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
)

func newTestPoll(t *testing.T) *Poll {
	t.Helper()
	return NewPoll(logging.NewNop())
}

func TestReadableCallback(t *testing.T) {
	p := newTestPoll(t)

	var fds [2]int
	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	fds[0], fds[1] = pair[0], pair[1]
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	fired := 0
	require.NoError(t, p.RegisterReadable(fds[0], func() {
		fired++
		buf := make([]byte, 16)
		unix.Read(fds[0], buf)
	}))

	// Nothing to read yet.
	require.NoError(t, p.Tick(10*time.Millisecond))
	assert.Equal(t, 0, fired)

	_, err = unix.Write(fds[1], []byte("x"))
	require.NoError(t, err)

	require.NoError(t, p.Tick(100*time.Millisecond))
	assert.Equal(t, 1, fired)
}

func TestWritableCallbackAndUnregister(t *testing.T) {
	p := newTestPoll(t)

	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(pair[0])
	defer unix.Close(pair[1])

	fired := 0
	require.NoError(t, p.RegisterWritable(pair[0], func() {
		fired++
		p.UnregisterWritable(pair[0])
	}))

	// A fresh socket is immediately writable; the callback unregisters
	// itself so it must fire exactly once across two ticks.
	require.NoError(t, p.Tick(10*time.Millisecond))
	require.NoError(t, p.Tick(10*time.Millisecond))
	assert.Equal(t, 1, fired)
}

func TestUnregisterStopsCallbacks(t *testing.T) {
	p := newTestPoll(t)

	pair, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	require.NoError(t, err)
	defer unix.Close(pair[0])
	defer unix.Close(pair[1])

	fired := 0
	require.NoError(t, p.RegisterReadable(pair[0], func() { fired++ }))
	_, err = unix.Write(pair[1], []byte("x"))
	require.NoError(t, err)

	p.Unregister(pair[0])
	require.NoError(t, p.Tick(10*time.Millisecond))
	assert.Equal(t, 0, fired)
}

func TestRepeatingTimer(t *testing.T) {
	p := newTestPoll(t)

	fired := 0
	p.ScheduleTimer(5*time.Millisecond, func() bool {
		fired++
		return fired < 3
	})

	deadline := time.Now().Add(time.Second)
	for fired < 3 && time.Now().Before(deadline) {
		require.NoError(t, p.Tick(10*time.Millisecond))
	}
	assert.Equal(t, 3, fired)

	// Returned false: must not fire again.
	require.NoError(t, p.Tick(20*time.Millisecond))
	assert.Equal(t, 3, fired)
}

func TestCancelTimer(t *testing.T) {
	p := newTestPoll(t)

	fired := false
	timerID := p.ScheduleTimer(5*time.Millisecond, func() bool {
		fired = true
		return false
	})
	p.CancelTimer(timerID)

	require.NoError(t, p.Tick(20*time.Millisecond))
	assert.False(t, fired)
}

func TestTimerOrdering(t *testing.T) {
	p := newTestPoll(t)

	var order []string
	p.ScheduleTimer(30*time.Millisecond, func() bool {
		order = append(order, "late")
		return false
	})
	p.ScheduleTimer(5*time.Millisecond, func() bool {
		order = append(order, "early")
		return false
	})

	deadline := time.Now().Add(time.Second)
	for len(order) < 2 && time.Now().Before(deadline) {
		require.NoError(t, p.Tick(10*time.Millisecond))
	}
	assert.Equal(t, []string{"early", "late"}, order)
}
