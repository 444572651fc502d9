// Package channel performs one-shot request/response exchanges with the
// helper process over its Unix domain socket.
//
// One request per connection: connect, write one framed request, read one
// framed response, close. There is no pooling and no keep-alive; the helper
// is local and the exchange is bounded by millisecond-scale deadlines.
package channel

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
	"github.com/lespaceman/athena-browser-sub000/internal/wire"
)

var (
	// ErrConnectFailed means the helper socket could not be reached.
	ErrConnectFailed = errors.New("channel: connect failed")
	// ErrCallTimeout means the exchange did not complete within its deadline.
	ErrCallTimeout = errors.New("channel: call timed out")
)

// StatusError reports a non-2xx response from the helper.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("channel: helper returned status %d: %s", e.Status, e.Body)
}

// Options bound the exchange.
type Options struct {
	// ConnectTimeout bounds the dial. Defaults to 1s.
	ConnectTimeout time.Duration
	// ExchangeTimeout bounds write plus read. Defaults to 5s.
	ExchangeTimeout time.Duration
}

// DefaultOptions returns sensible exchange bounds for a local helper.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout:  time.Second,
		ExchangeTimeout: 5 * time.Second,
	}
}

// Channel issues one-shot exchanges against a fixed socket path.
type Channel struct {
	socketPath string
	opts       Options
	log        *logging.Logger
}

// New creates a channel for the given helper socket path.
func New(socketPath string, opts Options, log *logging.Logger) *Channel {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = time.Second
	}
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = 5 * time.Second
	}
	return &Channel{
		socketPath: socketPath,
		opts:       opts,
		log:        log.Component("channel"),
	}
}

// SocketPath returns the socket this channel exchanges against.
func (c *Channel) SocketPath() string {
	return c.socketPath
}

// Exchange sends one request and reads one response. On 2xx the response
// body is returned; any other status yields a *StatusError. Connect
// failures map to ErrConnectFailed and deadline hits to ErrCallTimeout,
// both wrapped with detail.
func (c *Channel) Exchange(method, path string, headers map[string]string, body []byte) ([]byte, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.opts.ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConnectFailed, c.socketPath, err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.opts.ExchangeTimeout)); err != nil {
		return nil, fmt.Errorf("channel: set deadline: %w", err)
	}

	frame := wire.BuildRequest(method, path, headers, body)
	if _, err := conn.Write(frame); err != nil {
		return nil, c.classify("write", err)
	}

	resp, err := wire.ReadResponse(conn)
	if err != nil {
		return nil, c.classify("read", err)
	}

	c.log.Debug("exchange complete",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.Status),
	)

	if resp.Status < 200 || resp.Status > 299 {
		return nil, &StatusError{Status: resp.Status, Body: string(resp.Body)}
	}
	return resp.Body, nil
}

// classify maps transport errors onto the channel taxonomy.
func (c *Channel) classify(op string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s after %s", ErrCallTimeout, op, c.opts.ExchangeTimeout)
	}
	return fmt.Errorf("channel: %s: %w", op, err)
}
