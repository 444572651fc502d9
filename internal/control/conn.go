package control

import (
	"bytes"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/lespaceman/athena-browser-sub000/internal/shared/id"
	"github.com/lespaceman/athena-browser-sub000/internal/wire"
)

// conn is the per-connection state machine: read headers, read body,
// dispatch, write response, close. It never blocks; progress happens only
// inside reactor callbacks.
type conn struct {
	fd  int
	id  id.ConnID
	srv *Server

	readBuf   []byte
	header    *wire.RequestHeader
	bodyStart int

	writeBuf   []byte
	written    int
	writeArmed bool
	dispatched bool
	closed     bool

	accepted   time.Time
	lastActive time.Time
}

func newConn(fd int, srv *Server) *conn {
	now := time.Now()
	return &conn{fd: fd, id: id.NewConnID(), srv: srv, accepted: now, lastActive: now}
}

// readable drains the socket and advances the state machine.
func (c *conn) readable() {
	if c.closed || c.dispatched {
		return
	}
	c.lastActive = time.Now()
	chunk := make([]byte, 4096)
	for {
		n, err := unix.Read(c.fd, chunk)
		if n > 0 {
			c.readBuf = append(c.readBuf, chunk[:n]...)
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			break
		}
		if err != nil {
			c.destroy()
			return
		}
		if n == 0 {
			// Peer closed before a complete request: nothing to answer.
			c.destroy()
			return
		}
		if n < len(chunk) {
			break
		}
	}
	c.advance()
}

// advance tries to parse what has been buffered so far and dispatches once
// the request is complete.
func (c *conn) advance() {
	if len(c.readBuf) > c.srv.cfg.MaxBodyBytes {
		c.reject(413, "Request too large")
		return
	}

	if c.header == nil {
		hdr, bodyStart, err := wire.ParseRequestHeader(c.readBuf)
		switch {
		case errors.Is(err, wire.ErrIncomplete):
			return
		case err != nil:
			c.reject(400, "Malformed request")
			return
		}
		if hdr.ContentLength > c.srv.cfg.MaxBodyBytes {
			// Declared size alone condemns the request; the body is
			// never buffered.
			c.reject(413, "Request too large")
			return
		}
		c.header = hdr
		c.bodyStart = bodyStart
	}

	if len(c.readBuf)-c.bodyStart < c.header.ContentLength {
		return
	}
	body := c.readBuf[c.bodyStart : c.bodyStart+c.header.ContentLength]
	c.dispatch(body)
}

// dispatch runs the route handler and stages the response.
func (c *conn) dispatch(body []byte) {
	c.dispatched = true
	start := time.Now()

	resp := c.srv.route(c, body)

	c.srv.metrics.RecordControlRequest(
		c.header.Method, c.header.Path, strconv.Itoa(resp.Status), time.Since(start))
	c.srv.log.Debug("request served",
		zap.String("conn", string(c.id)),
		zap.String("method", c.header.Method),
		zap.String("path", c.header.Path),
		zap.Int("status", resp.Status),
		zap.Duration("elapsed", time.Since(start)))

	c.stageResponse(resp)
}

// route applies rate limiting and route lookup around the handler.
func (s *Server) route(c *conn, body []byte) (resp *Response) {
	if !s.allow() {
		return Error(429, "Too many requests")
	}
	handler, ok := s.routes.Lookup(c.header.Method, c.header.Path)
	if !ok {
		return Error(404, "Unknown command: "+c.header.Path)
	}

	query, err := url.ParseQuery(c.header.RawQuery)
	if err != nil {
		return Error(400, "Malformed query string")
	}

	defer func() {
		if r := recover(); r != nil {
			s.log.Error("handler panic",
				zap.String("path", c.header.Path), zap.Any("panic", r))
			resp = Error(500, "Internal error")
		}
	}()
	return handler(&Request{
		Method: c.header.Method,
		Path:   c.header.Path,
		Query:  query,
		Header: c.header,
		Body:   body,
		ConnID: c.id,
	})
}

// reject short-circuits the state machine with an error response. Used for
// protocol violations discovered before dispatch.
func (c *conn) reject(status int, message string) {
	if c.dispatched {
		return
	}
	c.dispatched = true
	method, path := "-", "-"
	if c.header != nil {
		method, path = c.header.Method, c.header.Path
	}
	c.srv.metrics.RecordControlRequest(method, path, strconv.Itoa(status), time.Since(c.accepted))
	c.stageResponse(Error(status, message))
}

// stageResponse encodes the wire bytes, compressing large bodies for
// clients that ask, then starts flushing.
func (c *conn) stageResponse(resp *Response) {
	body := resp.Body
	var extra map[string]string
	if c.acceptsGzip() && len(body) >= c.srv.cfg.GzipMinBytes {
		if compressed, ok := gzipBytes(body); ok {
			body = compressed
			extra = map[string]string{"Content-Encoding": "gzip"}
		}
	}
	c.writeBuf = wire.BuildResponse(resp.Status, extra, body)
	c.flush()
}

// flush writes as much as the socket accepts; a short write arms the
// writability callback to finish later.
func (c *conn) flush() {
	for c.written < len(c.writeBuf) {
		n, err := unix.Write(c.fd, c.writeBuf[c.written:])
		if n > 0 {
			c.written += n
		}
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
			if !c.writeArmed {
				c.writeArmed = true
				if rerr := c.srv.loop.RegisterWritable(c.fd, c.writable); rerr != nil {
					c.destroy()
				}
			}
			return
		}
		if err != nil {
			c.destroy()
			return
		}
	}
	c.destroy()
}

func (c *conn) writable() {
	if c.closed {
		return
	}
	c.lastActive = time.Now()
	c.flush()
}

// destroy tears the connection down exactly once.
func (c *conn) destroy() {
	if c.closed {
		return
	}
	c.closed = true
	c.srv.loop.Unregister(c.fd)
	unix.Close(c.fd)
	delete(c.srv.conns, c.fd)
	c.srv.metrics.ControlConnections.Dec()
}

func (c *conn) acceptsGzip() bool {
	if c.header == nil {
		return false
	}
	return strings.Contains(c.header.Header("Accept-Encoding"), "gzip")
}

func gzipBytes(data []byte) ([]byte, bool) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, false
	}
	if err := w.Close(); err != nil {
		return nil, false
	}
	// Compression that grows the payload is not worth the header.
	if buf.Len() >= len(data) {
		return nil, false
	}
	return buf.Bytes(), true
}
