// Package wire implements minimal HTTP/1.1 request and response framing
// for the control plane's Unix-socket transport.
//
// The codec is deliberately small: exact-length bodies only (Content-Length,
// no chunked encoding), no continuation lines, one request per connection.
// Both sides of the boundary use it: the control server parses inbound
// requests incrementally from a non-blocking read buffer, and the outbound
// channel frames requests and reads one full response.
package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrIncomplete means more bytes are needed before a frame can be parsed.
	ErrIncomplete = errors.New("wire: incomplete frame")
	// ErrMalformed means the bytes cannot be a valid frame.
	ErrMalformed = errors.New("wire: malformed frame")
)

const (
	headerTerminator = "\r\n\r\n"
	lineTerminator   = "\r\n"
)

// RequestHeader is the parsed request line plus headers of an inbound request.
type RequestHeader struct {
	Method        string
	Path          string
	RawQuery      string
	Proto         string
	ContentLength int
	headers       map[string]string
}

// Header returns the value for a header name (case-insensitive), or "".
func (h *RequestHeader) Header(name string) string {
	return h.headers[strings.ToLower(name)]
}

// ParseRequestHeader parses the request line and headers from the front of
// buf. It returns the parsed header and the byte offset where the body
// starts. If buf does not yet contain the blank-line terminator it returns
// ErrIncomplete; structurally invalid input returns ErrMalformed.
func ParseRequestHeader(buf []byte) (*RequestHeader, int, error) {
	end := bytes.Index(buf, []byte(headerTerminator))
	if end < 0 {
		return nil, 0, ErrIncomplete
	}
	bodyStart := end + len(headerTerminator)

	lines := strings.Split(string(buf[:end]), lineTerminator)
	if len(lines) == 0 {
		return nil, 0, ErrMalformed
	}

	parts := strings.Split(lines[0], " ")
	if len(parts) != 3 {
		return nil, 0, fmt.Errorf("%w: bad request line %q", ErrMalformed, lines[0])
	}
	method, target, proto := parts[0], parts[1], parts[2]
	if method == "" || target == "" || !strings.HasPrefix(proto, "HTTP/1.") {
		return nil, 0, fmt.Errorf("%w: bad request line %q", ErrMalformed, lines[0])
	}

	hdr := &RequestHeader{
		Method:  method,
		Path:    target,
		Proto:   proto,
		headers: make(map[string]string, len(lines)-1),
	}
	if q := strings.IndexByte(target, '?'); q >= 0 {
		hdr.Path = target[:q]
		hdr.RawQuery = target[q+1:]
	}

	for _, line := range lines[1:] {
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, 0, fmt.Errorf("%w: bad header line %q", ErrMalformed, line)
		}
		name := strings.ToLower(strings.TrimSpace(line[:colon]))
		value := strings.TrimSpace(line[colon+1:])
		hdr.headers[name] = value
	}

	if cl := hdr.Header("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, 0, fmt.Errorf("%w: bad Content-Length %q", ErrMalformed, cl)
		}
		hdr.ContentLength = n
	}

	return hdr, bodyStart, nil
}

// BuildRequest frames an outbound HTTP/1.1 request. Headers are written in
// map order; Content-Length and Content-Type are added automatically when a
// body is present.
func BuildRequest(method, path string, headers map[string]string, body []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s %s HTTP/1.1%s", method, path, lineTerminator)
	fmt.Fprintf(&b, "Host: localhost%s", lineTerminator)
	for name, value := range headers {
		fmt.Fprintf(&b, "%s: %s%s", name, value, lineTerminator)
	}
	if len(body) > 0 {
		fmt.Fprintf(&b, "Content-Type: application/json%s", lineTerminator)
		fmt.Fprintf(&b, "Content-Length: %d%s", len(body), lineTerminator)
	}
	b.WriteString(lineTerminator)
	b.Write(body)
	return b.Bytes()
}

// BuildResponse frames an HTTP/1.1 response with the given status, extra
// headers, and body. Content-Length, Content-Type, and Connection: close are
// always present.
func BuildResponse(status int, headers map[string]string, body []byte) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "HTTP/1.1 %d %s%s", status, StatusText(status), lineTerminator)
	fmt.Fprintf(&b, "Content-Type: application/json%s", lineTerminator)
	fmt.Fprintf(&b, "Content-Length: %d%s", len(body), lineTerminator)
	fmt.Fprintf(&b, "Connection: close%s", lineTerminator)
	for name, value := range headers {
		fmt.Fprintf(&b, "%s: %s%s", name, value, lineTerminator)
	}
	b.WriteString(lineTerminator)
	b.Write(body)
	return b.Bytes()
}

// StatusText returns the reason phrase for the status codes the control
// plane emits.
func StatusText(status int) string {
	switch status {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 413:
		return "Payload Too Large"
	case 429:
		return "Too Many Requests"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	default:
		return "Unknown"
	}
}
