package wire

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Response is one fully-read HTTP/1.1 response.
type Response struct {
	Status  int
	Reason  string
	Body    []byte
	headers map[string]string
}

// Header returns the value for a header name (case-insensitive), or "".
func (r *Response) Header(name string) string {
	return r.headers[strings.ToLower(name)]
}

// ReadResponse reads exactly one response from r: status line, headers, then
// a body of the declared Content-Length. Absent Content-Length means an
// empty body (the helper always declares lengths; chunked encoding is not
// part of the contract).
func ReadResponse(r io.Reader) (*Response, error) {
	br := bufio.NewReader(r)

	// I/O failures (deadline hits, closed sockets) keep their identity so
	// callers can classify them; only structural problems are ErrMalformed.
	statusLine, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("wire: reading status line: %w", err)
	}
	parts := strings.SplitN(statusLine, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/1.") {
		return nil, fmt.Errorf("%w: bad status line %q", ErrMalformed, statusLine)
	}
	status, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad status code %q", ErrMalformed, parts[1])
	}

	resp := &Response{
		Status:  status,
		headers: make(map[string]string),
	}
	if len(parts) == 3 {
		resp.Reason = parts[2]
	}

	for {
		line, err := readLine(br)
		if err != nil {
			return nil, fmt.Errorf("wire: reading headers: %w", err)
		}
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("%w: bad header line %q", ErrMalformed, line)
		}
		name := strings.ToLower(strings.TrimSpace(line[:colon]))
		resp.headers[name] = strings.TrimSpace(line[colon+1:])
	}

	if cl := resp.Header("Content-Length"); cl != "" {
		n, err := strconv.Atoi(cl)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: bad Content-Length %q", ErrMalformed, cl)
		}
		resp.Body = make([]byte, n)
		if _, err := io.ReadFull(br, resp.Body); err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
	}

	return resp, nil
}

// readLine reads one CRLF-terminated line, tolerating bare LF.
func readLine(br *bufio.Reader) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
