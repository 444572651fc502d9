package wire

import (
	"bytes"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestHeaderBasic(t *testing.T) {
	raw := "POST /internal/navigate HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Content-Type: application/json\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		`{"url":"x:y"}`

	hdr, bodyStart, err := ParseRequestHeader([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "POST", hdr.Method)
	assert.Equal(t, "/internal/navigate", hdr.Path)
	assert.Equal(t, 13, hdr.ContentLength)
	assert.Equal(t, "application/json", hdr.Header("content-type"))
	assert.Equal(t, `{"url":"x:y"}`, raw[bodyStart:])
}

func TestParseRequestHeaderQuery(t *testing.T) {
	raw := "GET /internal/get_html?tabIndex=2 HTTP/1.1\r\n\r\n"
	hdr, _, err := ParseRequestHeader([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "/internal/get_html", hdr.Path)
	assert.Equal(t, "tabIndex=2", hdr.RawQuery)
}

func TestParseRequestHeaderIncomplete(t *testing.T) {
	// No blank-line terminator yet: parser must ask for more bytes.
	raw := "GET /health HTTP/1.1\r\nHost: localhost\r\n"
	_, _, err := ParseRequestHeader([]byte(raw))
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestParseRequestHeaderMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing proto", "GET /health\r\n\r\n"},
		{"empty request line", " \r\n\r\n"},
		{"bad proto", "GET /health SMTP/1.0\r\n\r\n"},
		{"header without colon", "GET / HTTP/1.1\r\nbadheader\r\n\r\n"},
		{"negative content length", "GET / HTTP/1.1\r\nContent-Length: -5\r\n\r\n"},
		{"non-numeric content length", "GET / HTTP/1.1\r\nContent-Length: ten\r\n\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseRequestHeader([]byte(tt.input))
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestBuildRequestRoundTrip(t *testing.T) {
	body := []byte(`{"message":"hello"}`)
	raw := BuildRequest("POST", "/v1/echo", map[string]string{"X-Request-Id": "req_1"}, body)

	hdr, bodyStart, err := ParseRequestHeader(raw)
	require.NoError(t, err)
	assert.Equal(t, "POST", hdr.Method)
	assert.Equal(t, "/v1/echo", hdr.Path)
	assert.Equal(t, "req_1", hdr.Header("X-Request-Id"))
	assert.Equal(t, len(body), hdr.ContentLength)
	assert.Equal(t, body, raw[bodyStart:])
}

func TestBuildRequestNoBody(t *testing.T) {
	raw := string(BuildRequest("GET", "/health", nil, nil))
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\n"))
	assert.NotContains(t, raw, "Content-Length")
}

func TestBuildResponseReadResponse(t *testing.T) {
	body := []byte(`{"healthy":true}`)
	raw := BuildResponse(200, nil, body)

	resp, err := ReadResponse(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "OK", resp.Reason)
	assert.Equal(t, body, resp.Body)
	assert.Equal(t, "close", resp.Header("Connection"))
}

func TestReadResponseEmptyBody(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\n\r\n"
	resp, err := ReadResponse(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, 204, resp.Status)
	assert.Empty(t, resp.Body)
}

func TestReadResponseTruncatedBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 100\r\n\r\nshort"
	_, err := ReadResponse(strings.NewReader(raw))
	assert.Error(t, err)
}

func TestReadResponseKeepsIOErrorIdentity(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	defer client.Close()

	// Nothing ever arrives; the deadline error must survive the wrap so
	// callers can tell a silent peer from a garbled frame.
	require.NoError(t, client.SetReadDeadline(time.Now().Add(50*time.Millisecond)))
	_, err := ReadResponse(client)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrDeadlineExceeded)
	assert.NotErrorIs(t, err, ErrMalformed)

	var netErr net.Error
	require.ErrorAs(t, err, &netErr)
	assert.True(t, netErr.Timeout())
}

func TestStatusText(t *testing.T) {
	assert.Equal(t, "Payload Too Large", StatusText(413))
	assert.Equal(t, "Service Unavailable", StatusText(503))
	assert.Equal(t, "Unknown", StatusText(299))
}
