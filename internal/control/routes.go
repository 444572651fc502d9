package control

import (
	"fmt"
	"net/url"

	"github.com/bytedance/sonic"

	"github.com/lespaceman/athena-browser-sub000/internal/shared/id"
	"github.com/lespaceman/athena-browser-sub000/internal/wire"
)

// Request is one parsed inbound control request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header *wire.RequestHeader
	Body   []byte
	ConnID id.ConnID
}

// Bind decodes the JSON body into v. An empty body binds the zero value.
func (r *Request) Bind(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

// Response is what a handler returns. Body is raw JSON.
type Response struct {
	Status int
	Body   []byte
}

// Handler processes one request. Handlers run on the reactor thread and
// must not block.
type Handler func(*Request) *Response

// JSON builds a response by encoding v.
func JSON(status int, v any) *Response {
	body, err := sonic.Marshal(v)
	if err != nil {
		return Error(500, "failed to encode response")
	}
	return &Response{Status: status, Body: body}
}

// Error builds the uniform error body {"error":{"message":...}}.
func Error(status int, message string) *Response {
	body, _ := sonic.Marshal(map[string]any{
		"error": map[string]string{"message": message},
	})
	return &Response{Status: status, Body: body}
}

// routeKey is an exact (method, path) pair. No pattern matching.
type routeKey struct {
	method string
	path   string
}

// RouteTable maps (method, path) to handlers. Populate before Serve; it is
// read without locking afterwards.
type RouteTable struct {
	routes map[routeKey]Handler
}

// NewRouteTable creates an empty table.
func NewRouteTable() *RouteTable {
	return &RouteTable{routes: make(map[routeKey]Handler)}
}

// Register binds a handler. A duplicate registration panics: route wiring
// is static startup code and a collision is a programming error.
func (t *RouteTable) Register(method, path string, h Handler) {
	key := routeKey{method: method, path: path}
	if _, exists := t.routes[key]; exists {
		panic(fmt.Sprintf("duplicate route %s %s", method, path))
	}
	t.routes[key] = h
}

// Lookup finds the handler for an exact method and path match.
func (t *RouteTable) Lookup(method, path string) (Handler, bool) {
	h, ok := t.routes[routeKey{method: method, path: path}]
	return h, ok
}

// Len reports the number of registered routes.
func (t *RouteTable) Len() int { return len(t.routes) }
