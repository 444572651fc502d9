package control

import (
	"github.com/lespaceman/athena-browser-sub000/internal/infrastructure/logging"
	"github.com/lespaceman/athena-browser-sub000/internal/surface"
)

// surfaceUnavailable is sent when no browsing surface is attached, which
// happens during host startup and teardown.
const surfaceUnavailable = "Server is shutting down"

// Handlers binds the route set to a surface handle. Every handler acquires
// the surface per request; a dead handle yields 503.
type Handlers struct {
	handle *surface.Handle
	log    *logging.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(handle *surface.Handle, log *logging.Logger) *Handlers {
	return &Handlers{handle: handle, log: log.Component("handlers")}
}

// RegisterAll wires every control route into the table.
func (h *Handlers) RegisterAll(t *RouteTable) {
	t.Register("POST", "/internal/open_url", h.OpenURL)
	t.Register("GET", "/internal/get_url", h.GetURL)
	t.Register("POST", "/internal/get_url", h.GetURL)
	t.Register("GET", "/internal/tab_count", h.TabCount)
	t.Register("GET", "/internal/tab_info", h.TabInfo)
	t.Register("POST", "/internal/navigate", h.Navigate)
	t.Register("POST", "/internal/history", h.History)
	t.Register("POST", "/internal/reload", h.Reload)
	t.Register("POST", "/internal/tab/create", h.TabCreate)
	t.Register("POST", "/internal/tab/close", h.TabClose)
	t.Register("POST", "/internal/tab/switch", h.TabSwitch)
	t.Register("GET", "/internal/get_html", h.GetHTML)
	t.Register("POST", "/internal/get_html", h.GetHTML)
	t.Register("POST", "/internal/execute_js", h.ExecuteJS)
	t.Register("GET", "/internal/screenshot", h.Screenshot)
	t.Register("POST", "/internal/screenshot", h.Screenshot)
	t.Register("GET", "/internal/get_page_summary", h.PageSummary)
	t.Register("POST", "/internal/get_page_summary", h.PageSummary)
	t.Register("GET", "/internal/get_interactive_elements", h.InteractiveElements)
	t.Register("POST", "/internal/get_interactive_elements", h.InteractiveElements)
	t.Register("POST", "/internal/query_content", h.QueryContent)
	t.Register("GET", "/internal/get_accessibility_tree", h.AccessibilityTree)
	t.Register("POST", "/internal/get_accessibility_tree", h.AccessibilityTree)
	t.Register("GET", "/internal/get_annotated_screenshot", h.AnnotatedScreenshot)
	t.Register("POST", "/internal/get_annotated_screenshot", h.AnnotatedScreenshot)
}

// acquire returns the live surface or a ready-made 503.
func (h *Handlers) acquire() (surface.Surface, *Response) {
	s, ok := h.handle.Acquire()
	if !ok {
		return nil, Error(503, surfaceUnavailable)
	}
	return s, nil
}
