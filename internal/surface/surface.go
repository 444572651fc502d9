// Package surface defines the browsing-surface boundary between the agent
// control plane and the GUI layer that owns the actual browser.
//
// The control plane never holds a raw reference to the GUI's surface: it
// goes through Handle, a liveness-checked slot the GUI attaches to on
// startup and detaches from during teardown. Handlers acquire the surface
// immediately before each use and treat absence as an unavailable service,
// never as a fault.
package surface

// TabInfo describes one tab for enumeration responses.
type TabInfo struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Title  string `json:"title"`
	Active bool   `json:"active"`
}

// Surface is the browsing abstraction the helper drives through the
// control server: navigation, script execution, screenshots, and tab
// management. Implementations live in the GUI layer (or in
// surface/headless for hosts without one).
type Surface interface {
	TabCount() int
	ActiveTabIndex() int
	Tabs() []TabInfo

	CreateTab(url string) (int, error)
	CloseTab(index int) error
	SwitchToTab(index int) error

	LoadURL(url string) error
	CurrentURL() (string, error)
	GoBack() error
	GoForward() error
	Reload() error

	PageHTML() (string, error)

	// ExecuteScript runs code in the page context and returns the result
	// serialized as JSON. The surface enforces its own execution timeout.
	ExecuteScript(code string) (string, error)

	// Screenshot captures the visible page as a base64-encoded PNG.
	Screenshot() (string, error)
}
