package surface

import "sync"

// Handle is a liveness-checked slot holding the current Surface.
//
// The GUI attaches its surface after window construction and detaches it
// before teardown; the generation counter lets long-lived observers detect
// that the surface they saw earlier is gone even if a new one was attached
// since. Acquire is the only way to reach the surface, so a torn-down
// window can never be dereferenced through a stale pointer.
type Handle struct {
	mu  sync.Mutex
	gen uint64
	s   Surface
}

// NewHandle returns an empty handle.
func NewHandle() *Handle {
	return &Handle{}
}

// Attach installs a surface and bumps the generation.
func (h *Handle) Attach(s Surface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.s = s
	h.gen++
}

// Detach clears the slot. Safe to call repeatedly.
func (h *Handle) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.s != nil {
		h.s = nil
		h.gen++
	}
}

// Acquire returns the live surface, or false if none is attached.
func (h *Handle) Acquire() (Surface, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.s == nil {
		return nil, false
	}
	return h.s, true
}

// Generation returns the current attach/detach generation.
func (h *Handle) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen
}
