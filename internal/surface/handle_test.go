package surface

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSurface struct{ Surface }

func TestHandleEmpty(t *testing.T) {
	h := NewHandle()
	_, ok := h.Acquire()
	assert.False(t, ok)
}

func TestHandleAttachAcquireDetach(t *testing.T) {
	h := NewHandle()
	s := &stubSurface{}

	h.Attach(s)
	got, ok := h.Acquire()
	require.True(t, ok)
	assert.Same(t, s, got)

	h.Detach()
	_, ok = h.Acquire()
	assert.False(t, ok)
}

func TestHandleGeneration(t *testing.T) {
	h := NewHandle()
	g0 := h.Generation()

	h.Attach(&stubSurface{})
	g1 := h.Generation()
	assert.Greater(t, g1, g0)

	h.Detach()
	assert.Greater(t, h.Generation(), g1)

	// Detaching an empty handle does not bump the generation.
	g2 := h.Generation()
	h.Detach()
	assert.Equal(t, g2, h.Generation())
}
