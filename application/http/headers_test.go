package http

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeaders(t *testing.T) {
	h := NewHeaders()
	h.Set("Content-Type", "text/plain")
	h.Set("X-Trace", "1")
	h.Set("Content-Type", "text/html")

	v, ok := h.Get("Content-Type")
	assert.True(t, ok)
	assert.Equal(t, "text/html", v)

	// Exact match only.
	assert.False(t, h.Has("content-type"))
	assert.Equal(t, 2, h.Len())

	var names []string
	for name := range h.All() {
		names = append(names, name)
	}
	assert.Equal(t, []string{"Content-Type", "X-Trace"}, names)
}

func TestHeadersClone(t *testing.T) {
	h := NewHeaders()
	h.Set("A", "1")

	clone := h.Clone()
	clone.Set("B", "2")
	clone.Set("A", "changed")

	assert.Equal(t, 1, h.Len())
	v, _ := h.Get("A")
	assert.Equal(t, "1", v)
}

func TestNilHeaders(t *testing.T) {
	var h *Headers

	_, ok := h.Get("A")
	assert.False(t, ok)
	assert.False(t, h.Has("A"))
	assert.Zero(t, h.Len())
	assert.Nil(t, h.Clone())

	for range h.All() {
		t.Fatal("nil headers yielded a field")
	}
}

func TestZeroHeadersSet(t *testing.T) {
	var h Headers
	h.Set("A", "1")
	assert.True(t, h.Has("A"))
}
