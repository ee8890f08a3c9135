package http

import (
	"iter"
	"slices"
)

// Headers is an insertion-ordered mapping of field names to values.
// Names are compared exactly: no case folding, no merging.
// Setting an existing name replaces its value and keeps its position.
//
// A nil *Headers reads like an empty mapping.
type Headers struct {
	names  []string
	values map[string]string
}

func NewHeaders() *Headers {
	return &Headers{values: make(map[string]string)}
}

func (h *Headers) Get(name string) (string, bool) {
	if h == nil {
		return "", false
	}
	v, ok := h.values[name]
	return v, ok
}

func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

func (h *Headers) Set(name, value string) {
	if h.values == nil {
		h.values = make(map[string]string)
	}
	if _, ok := h.values[name]; !ok {
		h.names = append(h.names, name)
	}
	h.values[name] = value
}

func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.names)
}

// All yields the fields in insertion order.
func (h *Headers) All() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		if h == nil {
			return
		}
		for _, name := range h.names {
			if !yield(name, h.values[name]) {
				return
			}
		}
	}
}

func (h *Headers) Clone() *Headers {
	if h == nil {
		return nil
	}

	clone := &Headers{
		names:  slices.Clone(h.names),
		values: make(map[string]string, len(h.values)),
	}
	for k, v := range h.values {
		clone.values[k] = v
	}
	return clone
}
