// Package wire implements the HTTP/1.1 request/response codec: request
// serialization and response parsing over a readable byte stream.
package wire

import "strings"

// Field is a single header line as it appears on or off the wire.
type Field struct {
	Name  string
	Value string
}

// Headers is an ordered header collection. Lookups are ASCII
// case-insensitive; storage preserves the case of the name as set.
type Headers struct {
	fields []Field
}

// NewHeaders returns an empty header collection.
func NewHeaders() *Headers {
	return &Headers{}
}

// Set replaces any existing header with the same name (case-insensitive)
// with a single entry holding value, preserving the position of the first
// match. If no entry exists, it is appended. This implements the "case
// preserving, last-writer-wins on duplicate key" request header semantics.
func (h *Headers) Set(name, value string) {
	for i := range h.fields {
		if strings.EqualFold(h.fields[i].Name, name) {
			h.fields[i] = Field{Name: name, Value: value}
			kept := h.fields[:i+1]
			for _, f := range h.fields[i+1:] {
				if !strings.EqualFold(f.Name, name) {
					kept = append(kept, f)
				}
			}
			h.fields = kept
			return
		}
	}
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Add appends a header entry without removing existing entries of the same
// name, used when parsing a response where insertion order and repeated
// headers (e.g. Set-Cookie) must be retained.
func (h *Headers) Add(name, value string) {
	h.fields = append(h.fields, Field{Name: name, Value: value})
}

// Get returns the first value for name (case-insensitive), or "" if absent.
func (h *Headers) Get(name string) string {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Has reports whether any header with name (case-insensitive) is present.
func (h *Headers) Has(name string) bool {
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// Values returns every value stored under name (case-insensitive), in
// insertion order.
func (h *Headers) Values(name string) []string {
	var out []string
	for _, f := range h.fields {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Del removes every entry matching name (case-insensitive).
func (h *Headers) Del(name string) {
	kept := h.fields[:0]
	for _, f := range h.fields {
		if !strings.EqualFold(f.Name, name) {
			kept = append(kept, f)
		}
	}
	h.fields = kept
}

// Fields returns the underlying ordered field list. Callers must not
// retain a reference across further mutation.
func (h *Headers) Fields() []Field {
	return h.fields
}

// Clone returns an independent copy of h.
func (h *Headers) Clone() *Headers {
	out := &Headers{fields: make([]Field, len(h.fields))}
	copy(out.fields, h.fields)
	return out
}
