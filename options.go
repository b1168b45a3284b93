package gorequest

import (
	"time"

	"github.com/elliothayes/gorequest/pkg/auth"
)

// RequestOptions carries the per-call overrides accepted by Session.Request
// and its method-named wrappers.
type RequestOptions struct {
	// Headers are merged on top of the session's default headers; later
	// values win on duplicate (case-insensitive) keys.
	Headers map[string]string

	// Params are appended to the URL's query string, form-urlencoded.
	Params map[string]string

	// Data is the request body when JSON is nil. A map[string]string is
	// form-urlencoded; a string is sent as UTF-8 bytes; a []byte is sent
	// verbatim.
	Data interface{}

	// JSON, when non-nil, is serialized to compact JSON and takes priority
	// over Data.
	JSON interface{}

	// Timeout bounds connection acquisition (DNS + connect + TLS). Zero
	// means use the session default.
	Timeout time.Duration

	// Verify overrides the session's TLS verification default when non-nil.
	// It takes effect when the request creates the pool for its host; a
	// pool that already exists keeps the TLS configuration it was created
	// with, whatever this field says.
	Verify *bool

	// AllowRedirects overrides the session default when non-nil.
	AllowRedirects *bool

	// MaxRedirects overrides the session default when positive.
	MaxRedirects int

	// Auth overrides the session's default auth capability for this call.
	Auth auth.Capability
}
