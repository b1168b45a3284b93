package gorequest

import (
	"iter"
	"sync"
	"time"

	"github.com/elliothayes/gorequest/pkg/charset"
	"github.com/elliothayes/gorequest/pkg/codec"
	gorequesterrors "github.com/elliothayes/gorequest/pkg/errors"
	"github.com/elliothayes/gorequest/pkg/timing"
	"github.com/elliothayes/gorequest/pkg/wire"
)

// Headers is the ordered, case-preserving header collection attached to
// every Response.
type Headers = wire.Headers

// Response is an immutable value object carrying the full outcome of one
// request/response exchange, plus lazily-decoded, memoized text/JSON views.
type Response struct {
	StatusCode int
	Reason     string
	Headers    *Headers
	URL        string
	Elapsed    time.Duration

	// Timing breaks Elapsed down into DNS lookup, TCP connect, TLS
	// handshake, and time-to-first-byte components. DNS/TCP/TLS are zero
	// whenever the connection was reused from the pool instead of dialed.
	Timing timing.Metrics

	// History holds the chain of prior Responses when redirects were
	// followed, oldest first. It is empty when no redirect was followed.
	History []*Response

	body []byte

	textOnce sync.Once
	text     string
	textErr  error

	jsonOnce sync.Once
	jsonVal  interface{}
	jsonErr  error
}

func newResponse(status int, reason string, headers *Headers, body []byte, url string, elapsed time.Duration, metrics timing.Metrics) *Response {
	return &Response{
		StatusCode: status,
		Reason:     reason,
		Headers:    headers,
		body:       body,
		URL:        url,
		Elapsed:    elapsed,
		Timing:     metrics,
	}
}

// Ok reports whether the status code is below 400.
func (r *Response) Ok() bool {
	return r.StatusCode < 400
}

// IsRedirect reports whether the status is one of 301,302,303,307,308.
func (r *Response) IsRedirect() bool {
	switch r.StatusCode {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

// IsPermanentRedirect reports whether the status is 301 or 308.
func (r *Response) IsPermanentRedirect() bool {
	return r.StatusCode == 301 || r.StatusCode == 308
}

// Content returns the raw response body bytes.
func (r *Response) Content() []byte {
	return r.body
}

// Text decodes the body using the charset declared in the Content-Type
// header (defaulting to UTF-8), computed on first access and memoized.
func (r *Response) Text() (string, error) {
	r.textOnce.Do(func() {
		r.text, r.textErr = charset.Decode(r.body, r.Headers.Get("Content-Type"))
	})
	return r.text, r.textErr
}

// Decode is an explicit-override sibling of Text: it ignores the declared
// Content-Type and decodes using charsetName directly. It is not memoized.
func (r *Response) Decode(charsetName string) (string, error) {
	return charset.Decode(r.body, "text/plain; charset="+charsetName)
}

// JSON decodes the body as JSON on first access and memoizes the result.
func (r *Response) JSON() (interface{}, error) {
	r.jsonOnce.Do(func() {
		r.jsonErr = codec.Active.Unmarshal(r.body, &r.jsonVal)
	})
	return r.jsonVal, r.jsonErr
}

// IterContent yields the body in fixed-size slices of at most n bytes.
func (r *Response) IterContent(n int) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		if n <= 0 {
			n = len(r.body)
			if n == 0 {
				return
			}
		}
		for i := 0; i < len(r.body); i += n {
			end := i + n
			if end > len(r.body) {
				end = len(r.body)
			}
			if !yield(r.body[i:end]) {
				return
			}
		}
	}
}

// IterLines yields non-empty splits of the body on delim.
func (r *Response) IterLines(delim byte) iter.Seq[[]byte] {
	return func(yield func([]byte) bool) {
		start := 0
		for i, b := range r.body {
			if b == delim {
				if i > start {
					if !yield(r.body[start:i]) {
						return
					}
				}
				start = i + 1
			}
		}
		if start < len(r.body) {
			yield(r.body[start:])
		}
	}
}

// RaiseForStatus returns a *errors.StatusError for 4xx/5xx responses, nil
// otherwise.
func (r *Response) RaiseForStatus() error {
	switch {
	case r.StatusCode >= 500:
		return gorequesterrors.NewServerStatusError(r.StatusCode, r.Reason, r.URL)
	case r.StatusCode >= 400:
		return gorequesterrors.NewClientStatusError(r.StatusCode, r.Reason, r.URL)
	default:
		return nil
	}
}
