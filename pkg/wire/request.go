package wire

import (
	"bytes"
	"strings"
)

// Request is the data needed to serialize an HTTP/1.1 request line,
// header block, and body.
type Request struct {
	Method  string
	Path    string // path + query, already percent-encoded
	Headers *Headers
	Body    []byte
}

// Encode produces a single contiguous buffer:
// "METHOD SP path HTTP/1.1 CRLF (name: value CRLF)* CRLF body?"
// Header names/values are written verbatim; the caller is responsible for
// ensuring framing headers (Host, Content-Length, ...) are already set.
func Encode(req *Request) []byte {
	var buf bytes.Buffer

	buf.WriteString(strings.ToUpper(req.Method))
	buf.WriteByte(' ')
	buf.WriteString(req.Path)
	buf.WriteString(" HTTP/1.1\r\n")

	if req.Headers != nil {
		for _, f := range req.Headers.Fields() {
			buf.WriteString(f.Name)
			buf.WriteString(": ")
			buf.WriteString(f.Value)
			buf.WriteString("\r\n")
		}
	}

	buf.WriteString("\r\n")

	if len(req.Body) > 0 {
		buf.Write(req.Body)
	}

	return buf.Bytes()
}
