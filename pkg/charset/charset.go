// Package charset decodes a response body to text using the charset named
// in a declared Content-Type header. It never sniffs bytes to guess an
// encoding; an unrecognized or absent charset falls back to UTF-8.
package charset

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// FromContentType extracts the charset parameter from a Content-Type
// header value, e.g. "text/html; charset=ISO-8859-1" -> "ISO-8859-1".
// Returns "" if no charset parameter is present.
func FromContentType(contentType string) string {
	parts := strings.Split(contentType, ";")
	for _, p := range parts[1:] {
		p = strings.TrimSpace(p)
		if rest, ok := cutPrefixFold(p, "charset="); ok {
			return strings.Trim(rest, `"`)
		}
	}
	return ""
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) {
		return "", false
	}
	if !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}

// Decode converts body to a string using the charset declared in
// contentType, falling back to UTF-8 when absent or unrecognized.
// Undecodable bytes are replaced with the Unicode replacement character;
// Decode never returns an error for that reason.
func Decode(body []byte, contentType string) (string, error) {
	name := FromContentType(contentType)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return strings.ToValidUTF8(string(body), "�"), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		// Unrecognized charset name: treat as UTF-8 per the declared-charset
		// contract (we don't sniff bytes to guess further).
		return strings.ToValidUTF8(string(body), "�"), nil
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		// Fall back to a lossy decode rather than failing the caller.
		decoded, _ = decodeLossy(enc, body)
	}

	return string(decoded), nil
}

func decodeLossy(enc encoding.Encoding, body []byte) ([]byte, error) {
	dec := enc.NewDecoder()
	var out []byte
	buf := make([]byte, 4096)
	src := body
	for len(src) > 0 {
		n, nSrc, err := dec.Transform(buf, src, true)
		out = append(out, buf[:n]...)
		if nSrc == 0 && err != nil {
			// Skip one byte and keep going on hard decode errors.
			if len(src) > 0 {
				src = src[1:]
				continue
			}
			break
		}
		src = src[nSrc:]
		if err == nil {
			break
		}
	}
	return out, nil
}
