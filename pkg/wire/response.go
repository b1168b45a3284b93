package wire

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/elliothayes/gorequest/pkg/constants"
	"github.com/elliothayes/gorequest/pkg/errors"
)

const maxHeaderBytes = 1024 * 1024

// Response is the result of parsing one HTTP/1.1 response message.
type Response struct {
	Status    int
	Reason    string
	Headers   *Headers
	Body      []byte
	KeepAlive bool
}

// ParseResponse reads one HTTP/1.1 response from r. method is the request
// method that produced this response (HEAD responses never carry a body
// regardless of framing headers).
func ParseResponse(r *bufio.Reader, method string) (*Response, error) {
	statusLine, err := readLine(r)
	if err != nil {
		return nil, errors.NewProtocolError("reading status line", err)
	}

	resp := &Response{Headers: NewHeaders(), KeepAlive: true}
	if err := parseStatusLine(statusLine, resp); err != nil {
		return nil, err
	}

	if err := readHeaderBlock(r, resp.Headers); err != nil {
		return nil, err
	}

	if strings.EqualFold(resp.Headers.Get("Connection"), "close") {
		resp.KeepAlive = false
	}

	body, err := readBody(r, resp, method)
	if err != nil {
		return nil, err
	}
	resp.Body = body

	return resp, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// parseStatusLine splits on SP into up to three tokens: version, status,
// reason. The reason phrase may be empty or contain spaces.
func parseStatusLine(line string, resp *Response) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return errors.NewProtocolError("malformed status line", nil)
	}

	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return errors.NewProtocolError("non-integer status code", err)
	}
	resp.Status = code

	if len(parts) == 3 {
		resp.Reason = parts[2]
	}

	return nil
}

// readHeaderBlock reads lines until the terminating CRLF, splitting each on
// the first ':'. Names are trimmed and stored case-preservingly; values are
// trimmed of surrounding whitespace.
func readHeaderBlock(r *bufio.Reader, headers *Headers) error {
	total := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return errors.NewProtocolError("reading headers", err)
		}

		total += len(line)
		if total > maxHeaderBytes {
			return errors.NewProtocolError("header block exceeds maximum size", nil)
		}

		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			return nil
		}

		idx := strings.IndexByte(trimmed, ':')
		if idx < 0 {
			continue
		}

		name := strings.TrimSpace(trimmed[:idx])
		value := strings.TrimSpace(trimmed[idx+1:])
		headers.Add(name, value)
	}
}

// readBody dispatches on the framing headers: Content-Length, chunked
// Transfer-Encoding, or — absent both — an empty body. HEAD responses and
// 1xx/204/304 never carry a body.
func readBody(r *bufio.Reader, resp *Response, method string) ([]byte, error) {
	if method == "HEAD" ||
		(resp.Status >= 100 && resp.Status < 200) ||
		resp.Status == 204 || resp.Status == 304 {
		return nil, nil
	}

	te := resp.Headers.Get("Transfer-Encoding")
	cl := resp.Headers.Get("Content-Length")

	switch {
	case strings.Contains(strings.ToLower(te), "chunked"):
		return readChunkedBody(r, resp.Headers)
	case cl != "":
		length, err := strconv.ParseInt(strings.TrimSpace(cl), 10, 64)
		if err != nil {
			return nil, errors.NewProtocolError("invalid content-length", err)
		}
		if length < 0 {
			return nil, errors.NewProtocolError("negative content-length", nil)
		}
		if length > constants.MaxContentLength {
			return nil, errors.NewProtocolError("content-length exceeds maximum", nil)
		}
		return readFixedBody(r, length)
	default:
		// Neither framing header present: the body is empty. No
		// read-until-close on a connection we intend to keep alive.
		return nil, nil
	}
}

// readChunkedBody reads size-prefixed chunks until a zero-size chunk,
// concatenating their payloads, then drains trailer lines into headers.
func readChunkedBody(r *bufio.Reader, headers *Headers) ([]byte, error) {
	var body []byte

	for {
		line, err := readLine(r)
		if err != nil {
			return nil, errors.NewProtocolError("reading chunk size", err)
		}

		sizeStr := strings.SplitN(line, ";", 2)[0]
		size, err := strconv.ParseInt(strings.TrimSpace(sizeStr), 16, 64)
		if err != nil {
			return nil, errors.NewProtocolError("invalid chunk size", err)
		}

		if size == 0 {
			break
		}

		if int64(len(body))+size > constants.MaxContentLength {
			return nil, errors.NewProtocolError("chunked body exceeds maximum size", nil)
		}

		chunk := make([]byte, size)
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, errors.NewProtocolError("short read in chunk body", err)
		}
		body = append(body, chunk...)

		crlf := make([]byte, 2)
		if _, err := io.ReadFull(r, crlf); err != nil {
			return nil, errors.NewProtocolError("reading chunk CRLF", err)
		}
	}

	for {
		line, err := readLine(r)
		if err != nil {
			return nil, errors.NewProtocolError("reading chunk trailer", err)
		}
		if line == "" {
			break
		}
		if idx := strings.IndexByte(line, ':'); idx >= 0 {
			headers.Add(strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]))
		}
	}

	return body, nil
}

func readFixedBody(r *bufio.Reader, length int64) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, errors.NewProtocolError("short read in fixed body", err)
	}
	return body, nil
}
