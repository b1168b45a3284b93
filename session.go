// Package gorequest is a client-side HTTP/1.1 engine built around pooled,
// keep-alive TCP (optionally TLS) connections. It issues requests
// concurrently against a small set of hosts and returns fully-materialized
// responses.
package gorequest

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/elliothayes/gorequest/pkg/auth"
	"github.com/elliothayes/gorequest/pkg/constants"
	"github.com/elliothayes/gorequest/pkg/errors"
	"github.com/elliothayes/gorequest/pkg/pool"
	"github.com/elliothayes/gorequest/pkg/timing"
	"github.com/elliothayes/gorequest/pkg/wire"
	"github.com/rs/zerolog"
)

const defaultUserAgent = "gorequest/" + Version

// Session is a registry of per-host connection pools plus the default
// headers, timeout, TLS verification policy, redirect policy, and auth
// capability applied to every request it dispatches.
type Session struct {
	mu     sync.Mutex
	pools  map[pool.Key]*pool.Pool
	tlsCtx map[bool]*tls.Config // cached TLS base config, indexed by verify flag
	closed bool

	defaultHeaders *wire.Headers
	defaultTimeout time.Duration
	verifyDefault  bool
	maxIdlePerHost int
	maxIdleAge     time.Duration
	connTimeout    time.Duration

	allowRedirectsDefault bool
	maxRedirectsDefault   int

	auth   auth.Capability
	logger *zerolog.Logger

	// Cookies and Proxies are stored for API completeness but never
	// interpreted by the core dispatch path.
	Cookies map[string]string
	Proxies map[string]string
}

// SessionOption configures a Session at construction time.
type SessionOption func(*Session)

// WithHeader sets a default header sent on every request unless overridden
// per-call.
func WithHeader(name, value string) SessionOption {
	return func(s *Session) { s.defaultHeaders.Set(name, value) }
}

// WithTimeout sets the default per-request acquire timeout.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.defaultTimeout = d }
}

// WithVerify sets the default TLS verification policy.
func WithVerify(verify bool) SessionOption {
	return func(s *Session) { s.verifyDefault = verify }
}

// WithAuth sets the session-level default auth capability.
func WithAuth(a auth.Capability) SessionOption {
	return func(s *Session) { s.auth = a }
}

// WithLogger attaches a structured logger; nil (the default) disables all
// debug-level pool/dispatch logging with zero overhead.
func WithLogger(l *zerolog.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

// WithMaxIdleConnsPerHost bounds the idle connection list retained per pool.
func WithMaxIdleConnsPerHost(n int) SessionOption {
	return func(s *Session) { s.maxIdlePerHost = n }
}

// WithMaxIdleAge bounds how long an idle connection may sit before it is
// closed instead of reused.
func WithMaxIdleAge(d time.Duration) SessionOption {
	return func(s *Session) { s.maxIdleAge = d }
}

// WithMaxRedirects sets the default redirect hop budget.
func WithMaxRedirects(n int) SessionOption {
	return func(s *Session) { s.maxRedirectsDefault = n }
}

// WithConnTimeout bounds DNS + TCP connect + TLS handshake when no
// per-request timeout is given.
func WithConnTimeout(d time.Duration) SessionOption {
	return func(s *Session) { s.connTimeout = d }
}

// NewSession builds a Session with sensible defaults, then applies opts.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		pools:                 make(map[pool.Key]*pool.Pool),
		tlsCtx:                make(map[bool]*tls.Config),
		defaultHeaders:        wire.NewHeaders(),
		defaultTimeout:        constants.DefaultReadTimeout,
		verifyDefault:         true,
		maxIdlePerHost:        8,
		maxIdleAge:            constants.DefaultIdleTimeout,
		connTimeout:           constants.DefaultConnTimeout,
		allowRedirectsDefault: true,
		maxRedirectsDefault:   10,
		Cookies:               make(map[string]string),
		Proxies:               make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) logEvent(event string, fields map[string]interface{}) {
	if s.logger == nil {
		return
	}
	ev := s.logger.Debug().Str("event", event)
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(event)
}

// tlsConfigFor returns the session's cached base TLS config for the given
// verify flag, building it on first use.
func (s *Session) tlsConfigFor(verify bool) *tls.Config {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg, ok := s.tlsCtx[verify]; ok {
		return cfg
	}
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !verify,
	}
	s.tlsCtx[verify] = cfg
	return cfg
}

// poolFor returns (lazily creating) the per-host pool for key, using the
// TLS context cached for the given verify flag.
func (s *Session) poolFor(key pool.Key, verify bool) (*pool.Pool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, errors.NewSessionClosedError()
	}
	if p, ok := s.pools[key]; ok {
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	cfg := pool.Config{
		MaxIdle:     s.maxIdlePerHost,
		MaxIdleAge:  s.maxIdleAge,
		ConnTimeout: s.connTimeout,
		ServerName:  key.Host,
	}
	if key.TLS {
		cfg.TLSConfig = s.tlsConfigFor(verify)
	}
	p := pool.New(key, cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		p.Close()
		return nil, errors.NewSessionClosedError()
	}
	if existing, ok := s.pools[key]; ok {
		p.Close()
		return existing, nil
	}
	s.pools[key] = p
	return p, nil
}

// Close closes every pool. Idempotent; subsequent requests fail with
// SessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for _, p := range s.pools {
		p.Close()
	}
	return nil
}

// PoolStats returns a snapshot of per-host pool statistics, keyed by the
// pool's (scheme://host:port) string.
func (s *Session) PoolStats() map[string]pool.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]pool.Stats, len(s.pools))
	for key, p := range s.pools {
		out[key.String()] = p.Stats()
	}
	return out
}

// Request dispatches method against url, following redirects per opts (or
// the session defaults), and returns the final Response.
func (s *Session) Request(ctx context.Context, method, rawURL string, opts *RequestOptions) (*Response, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}

	u, err := parseTargetURL(rawURL)
	if err != nil {
		return nil, err
	}

	allowRedirects := s.allowRedirectsDefault
	if opts.AllowRedirects != nil {
		allowRedirects = *opts.AllowRedirects
	}
	maxRedirects := s.maxRedirectsDefault
	if opts.MaxRedirects > 0 {
		maxRedirects = opts.MaxRedirects
	}

	var history []*Response
	curMethod := method
	curURL := u
	curOpts := opts

	for {
		start := time.Now()
		resp, err := s.dispatch(ctx, curMethod, curURL, curOpts, start)
		if err != nil {
			return nil, err
		}

		if !allowRedirects || !resp.IsRedirect() || maxRedirects <= 0 {
			resp.History = history
			return resp, nil
		}

		location := resp.Headers.Get("Location")
		if location == "" {
			resp.History = history
			return resp, nil
		}

		nextURL, err := resolveRedirectURL(curURL, location)
		if err != nil {
			resp.History = history
			return resp, nil
		}

		history = append(history, resp)
		maxRedirects--

		if resp.StatusCode == 303 {
			curMethod = "GET"
		}
		// Every redirect hop re-dispatches with headers/timeout/verify/auth
		// only; Data/JSON/Params never carry forward to the next hop.
		curOpts = &RequestOptions{Headers: curOpts.Headers, Timeout: curOpts.Timeout, Verify: curOpts.Verify, Auth: curOpts.Auth}
		curURL = nextURL
		s.logEvent("redirect.follow", map[string]interface{}{"to": nextURL.String(), "status": resp.StatusCode})
	}
}

// dispatch performs one request/response exchange: build, acquire, write,
// parse, release.
func (s *Session) dispatch(ctx context.Context, method string, u *url.URL, opts *RequestOptions, start time.Time) (*Response, error) {
	verify := s.verifyDefault
	if opts.Verify != nil {
		verify = *opts.Verify
	}

	key := pool.Key{Host: strings.ToLower(u.Hostname()), Port: portOf(u), TLS: u.Scheme == "https"}

	p, err := s.poolFor(key, verify)
	if err != nil {
		return nil, err
	}

	body, bodyContentType, err := encodeBody(opts)
	if err != nil {
		return nil, err
	}

	headers := s.buildHeaders(u, opts, bodyContentType, len(body))

	authCap := s.auth
	if opts.Auth != nil {
		authCap = opts.Auth
	}
	if authCap != nil {
		authCap.Apply(headers)
	}

	req := &wire.Request{
		Method:  method,
		Path:    pathWithQuery(u, opts.Params),
		Headers: headers,
		Body:    body,
	}
	encoded := wire.Encode(req)

	timeout := s.defaultTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	timer := timing.NewTimer()
	conn, reused, err := p.Acquire(ctx, timeout, timer)
	if err != nil {
		return nil, err
	}

	s.logEvent("conn.dial", map[string]interface{}{"host": key.Host, "reused": reused})

	timer.StartTTFB()
	resp, parseErr := s.writeAndParse(conn, encoded, method, timer)
	if parseErr != nil {
		p.Release(conn, false)
		return nil, parseErr
	}
	keepAlive := resp.KeepAlive

	p.Release(conn, keepAlive)
	s.logEvent("pool.release", map[string]interface{}{"host": key.Host, "keep_alive": keepAlive})

	elapsed := time.Since(start)
	return newResponse(resp.Status, resp.Reason, resp.Headers, resp.Body, u.String(), elapsed, timer.GetMetrics()), nil
}

func (s *Session) writeAndParse(conn net.Conn, encoded []byte, method string, timer *timing.Timer) (*wire.Response, error) {
	written := 0
	for written < len(encoded) {
		n, err := conn.Write(encoded[written:])
		if err != nil {
			return nil, errors.NewIOError("writing request", err)
		}
		written += n
	}

	reader := bufio.NewReader(conn)
	if _, err := reader.Peek(1); err != nil {
		return nil, errors.NewProtocolError("reading status line", err)
	}
	timer.EndTTFB()
	return wire.ParseResponse(reader, method)
}

// buildHeaders merges session defaults, per-call headers, and the
// always-present framing defaults (Host, Connection, Accept,
// Accept-Encoding, User-Agent), applied only when absent after the merge.
func (s *Session) buildHeaders(u *url.URL, opts *RequestOptions, bodyContentType string, bodyLen int) *wire.Headers {
	headers := s.defaultHeaders.Clone()

	for k, v := range opts.Headers {
		headers.Set(k, v)
	}

	if bodyContentType != "" && !headers.Has("Content-Type") {
		headers.Set("Content-Type", bodyContentType)
	}
	if bodyLen > 0 {
		headers.Set("Content-Length", fmt.Sprintf("%d", bodyLen))
	}

	if !headers.Has("Host") {
		headers.Set("Host", hostHeaderValue(u))
	}
	if !headers.Has("Connection") {
		headers.Set("Connection", "keep-alive")
	}
	if !headers.Has("Accept") {
		headers.Set("Accept", "*/*")
	}
	if !headers.Has("Accept-Encoding") {
		headers.Set("Accept-Encoding", "identity")
	}
	if !headers.Has("User-Agent") {
		headers.Set("User-Agent", defaultUserAgent)
	}

	return headers
}

// Gather dispatches each (method, url) pair concurrently and returns
// results positionally; the first error encountered is returned alongside
// whatever results completed.
func (s *Session) Gather(ctx context.Context, calls []MethodURL, opts *RequestOptions) ([]*Response, error) {
	results := make([]*Response, len(calls))
	errs := make([]error, len(calls))

	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		go func(i int, c MethodURL) {
			defer wg.Done()
			resp, err := s.Request(ctx, c.Method, c.URL, opts)
			results[i] = resp
			errs[i] = err
		}(i, c)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// MethodURL is one (method, url) pair for Gather.
type MethodURL struct {
	Method string
	URL    string
}

// BulkGet is a GET-only convenience wrapper over Gather.
func (s *Session) BulkGet(ctx context.Context, urls []string, opts *RequestOptions) ([]*Response, error) {
	calls := make([]MethodURL, len(urls))
	for i, u := range urls {
		calls[i] = MethodURL{Method: "GET", URL: u}
	}
	return s.Gather(ctx, calls, opts)
}

// Get, Post, Put, Delete, Patch, Head, Options are convenience wrappers
// over Request with an identical contract.
func (s *Session) Get(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, "GET", url, opts)
}

func (s *Session) Post(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, "POST", url, opts)
}

func (s *Session) Put(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, "PUT", url, opts)
}

func (s *Session) Delete(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, "DELETE", url, opts)
}

func (s *Session) Patch(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, "PATCH", url, opts)
}

func (s *Session) Head(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, "HEAD", url, opts)
}

func (s *Session) Options(ctx context.Context, url string, opts *RequestOptions) (*Response, error) {
	return s.Request(ctx, "OPTIONS", url, opts)
}
