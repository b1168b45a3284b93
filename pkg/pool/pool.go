// Package pool implements the per-host connection pool: DNS caching, socket
// dialing and TLS upgrade, and the acquire/release/close discipline that
// keeps keep-alive sockets healthy under concurrent load.
package pool

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/elliothayes/gorequest/pkg/constants"
	"github.com/elliothayes/gorequest/pkg/errors"
	"github.com/elliothayes/gorequest/pkg/timing"
	"github.com/elliothayes/gorequest/pkg/tlsconfig"
)

// Key identifies a per-host pool: (host, port, TLS).
type Key struct {
	Host string
	Port int
	TLS  bool
}

func (k Key) String() string {
	scheme := "http"
	if k.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, k.Host, k.Port)
}

const dnsCacheTTL = 60 * time.Second

// dnsCacheEntry holds resolved addresses for a host with an expiry.
type dnsCacheEntry struct {
	addrs  []net.IP
	expiry time.Time
}

// Config configures dialing and pool retention behavior for a Pool.
type Config struct {
	// MaxIdle is the maximum number of idle connections retained per host.
	MaxIdle int

	// MaxIdleAge is the maximum time a connection may sit idle before it is
	// closed instead of reused.
	MaxIdleAge time.Duration

	// ConnTimeout bounds DNS + TCP connect + TLS handshake when no per-call
	// timeout is supplied.
	ConnTimeout time.Duration

	// TLSConfig is the base TLS configuration to clone per connection (SNI,
	// min/max version, cipher suites are layered on top of it).
	TLSConfig *tls.Config

	// ServerName overrides SNI and certificate verification hostname; empty
	// means use the pool key's host.
	ServerName string

	Resolver *net.Resolver
}

func defaultConfig() Config {
	return Config{
		MaxIdle:     8,
		MaxIdleAge:  constants.DefaultIdleTimeout,
		ConnTimeout: constants.DefaultConnTimeout,
	}
}

// conn wraps a pooled net.Conn with pool bookkeeping.
type conn struct {
	net.Conn
	createdAt time.Time
	lastUsed  time.Time
}

// Pool manages connections for a single (host, port, tls) key.
type Pool struct {
	key    Key
	config Config

	mu       sync.Mutex
	idle     []*conn // head = index 0 = most recently released
	inUse    map[net.Conn]struct{}
	closed   bool
	creating int

	dnsMu  sync.Mutex
	dns    *dnsCacheEntry
	tlsMu  sync.Mutex
	tlsCfg *tls.Config // cached, built once per pool
}

// New creates a Pool for the given key. Zero-value Config fields fall back
// to defaults.
func New(key Key, cfg Config) *Pool {
	def := defaultConfig()
	if cfg.MaxIdle <= 0 {
		cfg.MaxIdle = def.MaxIdle
	}
	if cfg.MaxIdleAge <= 0 {
		cfg.MaxIdleAge = def.MaxIdleAge
	}
	if cfg.ConnTimeout <= 0 {
		cfg.ConnTimeout = def.ConnTimeout
	}
	if cfg.Resolver == nil {
		cfg.Resolver = net.DefaultResolver
	}
	return &Pool{
		key:    key,
		config: cfg,
		inUse:  make(map[net.Conn]struct{}),
	}
}

// Acquire returns a usable connection: an idle one if available and still
// fresh, otherwise a newly dialed one. timeout bounds the dial (DNS +
// connect + TLS handshake); zero falls back to the pool's ConnTimeout.
// The second return value reports
// whether the connection was reused from the idle list rather than dialed.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration, timer *timing.Timer) (net.Conn, bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, false, errors.NewPoolClosedError(p.key.String())
	}
	// Take the whole idle list out from under the lock so the per-entry
	// liveness probe (a real socket read) doesn't block every other
	// Acquire/Release on this pool while it runs.
	candidates := p.idle
	p.idle = nil
	p.mu.Unlock()

	for i, c := range candidates {
		if time.Since(c.createdAt) > p.config.MaxIdleAge || !connAlive(c.Conn) {
			c.Conn.Close()
			continue
		}

		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			c.Conn.Close()
			for _, rest := range candidates[i+1:] {
				rest.Conn.Close()
			}
			return nil, false, errors.NewPoolClosedError(p.key.String())
		}
		p.inUse[c.Conn] = struct{}{}
		// Entries released concurrently while we scanned are newer; keep
		// them at the head ahead of the untouched remainder.
		p.idle = append(p.idle, candidates[i+1:]...)
		p.mu.Unlock()
		return c.Conn, true, nil
	}

	if timeout <= 0 {
		timeout = p.config.ConnTimeout
	}
	dialCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	c, err := p.dial(dialCtx, timer)
	if err != nil {
		if dialCtx.Err() == context.DeadlineExceeded {
			return nil, false, errors.NewTimeoutError("acquire", timeout)
		}
		return nil, false, err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		c.Close()
		return nil, false, errors.NewPoolClosedError(p.key.String())
	}
	p.inUse[c] = struct{}{}
	p.mu.Unlock()

	return c, false, nil
}

// Release returns conn to the head of the idle list if keepAlive is true
// and the pool is open; otherwise the connection is closed. When the idle
// list is already at MaxIdle, its oldest entry is evicted and closed to
// make room.
func (p *Pool) Release(c net.Conn, keepAlive bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inUse, c)

	if p.closed || !keepAlive {
		c.Close()
		return
	}

	if len(p.idle) >= p.config.MaxIdle {
		// Oldest-inserted sits at the tail since new entries are pushed to
		// the head; evict it to make room.
		oldest := p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
		oldest.Conn.Close()
	}

	pc := &conn{Conn: c, createdAt: time.Now(), lastUsed: time.Now()}
	p.idle = append([]*conn{pc}, p.idle...)
}

// Close closes every idle and in-use connection and marks the pool closed.
// Idempotent.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for _, c := range p.idle {
		c.Conn.Close()
	}
	p.idle = nil

	for c := range p.inUse {
		c.Close()
	}
	p.inUse = make(map[net.Conn]struct{})

	return nil
}

// Stats reports current idle/in-use counts for diagnostics.
type Stats struct {
	Idle  int
	InUse int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Idle: len(p.idle), InUse: len(p.inUse)}
}

// dial resolves the host (consulting the pool's DNS cache), tries each
// candidate address in order until one connects, then upgrades to TLS if
// the pool key requires it, and applies socket tuning.
func (p *Pool) dial(ctx context.Context, timer *timing.Timer) (net.Conn, error) {
	addrs, err := p.resolve(ctx, timer)
	if err != nil {
		return nil, err
	}

	var lastErr error
	var tcpConn net.Conn

	if timer != nil {
		timer.StartTCP()
	}
	dialer := &net.Dialer{}
	for _, ip := range addrs {
		addr := net.JoinHostPort(ip.String(), strconv.Itoa(p.key.Port))
		c, dialErr := dialer.DialContext(ctx, "tcp", addr)
		if dialErr != nil {
			lastErr = dialErr
			continue
		}
		tcpConn = c
		break
	}
	if timer != nil {
		timer.EndTCP()
	}

	if tcpConn == nil {
		return nil, errors.NewConnectionError(p.key.Host, p.key.Port, lastErr)
	}

	tuneSocket(tcpConn)

	if !p.key.TLS {
		return tcpConn, nil
	}

	if timer != nil {
		timer.StartTLS()
	}
	tlsConn, err := p.upgradeTLS(ctx, tcpConn)
	if timer != nil {
		timer.EndTLS()
	}
	if err != nil {
		tcpConn.Close()
		return nil, errors.NewTLSError(p.key.Host, p.key.Port, err)
	}
	return tlsConn, nil
}

// resolve returns the candidate address list for the pool's host, consulting
// and refreshing a 60s-TTL DNS cache entry.
func (p *Pool) resolve(ctx context.Context, timer *timing.Timer) ([]net.IP, error) {
	p.dnsMu.Lock()
	if p.dns != nil && time.Now().Before(p.dns.expiry) {
		addrs := p.dns.addrs
		p.dnsMu.Unlock()
		return addrs, nil
	}
	p.dnsMu.Unlock()

	if timer != nil {
		timer.StartDNS()
		defer timer.EndDNS()
	}

	if ip := net.ParseIP(p.key.Host); ip != nil {
		addrs := []net.IP{ip}
		p.dnsMu.Lock()
		p.dns = &dnsCacheEntry{addrs: addrs, expiry: time.Now().Add(dnsCacheTTL)}
		p.dnsMu.Unlock()
		return addrs, nil
	}

	ipAddrs, err := p.config.Resolver.LookupIPAddr(ctx, p.key.Host)
	if err != nil {
		return nil, errors.NewDNSError(p.key.Host, err)
	}
	if len(ipAddrs) == 0 {
		return nil, errors.NewDNSError(p.key.Host, errors.NewValidationError("no addresses found"))
	}

	addrs := make([]net.IP, len(ipAddrs))
	for i, a := range ipAddrs {
		addrs[i] = a.IP
	}

	p.dnsMu.Lock()
	p.dns = &dnsCacheEntry{addrs: addrs, expiry: time.Now().Add(dnsCacheTTL)}
	p.dnsMu.Unlock()

	return addrs, nil
}

// upgradeTLS builds (once, then reuses) the pool's TLS config and performs
// the handshake using the original unresolved hostname for SNI.
func (p *Pool) upgradeTLS(ctx context.Context, raw net.Conn) (net.Conn, error) {
	cfg := p.tlsConfigForHandshake()

	tlsConn := tls.Client(raw, cfg)
	handshakeCtx := ctx
	var cancel context.CancelFunc
	if p.config.ConnTimeout > 0 {
		handshakeCtx, cancel = context.WithTimeout(ctx, p.config.ConnTimeout)
		defer cancel()
	}
	if err := tlsConn.HandshakeContext(handshakeCtx); err != nil {
		return nil, err
	}
	return tlsConn, nil
}

func (p *Pool) tlsConfigForHandshake() *tls.Config {
	p.tlsMu.Lock()
	defer p.tlsMu.Unlock()

	if p.tlsCfg != nil {
		return p.tlsCfg.Clone()
	}

	var cfg *tls.Config
	if p.config.TLSConfig != nil {
		cfg = p.config.TLSConfig.Clone()
	} else {
		cfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if cfg.ServerName == "" {
		if p.config.ServerName != "" {
			cfg.ServerName = p.config.ServerName
		} else {
			cfg.ServerName = p.key.Host
		}
	}

	if cfg.MinVersion == 0 {
		tlsconfig.ApplyVersionProfile(cfg, tlsconfig.ProfileSecure)
	}
	if len(cfg.CipherSuites) == 0 {
		tlsconfig.ApplyCipherSuites(cfg, cfg.MinVersion)
	}

	p.tlsCfg = cfg
	return cfg.Clone()
}

// tuneSocket applies best-effort socket tuning: disable Nagle, enable TCP
// keepalive, 256 KiB send/receive buffers. Failures are ignored.
func tuneSocket(c net.Conn) {
	tcpConn, ok := c.(*net.TCPConn)
	if !ok {
		return
	}
	const bufSize = 256 * 1024
	_ = tcpConn.SetNoDelay(true)
	_ = tcpConn.SetKeepAlive(true)
	_ = tcpConn.SetKeepAlivePeriod(30 * time.Second)
	_ = tcpConn.SetReadBuffer(bufSize)
	_ = tcpConn.SetWriteBuffer(bufSize)
}

// connAlive does a best-effort liveness probe on an idle connection: a
// pending read that times out immediately means the peer hasn't closed or
// sent unexpected data.
func connAlive(c net.Conn) bool {
	c.SetReadDeadline(time.Now().Add(1 * time.Millisecond))
	defer c.SetReadDeadline(time.Time{})

	one := make([]byte, 1)
	_, err := c.Read(one)
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	return false
}
