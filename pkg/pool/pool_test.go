package pool

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startEchoListener(t *testing.T) (addr string, closeFn func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				buf := make([]byte, 4096)
				for {
					n, err := c.Read(buf)
					if err != nil {
						return
					}
					c.Write(buf[:n])
				}
			}(c)
		}
	}()

	return ln.Addr().String(), func() { ln.Close() }
}

func mustKey(t *testing.T, addr string) Key {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return Key{Host: host, Port: port}
}

func TestAcquireReleaseReuse(t *testing.T) {
	addr, closeLn := startEchoListener(t)
	defer closeLn()

	key := mustKey(t, addr)
	p := New(key, Config{})
	defer p.Close()

	ctx := context.Background()

	c1, reused, err := p.Acquire(ctx, time.Second, nil)
	require.NoError(t, err)
	require.False(t, reused, "first acquire on an empty pool must dial, not reuse")
	p.Release(c1, true)

	stats := p.Stats()
	require.Equal(t, 1, stats.Idle)
	require.Equal(t, 0, stats.InUse)

	c2, reused, err := p.Acquire(ctx, time.Second, nil)
	require.NoError(t, err)
	require.True(t, reused, "second acquire should reuse the released connection")
	require.Same(t, c1, c2, "released connection should be reused by the next acquire")

	p.Release(c2, true)
}

func TestReleaseWithoutKeepAliveCloses(t *testing.T) {
	addr, closeLn := startEchoListener(t)
	defer closeLn()

	key := mustKey(t, addr)
	p := New(key, Config{})
	defer p.Close()

	ctx := context.Background()
	c, _, err := p.Acquire(ctx, time.Second, nil)
	require.NoError(t, err)

	p.Release(c, false)

	stats := p.Stats()
	require.Equal(t, 0, stats.Idle)
}

func TestCloseIsIdempotentAndDrainsIdle(t *testing.T) {
	addr, closeLn := startEchoListener(t)
	defer closeLn()

	key := mustKey(t, addr)
	p := New(key, Config{})

	ctx := context.Background()
	c, _, err := p.Acquire(ctx, time.Second, nil)
	require.NoError(t, err)
	p.Release(c, true)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	require.Equal(t, 0, p.Stats().Idle)

	_, _, err = p.Acquire(ctx, time.Second, nil)
	require.Error(t, err)
}

func TestIdleListRespectsMaxIdle(t *testing.T) {
	addr, closeLn := startEchoListener(t)
	defer closeLn()

	key := mustKey(t, addr)
	p := New(key, Config{MaxIdle: 1})
	defer p.Close()

	ctx := context.Background()
	c1, _, err := p.Acquire(ctx, time.Second, nil)
	require.NoError(t, err)
	c2, _, err := p.Acquire(ctx, time.Second, nil)
	require.NoError(t, err)

	p.Release(c1, true)
	p.Release(c2, true)

	stats := p.Stats()
	require.LessOrEqual(t, stats.Idle, 1)
}
