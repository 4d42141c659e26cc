package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/modgrid/internal/metrics"
	"github.com/specialistvlad/modgrid/internal/objectstore"
	"github.com/specialistvlad/modgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tally is a minimal shareable object with observable state.
type tally struct {
	mu    sync.Mutex
	count float64
}

func (t *tally) value() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

func (t *tally) Exports() map[string]Method {
	return map[string]Method{
		"add": func(_ context.Context, args ...any) (any, error) {
			if len(args) != 1 {
				return nil, errors.New("add takes one argument")
			}
			n, ok := args[0].(float64)
			if !ok {
				return nil, fmt.Errorf("add: %v is not a number", args[0])
			}
			t.mu.Lock()
			defer t.mu.Unlock()
			t.count += n
			return t.count, nil
		},
		"boom": func(context.Context, ...any) (any, error) {
			panic("boom")
		},
		"slow": func(ctx context.Context, _ ...any) (any, error) {
			time.Sleep(500 * time.Millisecond)
			return nil, nil
		},
	}
}

func startServer(t *testing.T, store *objectstore.Store, opts ...ServerOption) *Server {
	t.Helper()
	ctx, _ := testutil.NewContext(t)
	srv := NewServer(store, opts...)
	require.NoError(t, srv.Start(ctx, 0))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	return srv
}

func dial(t *testing.T, srv *Server, opts ...ClientOption) *Conn {
	t.Helper()
	ctx, _ := testutil.NewContext(t)
	conn, err := NewClient(opts...).Connect(ctx, "127.0.0.1", uint16(srv.Port()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGetModule_ReturnsProxyForSharedObject(t *testing.T) {
	// Arrange
	ctx, _ := testutil.NewContext(t)
	store := objectstore.New()
	obj := &tally{}
	store.Share(ctx, "counter", obj)
	entry, err := store.Lookup(ctx, "counter")
	require.NoError(t, err)

	srv := startServer(t, store)
	conn := dial(t, srv)

	// Act
	h, err := conn.GetModule(ctx, "counter")

	// Assert
	require.NoError(t, err)
	p := h.Proxy()
	require.True(t, p.Valid())
	assert.Equal(t, "counter", p.Name())
	assert.Equal(t, entry.ID, p.ID(), "proxy must refer to the shared instance")
	assert.Equal(t, []string{"add", "boom", "slow"}, p.Methods())
	assert.Equal(t, "127.0.0.1", h.Host)
	assert.Equal(t, uint16(srv.Port()), h.Port)
}

func TestProxyCall_MutatesServerObject(t *testing.T) {
	// Arrange
	ctx, _ := testutil.NewContext(t)
	store := objectstore.New()
	obj := &tally{}
	store.Share(ctx, "counter", obj)
	srv := startServer(t, store)
	h, err := dial(t, srv).GetModule(ctx, "counter")
	require.NoError(t, err)

	// Act
	_, err = h.Proxy().Call(ctx, "add", 2)
	require.NoError(t, err)
	got, err := h.Proxy().Call(ctx, "add", 3)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, float64(5), got)
	assert.Equal(t, float64(5), obj.value(), "calls must reach the shared object")
}

func TestProxyCall_MethodErrorsComeBackAsCallError(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	store := objectstore.New()
	store.Share(ctx, "counter", &tally{})
	srv := startServer(t, store)
	p, err := dial(t, srv).GetModule(ctx, "counter")
	require.NoError(t, err)

	_, err = p.Proxy().Call(ctx, "add", "x")
	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "add", callErr.Method)

	_, err = p.Proxy().Call(ctx, "boom")
	require.ErrorAs(t, err, &callErr)
	assert.Contains(t, callErr.Message, "panicked")

	_, err = p.Proxy().Call(ctx, "missing")
	require.ErrorAs(t, err, &callErr)
}

func TestGetModule_UnknownNameYieldsEmptyProxy(t *testing.T) {
	// Arrange
	ctx, _ := testutil.NewContext(t)
	srvCtx, srvLogs := testutil.NewContext(t)
	store := objectstore.New()
	srv := NewServer(store)
	require.NoError(t, srv.Start(srvCtx, 0))
	t.Cleanup(func() { _ = srv.Stop(context.Background()) })
	conn := dial(t, srv)

	// Act
	h, err := conn.GetModule(ctx, "nope")

	// Assert
	require.NoError(t, err, "not found is not a protocol fault")
	require.NotNil(t, h)
	assert.False(t, h.Proxy().Valid())
	_, err = h.Proxy().Call(ctx, "add", 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Eventually(t, func() bool {
		return srvLogs.CountLevel(slog.LevelError) == 1
	}, time.Second, 10*time.Millisecond, "server must log the missing module")
}

func TestProxyCall_StaleAfterReshare(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	store := objectstore.New()
	store.Share(ctx, "counter", &tally{})
	srv := startServer(t, store)
	h, err := dial(t, srv).GetModule(ctx, "counter")
	require.NoError(t, err)

	store.Share(ctx, "counter", &tally{})

	_, err = h.Proxy().Call(ctx, "add", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNilProxyIsEmpty(t *testing.T) {
	var p *Proxy
	assert.False(t, p.Valid())
	assert.Empty(t, p.ID())
	_, err := p.Call(context.Background(), "add")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConnect_RefusedReturnsConnectionError(t *testing.T) {
	// Arrange: reserve a port, then free it so nothing listens there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	require.NoError(t, ln.Close())
	ctx, _ := testutil.NewContext(t)

	// Act
	conn, err := NewClient(WithConnectTimeout(2*time.Second)).Connect(ctx, "127.0.0.1", port)

	// Assert
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrConnection)
	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, port, connErr.Port)
}

// silentPeer accepts TCP connections and never answers on them.
func silentPeer(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var held []net.Conn
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			held = append(held, c)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range held {
			_ = c.Close()
		}
	})
	return uint16(ln.Addr().(*net.TCPAddr).Port)
}

func TestConnect_SilentPeerTimesOut(t *testing.T) {
	// Arrange
	port := silentPeer(t)
	ctx, _ := testutil.NewContext(t)
	timeout := 300 * time.Millisecond

	// Act
	start := time.Now()
	conn, err := NewClient(WithConnectTimeout(timeout)).Connect(ctx, "127.0.0.1", port)
	elapsed := time.Since(start)

	// Assert
	require.Error(t, err)
	assert.Nil(t, conn)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.ErrorIs(t, err, ErrConnection)
	assert.Less(t, elapsed, 2*timeout, "connect must not outlive its timeout")
}

func TestConnect_CancelledContext(t *testing.T) {
	// Arrange
	port := silentPeer(t)
	base, _ := testutil.NewContext(t)
	ctx, cancel := context.WithTimeout(base, 200*time.Millisecond)
	defer cancel()

	// Act
	start := time.Now()
	_, err := NewClient(WithConnectTimeout(10*time.Second)).Connect(ctx, "127.0.0.1", port)

	// Assert
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRequest_TimesOut(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	store := objectstore.New()
	store.Share(ctx, "counter", &tally{})
	srv := startServer(t, store)
	conn := dial(t, srv, WithRequestTimeout(100*time.Millisecond))
	h, err := conn.GetModule(ctx, "counter")
	require.NoError(t, err)

	_, err = h.Proxy().Call(ctx, "slow")

	assert.ErrorIs(t, err, ErrTimedOut)
}

func TestRequest_AfterCloseFails(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	srv := startServer(t, objectstore.New())
	conn := dial(t, srv)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, err := conn.GetModule(ctx, "counter")
	assert.ErrorIs(t, err, ErrClosed)
	assert.False(t, conn.Connected())
}

func TestServer_StartTwiceFails(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	srv := startServer(t, objectstore.New())

	err := srv.Start(ctx, 0)

	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestServer_StopIsIdempotentAndRestartable(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	srv := NewServer(objectstore.New())
	require.NoError(t, srv.Stop(ctx), "stopping a stopped server is a no-op")

	require.NoError(t, srv.Start(ctx, 0))
	assert.True(t, srv.Running())
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx))
	assert.False(t, srv.Running())
	assert.Zero(t, srv.Port())

	require.NoError(t, srv.Start(ctx, 0))
	require.NoError(t, srv.Stop(ctx))
}

func TestServer_RecordsRequestMetrics(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	m := metrics.New()
	store := objectstore.New()
	store.Share(ctx, "counter", &tally{})
	srv := startServer(t, store, WithServerMetrics(m))
	conn := dial(t, srv)

	_, err := conn.GetModule(ctx, "counter")
	require.NoError(t, err)
	_, err = conn.GetModule(ctx, "nope")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `modgrid_server_requests_total{op="getModule",outcome="ok"} 1`)
	assert.Contains(t, body, `modgrid_server_requests_total{op="getModule",outcome="not_found"} 1`)
}
