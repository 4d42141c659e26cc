package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/tracing"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

const (
	// DefaultConnectTimeout bounds how long Connect waits for a peer.
	DefaultConnectTimeout = 10 * time.Second
	// DefaultRequestTimeout bounds how long a request waits for its answer.
	DefaultRequestTimeout = 10 * time.Second
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithConnectTimeout overrides DefaultConnectTimeout.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.connectTimeout = d }
}

// WithRequestTimeout overrides DefaultRequestTimeout.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.requestTimeout = d }
}

// Client opens connections to peer module servers.
type Client struct {
	connectTimeout time.Duration
	requestTimeout time.Duration
}

// NewClient creates a Client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		connectTimeout: DefaultConnectTimeout,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Conn is one socket.io connection to a peer.
type Conn struct {
	host    string
	port    uint16
	timeout time.Duration
	io      *socket.Socket
	logger  *slog.Logger

	closeOnce sync.Once
	closed    chan struct{}
}

// Connect dials host:port and waits until the peer accepts the connection.
// A refused or failed connection is returned as a *ConnectionError; a peer
// that does not answer in time yields ErrTimedOut.
func (c *Client) Connect(ctx context.Context, host string, port uint16) (*Conn, error) {
	logger := ctxlog.OrDefault(ctx).With("peer", net.JoinHostPort(host, strconv.Itoa(int(port))))
	ctx, span := tracing.StartSpan(ctx, "remote.connect", tracing.KindClient, tracing.String("peer.host", host))

	conn, err := c.connect(ctx, logger, host, port)
	tracing.EndSpan(span, err)
	return conn, err
}

func (c *Client) connect(ctx context.Context, logger *slog.Logger, host string, port uint16) (*Conn, error) {
	opts := socket.DefaultOptions()
	opts.SetTransports(types.NewSet(transports.WebSocket))
	opts.SetReconnection(false)
	opts.SetAutoConnect(false)
	opts.SetTimeout(c.connectTimeout)
	opts.SetAckTimeout(c.requestTimeout)

	baseURL := "http://" + net.JoinHostPort(host, strconv.Itoa(int(port)))
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket("/", opts)

	connected := make(chan error, 1)
	report := func(err error) {
		select {
		case connected <- err:
		default:
		}
	}

	io.Once(types.EventName("connect"), func(...any) {
		report(nil)
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := errors.New("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		report(err)
	})

	// The transport dial blocks without a deadline, so it runs off the
	// caller's goroutine and the timer below bounds the wait.
	logger.Debug("Connecting to peer.")
	opened := make(chan struct{})
	go func() {
		defer close(opened)
		io.Connect()
	}()

	abandon := func() {
		go func() {
			<-opened
			io.Disconnect()
		}()
	}

	timer := time.NewTimer(c.connectTimeout)
	defer timer.Stop()

	select {
	case err := <-connected:
		if err != nil {
			abandon()
			logger.Error("Cannot connect to peer.", "error", err)
			return nil, &ConnectionError{Host: host, Port: port, Err: err}
		}
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	case <-timer.C:
		abandon()
		logger.Error("Peer did not answer in time.", "timeout", c.connectTimeout)
		return nil, &ConnectionError{Host: host, Port: port, Err: ErrTimedOut}
	}

	conn := &Conn{
		host:    host,
		port:    port,
		timeout: c.requestTimeout,
		io:      io,
		logger:  logger,
		closed:  make(chan struct{}),
	}
	io.On(types.EventName("disconnect"), func(reason ...any) {
		logger.Debug("Disconnected from peer.", "reason", reason)
	})
	logger.Info("Connected to peer.", "sid", io.Id())
	return conn, nil
}

// Host returns the peer host.
func (c *Conn) Host() string { return c.host }

// Port returns the peer port.
func (c *Conn) Port() uint16 { return c.port }

// Connected reports whether the underlying socket is still connected.
func (c *Conn) Connected() bool {
	select {
	case <-c.closed:
		return false
	default:
		return c.io.Connected()
	}
}

// Close disconnects from the peer. It is safe to call more than once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.io.Disconnect()
		c.logger.Debug("Connection closed.")
	})
	return nil
}

// GetModule asks the peer for the module shared under name. A peer that
// does not share name yields a Handle whose Proxy is empty, not an error.
// The returned Handle owns the connection.
func (c *Conn) GetModule(ctx context.Context, name string) (*Handle, error) {
	ctx, span := tracing.StartSpan(ctx, "remote.getModule", tracing.KindClient, tracing.String("module", name))

	reply, err := c.request(ctx, opGetModule, name)
	if err != nil {
		tracing.EndSpan(span, err)
		return nil, err
	}
	tracing.EndSpan(span, nil)

	h := newHandle(c, name)
	var payload any
	if len(reply) > 0 {
		payload = reply[0]
	}
	if ref, ok := referenceFromWire(payload); ok {
		h.proxy = &Proxy{conn: c, ref: ref}
	} else {
		c.logger.Warn("Peer does not share module.", "module", name)
		h.proxy = &Proxy{conn: c, ref: Reference{Name: name}}
	}
	return h, nil
}

// request emits op and waits for the peer's acknowledgement.
func (c *Conn) request(ctx context.Context, op string, args ...any) ([]any, error) {
	if !c.Connected() {
		return nil, ErrClosed
	}

	type answer struct {
		data []any
		err  error
	}
	answers := make(chan answer, 1)

	ack := func(data []any, err error) {
		select {
		case answers <- answer{data: data, err: err}:
		default:
		}
	}
	if err := c.io.Emit(op, append(args, ack)...); err != nil {
		return nil, fmt.Errorf("emit %s: %w", op, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case a := <-answers:
		if a.err != nil {
			return nil, fmt.Errorf("%s: %w", op, ErrTimedOut)
		}
		return a.data, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s: %w", op, ErrTimedOut)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.closed:
		return nil, ErrClosed
	}
}
