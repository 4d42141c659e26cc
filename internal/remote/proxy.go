package remote

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/specialistvlad/modgrid/internal/tracing"
)

// Proxy stands in for a module shared by a peer. The zero value and a nil
// *Proxy are empty: every Call fails with ErrNotFound.
type Proxy struct {
	conn *Conn
	ref  Reference
}

// Valid reports whether the proxy refers to a module the peer shared.
func (p *Proxy) Valid() bool {
	return p != nil && p.conn != nil && p.ref.ID != ""
}

// Name returns the name the module was requested under.
func (p *Proxy) Name() string {
	if p == nil {
		return ""
	}
	return p.ref.Name
}

// ID returns the identity of the remote share. Two proxies with equal IDs
// refer to the same object on the same peer.
func (p *Proxy) ID() string {
	if p == nil {
		return ""
	}
	return p.ref.ID
}

// Methods lists the methods the remote object exports.
func (p *Proxy) Methods() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.ref.Methods...)
}

// Call invokes method on the remote object and returns its result. Errors
// raised by the method come back as *CallError. A module the peer has
// unshared or re-shared since the proxy was obtained yields ErrNotFound.
func (p *Proxy) Call(ctx context.Context, method string, args ...any) (any, error) {
	if !p.Valid() {
		return nil, ErrNotFound
	}
	ctx, span := tracing.StartSpan(ctx, "remote.call", tracing.KindClient,
		tracing.String("module", p.ref.Name), tracing.String("method", method))

	result, err := p.call(ctx, method, args)
	tracing.EndSpan(span, err)
	return result, err
}

func (p *Proxy) call(ctx context.Context, method string, args []any) (any, error) {
	if args == nil {
		args = []any{}
	}
	data, err := p.conn.request(ctx, opCall, p.ref.Name, p.ref.ID, method, args)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("call %s.%s: empty reply", p.ref.Name, method)
	}
	reply, ok := callReplyFromWire(data[0])
	if !ok {
		return nil, fmt.Errorf("call %s.%s: malformed reply", p.ref.Name, method)
	}
	if reply.NotFound {
		return nil, ErrNotFound
	}
	if reply.Error != "" {
		return nil, &CallError{Module: p.ref.Name, Method: method, Message: reply.Error}
	}
	return reply.Result, nil
}

// Handle is a resolved remote module together with the connection it was
// fetched over. Closing the Handle closes that connection.
type Handle struct {
	ID   uuid.UUID
	Host string
	Port uint16
	Name string

	conn  *Conn
	proxy *Proxy
}

func newHandle(conn *Conn, name string) *Handle {
	return &Handle{
		ID:   uuid.New(),
		Host: conn.Host(),
		Port: conn.Port(),
		Name: name,
		conn: conn,
	}
}

// Proxy returns the proxy for the remote module. It is empty when the peer
// did not share the module.
func (h *Handle) Proxy() *Proxy { return h.proxy }

// URL returns the module URL the handle was resolved from.
func (h *Handle) URL() string {
	return "ws://" + net.JoinHostPort(h.Host, strconv.Itoa(int(h.Port))) + "/" + h.Name
}

// Close closes the connection owned by the handle.
func (h *Handle) Close() error {
	if h.conn == nil {
		return nil
	}
	return h.conn.Close()
}
