package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/metrics"
	"github.com/specialistvlad/modgrid/internal/objectstore"
	"github.com/specialistvlad/modgrid/internal/tracing"
	"github.com/zishang520/socket.io/v2/socket"
)

// operation serves one request. It returns the ack payload and an outcome
// label for metrics.
type operation func(ctx context.Context, args []any) ([]any, string)

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithServerMetrics records connection and request metrics on m.
func WithServerMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) { s.metrics = m }
}

// Server exposes the modules of a Store to connected peers.
type Server struct {
	store   *objectstore.Store
	metrics *metrics.Metrics
	ops     map[string]operation

	mu      sync.Mutex
	logger  *slog.Logger
	io      *socket.Server
	httpSrv *http.Server
	addr    net.Addr
	done    chan struct{}
}

// NewServer creates a stopped Server over store.
func NewServer(store *objectstore.Store, opts ...ServerOption) *Server {
	s := &Server{store: store, logger: ctxlog.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	s.ops = map[string]operation{
		opGetModule: s.getModule,
		opCall:      s.call,
	}
	return s
}

// Start listens on port (0 picks a free one) and serves in a background
// goroutine. It returns ErrAlreadyRunning if the server is already serving.
func (s *Server) Start(ctx context.Context, port int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.httpSrv != nil {
		return ErrAlreadyRunning
	}

	logger := ctxlog.OrDefault(ctx).With("component", "module_server")
	ln, err := net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", port, err)
	}

	io := socket.NewServer(nil, nil)
	io.On("connection", func(clients ...any) {
		c, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.accept(c)
	})

	mux := http.NewServeMux()
	mux.Handle("/socket.io/", io.ServeHandler(nil))
	srv := &http.Server{Handler: mux}
	done := make(chan struct{})

	s.logger = logger
	s.io = io
	s.httpSrv = srv
	s.addr = ln.Addr()
	s.done = done

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Module server stopped unexpectedly.", "error", err)
		}
	}()

	logger.Info("Module server listening.", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil when the server is stopped.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the bound TCP port, or 0 when the server is stopped.
func (s *Server) Port() int {
	if tcp, ok := s.Addr().(*net.TCPAddr); ok {
		return tcp.Port
	}
	return 0
}

// Running reports whether the server is serving.
func (s *Server) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.httpSrv != nil
}

// Stop closes every peer connection and the listener. Stopping a stopped
// server is a no-op.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	io, srv, done, logger := s.io, s.httpSrv, s.done, s.logger
	s.io, s.httpSrv, s.addr, s.done = nil, nil, nil, nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	io.Close(nil)
	err := srv.Close()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	logger.Info("Module server stopped.")
	return err
}

func (s *Server) accept(c *socket.Socket) {
	s.mu.Lock()
	logger := s.logger
	s.mu.Unlock()

	logger = logger.With("peer", string(c.Id()))
	logger.Debug("Peer connected.")
	s.metrics.ConnectionOpened()

	c.On("disconnect", func(reason ...any) {
		logger.Debug("Peer disconnected.", "reason", reason)
		s.metrics.ConnectionClosed()
	})

	for name, op := range s.ops {
		c.On(name, func(args ...any) {
			payload, ack := splitAck(args)
			go s.serve(logger, name, op, payload, ack)
		})
	}
}

func (s *Server) serve(logger *slog.Logger, name string, op operation, args []any, ack socket.Ack) {
	ctx := ctxlog.WithLogger(context.Background(), logger)
	ctx, span := tracing.StartSpan(ctx, "remote.serve."+name, tracing.KindServer)

	reply, outcome := op(ctx, args)
	s.metrics.RequestServed(name, outcome)
	tracing.EndSpan(span, nil)

	if ack == nil {
		logger.Warn("Request without acknowledgement dropped.", "op", name)
		return
	}
	ack(reply, nil)
}

// splitAck separates the trailing acknowledgement callback from the event
// payload.
func splitAck(args []any) ([]any, socket.Ack) {
	if len(args) == 0 {
		return args, nil
	}
	if ack, ok := args[len(args)-1].(socket.Ack); ok {
		return args[:len(args)-1], ack
	}
	return args, nil
}

func (s *Server) getModule(ctx context.Context, args []any) ([]any, string) {
	logger := ctxlog.FromContext(ctx)
	name, _ := argString(args, 0)

	entry, err := s.store.Lookup(ctx, name)
	if err != nil {
		logger.Error("Requested module is not shared.", "module", name, "error", err)
		return []any{nil}, "not_found"
	}

	ref := Reference{ID: entry.ID, Name: entry.Name, Methods: exportedMethods(entry.Object)}
	logger.Debug("Handing out module reference.", "module", name, "id", entry.ID)
	return []any{ref.toWire()}, "ok"
}

func (s *Server) call(ctx context.Context, args []any) ([]any, string) {
	logger := ctxlog.FromContext(ctx)
	name, _ := argString(args, 0)
	id, _ := argString(args, 1)
	method, _ := argString(args, 2)
	var callArgs []any
	if len(args) > 3 {
		callArgs, _ = args[3].([]any)
	}

	entry, err := s.store.Lookup(ctx, name)
	if err != nil || entry.ID != id {
		logger.Warn("Call on a module that is no longer shared.", "module", name, "id", id)
		return []any{callReply{Error: ErrNotFound.Error(), NotFound: true}.toWire()}, "not_found"
	}

	exp, ok := entry.Object.(Exporter)
	if !ok {
		return []any{callReply{Error: fmt.Sprintf("module %q exports no methods", name)}.toWire()}, "error"
	}
	fn, ok := exp.Exports()[method]
	if !ok {
		return []any{callReply{Error: fmt.Sprintf("module %q has no method %q", name, method)}.toWire()}, "error"
	}

	result, err := invoke(ctx, fn, callArgs)
	if err != nil {
		logger.Error("Remote call failed.", "module", name, "method", method, "error", err)
		return []any{callReply{Error: err.Error()}.toWire()}, "error"
	}
	return []any{callReply{Result: result}.toWire()}, "ok"
}

func invoke(ctx context.Context, fn Method, args []any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("method panicked: %v", r)
		}
	}()
	return fn(ctx, args...)
}

func argString(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	s, ok := args[i].(string)
	return s, ok
}
