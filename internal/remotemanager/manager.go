// Package remotemanager ties a node's shared modules, its module server and
// the remote modules it has fetched from peers into one object.
package remotemanager

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/listing"
	"github.com/specialistvlad/modgrid/internal/metrics"
	"github.com/specialistvlad/modgrid/internal/objectstore"
	"github.com/specialistvlad/modgrid/internal/remote"
)

// Listing headers.
const (
	SharedModulesHeader = "Shared Modules"
	RemoteModulesHeader = "Remote Modules"
)

// Option configures a Manager.
type Option func(*Manager)

// WithMetrics records listing sizes and server metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(mgr *Manager) { mgr.metrics = m }
}

// WithClient replaces the default remote client, e.g. to change timeouts.
func WithClient(c *remote.Client) Option {
	return func(mgr *Manager) { mgr.client = c }
}

// WithHostname overrides the hostname reported in logs.
func WithHostname(h string) Option {
	return func(mgr *Manager) { mgr.hostname = h }
}

// Manager shares local modules with peers and fetches modules from them.
type Manager struct {
	hostname string
	store    *objectstore.Store
	client   *remote.Client
	server   *remote.Server
	metrics  *metrics.Metrics

	// shareMu keeps the store and the shared listing in step.
	shareMu sync.Mutex
	shared  *listing.Dict[any]
	handles *listing.List[*remote.Handle]
}

// New creates a Manager with an empty store and no running server.
func New(opts ...Option) *Manager {
	m := &Manager{
		store:   objectstore.New(),
		shared:  listing.NewDict[any](SharedModulesHeader),
		handles: listing.NewList[*remote.Handle](RemoteModulesHeader),
	}
	if h, err := os.Hostname(); err == nil {
		m.hostname = h
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.client == nil {
		m.client = remote.NewClient()
	}
	m.server = remote.NewServer(m.store, remote.WithServerMetrics(m.metrics))
	return m
}

// Hostname returns the name this node reports itself under.
func (m *Manager) Hostname() string { return m.hostname }

// Store returns the registry the module server reads from.
func (m *Manager) Store() *objectstore.Store { return m.store }

// Server returns the module server. It is stopped until CreateServer.
func (m *Manager) Server() *remote.Server { return m.server }

// SharedModules is the observable listing of shared modules.
func (m *Manager) SharedModules() *listing.Dict[any] { return m.shared }

// RemoteModules is the observable listing of fetched remote modules.
func (m *Manager) RemoteModules() *listing.List[*remote.Handle] { return m.handles }

// ShareModule makes obj available to peers under name. Sharing a name again
// replaces the previous object with a warning.
func (m *Manager) ShareModule(ctx context.Context, name string, obj any) {
	m.shareMu.Lock()
	defer m.shareMu.Unlock()
	m.store.Share(ctx, name, obj)
	m.shared.Add(name, obj)
	m.metrics.SetSharedModules(m.store.Len())
}

// UnshareModule withdraws name. Unknown names are logged as errors and
// otherwise ignored.
func (m *Manager) UnshareModule(ctx context.Context, name string) {
	m.shareMu.Lock()
	defer m.shareMu.Unlock()
	if m.store.Unshare(ctx, name) {
		m.shared.Pop(name)
	}
	m.metrics.SetSharedModules(m.store.Len())
}

// CreateServer starts the module server on port. Only one server may run per
// Manager; a second call returns remote.ErrAlreadyRunning.
func (m *Manager) CreateServer(ctx context.Context, port int) error {
	if err := m.server.Start(ctx, port); err != nil {
		return err
	}
	ctxlog.OrDefault(ctx).Info("Started module server.", "host", m.hostname, "port", m.server.Port())
	return nil
}

// StopServer stops the module server if it is running.
func (m *Manager) StopServer(ctx context.Context) error {
	return m.server.Stop(ctx)
}

// GetRemoteModule connects to host:port, fetches the module shared under
// name and records the handle in RemoteModules. The returned proxy is empty
// when the peer does not share name.
func (m *Manager) GetRemoteModule(ctx context.Context, host string, port uint16, name string) (*remote.Proxy, error) {
	conn, err := m.client.Connect(ctx, host, port)
	if err != nil {
		return nil, err
	}
	h, err := conn.GetModule(ctx, name)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	m.handles.Append(h)
	m.metrics.SetRemoteModules(m.handles.Len())
	return h.Proxy(), nil
}

// GetRemoteModuleURL is GetRemoteModule for a scheme://host:port/name URL.
func (m *Manager) GetRemoteModuleURL(ctx context.Context, rawURL string) (*remote.Proxy, error) {
	host, port, name, err := remote.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	return m.GetRemoteModule(ctx, host, port, name)
}

// ReleaseRemoteModule closes and forgets every handle fetched under name. It
// returns how many handles were released.
func (m *Manager) ReleaseRemoteModule(ctx context.Context, name string) int {
	var released []*remote.Handle
	n := m.handles.RemoveFunc(func(h *remote.Handle) bool {
		if h.Name != name {
			return false
		}
		released = append(released, h)
		return true
	})
	for _, h := range released {
		_ = h.Close()
	}
	m.metrics.SetRemoteModules(m.handles.Len())
	if n > 0 {
		ctxlog.OrDefault(ctx).Info("Released remote module.", "module", name, "handles", n)
	}
	return n
}

// Close releases every remote handle and stops the server.
func (m *Manager) Close(ctx context.Context) error {
	var handles []*remote.Handle
	m.handles.RemoveFunc(func(h *remote.Handle) bool {
		handles = append(handles, h)
		return true
	})
	var errs []error
	for _, h := range handles {
		errs = append(errs, h.Close())
	}
	m.metrics.SetRemoteModules(0)
	errs = append(errs, m.server.Stop(ctx))
	return errors.Join(errs...)
}
