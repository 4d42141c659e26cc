package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/specialistvlad/modgrid/internal/remote"
)

// module is anything a task can call methods on: a local share or a remote
// proxy.
type module interface {
	Call(ctx context.Context, method string, args ...any) (any, error)
	Has(method string) bool
}

// localModule calls a shared object in-process through its exports.
type localModule struct {
	name    string
	exports map[string]remote.Method
}

func newLocalModule(name string, obj any) *localModule {
	m := &localModule{name: name}
	if exp, ok := obj.(remote.Exporter); ok {
		m.exports = exp.Exports()
	}
	return m
}

func (m *localModule) Has(method string) bool {
	_, ok := m.exports[method]
	return ok
}

func (m *localModule) Call(ctx context.Context, method string, args ...any) (any, error) {
	fn, ok := m.exports[method]
	if !ok {
		return nil, fmt.Errorf("module %q has no method %q", m.name, method)
	}
	return fn(ctx, args...)
}

// remoteModule adapts a proxy to module.
type remoteModule struct {
	proxy *remote.Proxy
}

func (m remoteModule) Has(method string) bool {
	return slices.Contains(m.proxy.Methods(), method)
}

func (m remoteModule) Call(ctx context.Context, method string, args ...any) (any, error) {
	return m.proxy.Call(ctx, method, args...)
}
