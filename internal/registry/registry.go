package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// ErrUnknownModule is returned by Create for a type nobody registered.
var ErrUnknownModule = errors.New("unknown module type")

// Module is the interface that all core modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Factory builds one module instance from its node file settings.
type Factory func(ctx context.Context, settings map[string]any) (any, error)

// Registry maps module type names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegisterAll calls Register on every module.
func (r *Registry) RegisterAll(modules ...Module) {
	for _, mod := range modules {
		mod.Register(r)
	}
}

// RegisterFactory adds a module type. Registering a type twice is a
// programming error and panics.
func (r *Registry) RegisterFactory(typeName string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[typeName]; exists {
		panic(fmt.Sprintf("module type '%s' already registered", typeName))
	}
	slog.Debug("Registering module type.", "type", typeName)
	r.factories[typeName] = f
}

// Has reports whether typeName is registered.
func (r *Registry) Has(typeName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[typeName]
	return ok
}

// Create builds a new instance of typeName.
func (r *Registry) Create(ctx context.Context, typeName string, settings map[string]any) (any, error) {
	r.mu.RLock()
	f, ok := r.factories[typeName]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModule, typeName)
	}
	if settings == nil {
		settings = map[string]any{}
	}
	obj, err := f(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("create module of type %q: %w", typeName, err)
	}
	return obj, nil
}

// Types returns the registered type names in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	types := make([]string, 0, len(r.factories))
	for name := range r.factories {
		types = append(types, name)
	}
	r.mu.RUnlock()
	sort.Strings(types)
	return types
}
