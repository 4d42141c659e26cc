package env_vars

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/specialistvlad/modgrid/internal/registry"
	"github.com/specialistvlad/modgrid/internal/remote"
)

// TypeName is the catalog name of this module.
const TypeName = "env_vars"

// Module implements the registry.Module interface for this package.
type Module struct{}

// Env exposes the environment of the node that shares it. Only variables
// whose names start with Prefix are visible.
type Env struct {
	Prefix string
}

// New creates an Env. The optional "prefix" setting restricts which
// variables peers may read.
func New(_ context.Context, settings map[string]any) (any, error) {
	e := &Env{}
	if raw, ok := settings["prefix"]; ok {
		prefix, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("setting 'prefix' must be a string, got %T", raw)
		}
		e.Prefix = prefix
	}
	return e, nil
}

// All returns every visible variable.
func (e *Env) All() map[string]any {
	envMap := make(map[string]any)
	for _, kv := range os.Environ() {
		pair := strings.SplitN(kv, "=", 2)
		if len(pair) == 2 && strings.HasPrefix(pair[0], e.Prefix) {
			envMap[pair[0]] = pair[1]
		}
	}
	return envMap
}

// Get returns one visible variable and whether it is set.
func (e *Env) Get(name string) (string, bool) {
	if !strings.HasPrefix(name, e.Prefix) {
		return "", false
	}
	return os.LookupEnv(name)
}

// Names returns the sorted names of every visible variable.
func (e *Env) Names() []string {
	all := e.All()
	names := make([]string, 0, len(all))
	for k := range all {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Exports implements remote.Exporter.
func (e *Env) Exports() map[string]remote.Method {
	return map[string]remote.Method{
		"All": func(context.Context, ...any) (any, error) {
			return e.All(), nil
		},
		"Get": func(_ context.Context, args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("Get takes one argument, got %d", len(args))
			}
			name, ok := args[0].(string)
			if !ok {
				return nil, fmt.Errorf("Get: name must be a string, got %T", args[0])
			}
			v, ok := e.Get(name)
			if !ok {
				return nil, nil
			}
			return v, nil
		},
	}
}

// Register registers the module type with the catalog.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFactory(TypeName, New)
}
