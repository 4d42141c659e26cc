// Package counter provides a shareable numeric counter. It is the smallest
// module that shows remote calls mutating state on the sharing node, and it
// supports pause and resume so interruptable tasks can drive it.
package counter

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/registry"
	"github.com/specialistvlad/modgrid/internal/remote"
)

// TypeName is the catalog name of this module.
const TypeName = "counter"

// ErrPaused is returned by Add while the counter is paused.
var ErrPaused = errors.New("counter is paused")

// Module implements the registry.Module interface for this package.
type Module struct{}

// Counter is a float64 counter safe for concurrent use.
type Counter struct {
	mu     sync.Mutex
	value  float64
	start  float64
	paused bool
}

// New creates a Counter. The optional "start" setting sets the initial and
// reset value.
func New(_ context.Context, settings map[string]any) (any, error) {
	c := &Counter{}
	if raw, ok := settings["start"]; ok {
		start, ok := raw.(float64)
		if !ok {
			return nil, fmt.Errorf("setting 'start' must be a number, got %T", raw)
		}
		c.start, c.value = start, start
	}
	return c, nil
}

// Add increases the counter by n and returns the new value.
func (c *Counter) Add(n float64) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return c.value, ErrPaused
	}
	c.value += n
	return c.value, nil
}

// Value returns the current value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Reset restores the start value.
func (c *Counter) Reset() {
	c.mu.Lock()
	c.value = c.start
	c.mu.Unlock()
}

// Pause makes Add fail until Resume.
func (c *Counter) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Resume undoes Pause.
func (c *Counter) Resume() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Paused reports whether the counter is paused.
func (c *Counter) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// Exports implements remote.Exporter.
func (c *Counter) Exports() map[string]remote.Method {
	return map[string]remote.Method{
		"Add": func(ctx context.Context, args ...any) (any, error) {
			n := 1.0
			if len(args) > 0 {
				v, ok := args[0].(float64)
				if !ok {
					return nil, fmt.Errorf("Add: argument must be a number, got %T", args[0])
				}
				n = v
			}
			value, err := c.Add(n)
			if err != nil {
				return nil, err
			}
			ctxlog.OrDefault(ctx).Debug("Counter increased.", "by", n, "value", value)
			return value, nil
		},
		"Value": func(context.Context, ...any) (any, error) {
			return c.Value(), nil
		},
		"Reset": func(context.Context, ...any) (any, error) {
			c.Reset()
			return c.Value(), nil
		},
		"Pause": func(context.Context, ...any) (any, error) {
			c.Pause()
			return nil, nil
		},
		"Resume": func(context.Context, ...any) (any, error) {
			c.Resume()
			return nil, nil
		},
	}
}

// Register registers the module type with the catalog.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterFactory(TypeName, New)
}
