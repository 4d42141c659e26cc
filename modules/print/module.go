package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/registry"
	"github.com/specialistvlad/modgrid/internal/remote"
)

// TypeName is the catalog name of this module.
const TypeName = "print"

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives printed lines. Defaults to os.Stdout.
	Out io.Writer
}

// Printer writes values it receives, local or remote, to its node's output.
type Printer struct {
	mu      sync.Mutex
	out     io.Writer
	prefix  string
	printed int
}

// NewPrinter creates a Printer writing to out. The optional "prefix" setting
// is written before every line.
func NewPrinter(out io.Writer, settings map[string]any) (*Printer, error) {
	p := &Printer{out: out}
	if raw, ok := settings["prefix"]; ok {
		prefix, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("setting 'prefix' must be a string, got %T", raw)
		}
		p.prefix = prefix
	}
	return p, nil
}

// Print writes each value on its own line. Maps are printed one key per
// line in sorted key order so output is stable.
func (p *Printer) Print(ctx context.Context, values ...any) int {
	ctxlog.OrDefault(ctx).Info("Printing input", "values", len(values))

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(values) == 0 {
		fmt.Fprintf(p.out, "%s      (null)\n", p.prefix)
	}
	for _, v := range values {
		m, ok := v.(map[string]any)
		if !ok {
			fmt.Fprintf(p.out, "%s      %v\n", p.prefix, v)
			continue
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(p.out, "%s      %s = %q\n", p.prefix, k, fmt.Sprint(m[k]))
		}
	}
	p.printed++
	return p.printed
}

// Exports implements remote.Exporter.
func (p *Printer) Exports() map[string]remote.Method {
	return map[string]remote.Method{
		"Print": func(ctx context.Context, args ...any) (any, error) {
			return p.Print(ctx, args...), nil
		},
	}
}

// Register registers the module type with the catalog.
func (m *Module) Register(r *registry.Registry) {
	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	r.RegisterFactory(TypeName, func(_ context.Context, settings map[string]any) (any, error) {
		return NewPrinter(out, settings)
	})
}
