package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
)

// Validate checks that every share in model names a registered module type.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	logger := ctxlog.OrDefault(ctx)
	var errs []string

	for _, s := range model.Shares {
		if !r.Has(s.Module) {
			errs = append(errs, fmt.Sprintf("share '%s': module type '%s' is not compiled in (known: %s)",
				s.Name, s.Module, strings.Join(r.Types(), ", ")))
		}
	}
	if len(model.Shares) == 0 && len(model.Remotes) == 0 {
		logger.Warn("Node file declares no modules; the node will only serve what is shared at runtime.")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: registry validation failed:\n- %s", config.ErrInvalid, strings.Join(errs, "\n- "))
	}
	return nil
}
