package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths and merges the blocks into one
// model. At most one server block may appear across all files. The merged
// model is validated before it is returned.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.OrDefault(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := &config.Model{}

	hclFiles, err := fsutil.CollectFiles(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if err := l.merge(ctx, model, &root, file); err != nil {
			return nil, err
		}
	}

	if err := model.Validate(); err != nil {
		return nil, err
	}

	logger.Debug("HCL loading complete.",
		"server", model.Server != nil,
		"shares", len(model.Shares),
		"remotes", len(model.Remotes),
		"tasks", len(model.Tasks),
	)
	return model, nil
}

func (l *Loader) merge(ctx context.Context, model *config.Model, root *fileRoot, file string) error {
	for _, s := range root.Servers {
		if model.Server != nil {
			return fmt.Errorf("%w: %s: more than one server block", config.ErrInvalid, file)
		}
		model.Server = translateServer(s)
	}
	for _, s := range root.Shares {
		share, err := translateShare(ctx, s)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		model.Shares = append(model.Shares, share)
	}
	for _, r := range root.Remotes {
		model.Remotes = append(model.Remotes, &config.Remote{Name: r.Name, URL: r.URL})
	}
	for _, t := range root.Tasks {
		task, err := translateTask(ctx, t)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		model.Tasks = append(model.Tasks, task)
	}
	return nil
}
