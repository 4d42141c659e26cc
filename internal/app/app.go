package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/metrics"
	"github.com/specialistvlad/modgrid/internal/registry"
	"github.com/specialistvlad/modgrid/internal/remote"
	"github.com/specialistvlad/modgrid/internal/remotemanager"
	"github.com/specialistvlad/modgrid/internal/task"
	"github.com/specialistvlad/modgrid/internal/tracing"
)

const (
	serviceName    = "modgrid"
	serviceVersion = "0.1.0"
)

// App encapsulates the node's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	cfg      *Config
	model    *config.Model
	registry *registry.Registry
	metrics  *metrics.Metrics
	manager  *remotemanager.Manager
	tasks    *task.Registry

	mu      sync.Mutex
	modules map[string]module
	admin   *adminServer
	started bool
}

// NewApp is the constructor for a node. It loads and validates the node
// file but does not open any sockets; see Start and Run.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, modules ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	model, err := loader.Load(ctx, cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Debug("Node file loaded.", "path", cfg.ConfigPath)

	reg := registry.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	reg.RegisterAll(modules...)
	logger.Debug("All Go modules registered.", "count", len(modules), "types", reg.Types())

	if err := reg.Validate(ctx, model); err != nil {
		return nil, err
	}
	logger.Debug("Registry validation passed.")

	if cfg.Trace {
		if err := tracing.Init(serviceName, serviceVersion, outW); err != nil {
			return nil, fmt.Errorf("failed to initialise tracing: %w", err)
		}
	}

	m := metrics.New()
	client := remote.NewClient(
		remote.WithConnectTimeout(cfg.ConnectTimeout),
		remote.WithRequestTimeout(cfg.RequestTimeout),
	)

	return &App{
		outW:     outW,
		logger:   logger,
		cfg:      cfg,
		model:    model,
		registry: reg,
		metrics:  m,
		manager:  remotemanager.New(remotemanager.WithMetrics(m), remotemanager.WithClient(client)),
		tasks:    task.NewRegistry(),
		modules:  make(map[string]module),
	}, nil
}

// Registry returns the module catalog. This is primarily for testing.
func (a *App) Registry() *registry.Registry { return a.registry }

// Manager returns the node's remote object manager.
func (a *App) Manager() *remotemanager.Manager { return a.manager }

// Tasks returns the node's task registry.
func (a *App) Tasks() *task.Registry { return a.tasks }

// Metrics returns the node's collectors.
func (a *App) Metrics() *metrics.Metrics { return a.metrics }

// Handler returns the admin HTTP handler without starting a listener.
func (a *App) Handler() http.Handler { return a.newAdminRouter() }

// AdminAddr returns the bound admin address, or "" when it is not serving.
func (a *App) AdminAddr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.admin == nil {
		return ""
	}
	return a.admin.addr.String()
}
