package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/remote"
	"github.com/specialistvlad/modgrid/internal/task"
)

const shutdownTimeout = 5 * time.Second

// Run starts the node, runs every declared task once and then serves until
// ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if err := a.Start(ctx); err != nil {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return errors.Join(err, a.Shutdown(shutdownCtx))
	}

	a.RunTasks(ctx)

	a.logger.Info("Node is up.", "host", a.manager.Hostname(), "shared", a.manager.SharedModules().Keys())
	<-ctx.Done()
	a.logger.Info("Shutdown requested.")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Start shares modules, starts the module server, fetches remote modules,
// registers tasks and starts the admin server, in that order.
func (a *App) Start(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return remote.ErrAlreadyRunning
	}
	a.started = true
	a.mu.Unlock()

	for _, s := range a.model.Shares {
		if err := a.share(ctx, s); err != nil {
			return err
		}
	}

	if port, ok := a.serverPort(); ok {
		if err := a.manager.CreateServer(ctx, port); err != nil {
			return fmt.Errorf("failed to start module server: %w", err)
		}
	} else {
		a.logger.Info("No server block and no port flag; modules are not served to peers.")
	}

	for _, r := range a.model.Remotes {
		if err := a.fetch(ctx, r); err != nil {
			return err
		}
	}

	for _, t := range a.model.Tasks {
		if err := a.addTask(ctx, t); err != nil {
			return err
		}
	}

	if a.cfg.AdminPort > 0 {
		if err := a.startAdmin(ctx, a.cfg.AdminPort); err != nil {
			return err
		}
	}
	return nil
}

// RunTasks runs every registered *task.Task once, in name order. Failures
// are contained in the task results.
func (a *App) RunTasks(ctx context.Context) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	for _, name := range a.tasks.Names() {
		t, err := a.tasks.Task(name)
		if err != nil {
			continue
		}
		if err := t.Run(ctx); err != nil {
			a.logger.Warn("Task did not start.", "task", name, "error", err)
		}
	}
}

// Shutdown finishes running tasks and releases every network resource.
func (a *App) Shutdown(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	var errs []error

	a.mu.Lock()
	admin := a.admin
	a.admin = nil
	a.mu.Unlock()
	if admin != nil {
		errs = append(errs, admin.shutdown(ctx))
	}

	for _, name := range a.tasks.Names() {
		u, err := a.tasks.Get(name)
		if err != nil {
			continue
		}
		switch t := u.(type) {
		case *task.Task:
			if t.State() == task.StateRunning {
				err = t.Finish(ctx)
			}
		case *task.PrePostTask:
			// Pre ran without a matching post.
			if t.State() == task.StatePaused {
				err = t.PostRun(ctx)
			}
		}
		if err != nil {
			a.logger.Warn("Task could not be finished.", "task", name, "error", err)
		}
	}

	errs = append(errs, a.manager.Close(ctx))
	a.logger.Info("Node stopped.")
	return errors.Join(errs...)
}

// serverPort resolves the module server port from the flag and the node
// file. ok is false when the node should not serve at all.
func (a *App) serverPort() (port int, ok bool) {
	if a.cfg.Port != PortFromFile {
		return a.cfg.Port, true
	}
	if a.model.Server != nil {
		return a.model.Server.Port, true
	}
	return 0, false
}

func (a *App) share(ctx context.Context, s *config.Share) error {
	obj, err := a.registry.Create(ctx, s.Module, s.Settings)
	if err != nil {
		return fmt.Errorf("share '%s': %w", s.Name, err)
	}
	a.manager.ShareModule(ctx, s.Name, obj)
	a.bind(s.Name, newLocalModule(s.Name, obj))
	return nil
}

func (a *App) fetch(ctx context.Context, r *config.Remote) error {
	proxy, err := a.manager.GetRemoteModuleURL(ctx, r.URL)
	if err != nil {
		return fmt.Errorf("remote '%s': %w", r.Name, err)
	}
	if !proxy.Valid() {
		return fmt.Errorf("remote '%s': %s: %w", r.Name, r.URL, remote.ErrNotFound)
	}
	a.logger.Info("Fetched remote module.", "remote", r.Name, "url", r.URL, "methods", proxy.Methods())
	a.bind(r.Name, remoteModule{proxy: proxy})
	return nil
}

func (a *App) bind(name string, m module) {
	a.mu.Lock()
	a.modules[name] = m
	a.mu.Unlock()
}

func (a *App) lookup(name string) (module, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.modules[name]
	return m, ok
}

func (a *App) addTask(ctx context.Context, def *config.Task) error {
	mod, ok := a.lookup(def.Module)
	if !ok {
		return fmt.Errorf("task '%s': module '%s' is not available", def.Name, def.Module)
	}
	if def.Kind == config.KindPrePost {
		return a.addPrePostTask(ctx, def, mod)
	}
	if !mod.Has(def.Method) {
		return fmt.Errorf("task '%s': %w: module '%s' has no method '%s'", def.Name, task.ErrInvalidConfiguration, def.Module, def.Method)
	}

	method := def.Method
	work := func(ctx context.Context, args ...any) (any, error) {
		return mod.Call(ctx, method, args...)
	}
	t, err := task.New(def.Name, work, def.Args, task.WithMetrics(a.metrics))
	if err != nil {
		return fmt.Errorf("task '%s': %w", def.Name, err)
	}

	if def.Interruptable {
		if !mod.Has("Pause") || !mod.Has("Resume") {
			return fmt.Errorf("task '%s': %w: module '%s' cannot be paused", def.Name, task.ErrInvalidConfiguration, def.Module)
		}
		pause := func(ctx context.Context) error {
			_, err := mod.Call(ctx, "Pause")
			return err
		}
		resume := func(ctx context.Context) error {
			_, err := mod.Call(ctx, "Resume")
			return err
		}
		if err := t.MakeInterruptable(pause, resume); err != nil {
			return fmt.Errorf("task '%s': %w", def.Name, err)
		}
	}

	t.Observe(a.logTaskEvent)
	return a.tasks.Register(ctx, t)
}

// addPrePostTask registers a task whose pre and post hooks call module
// methods. Either hook may be omitted.
func (a *App) addPrePostTask(ctx context.Context, def *config.Task, mod module) error {
	hook := func(method string) (task.Hook, error) {
		if method == "" {
			return nil, nil
		}
		if !mod.Has(method) {
			return nil, fmt.Errorf("task '%s': %w: module '%s' has no method '%s'", def.Name, task.ErrInvalidConfiguration, def.Module, method)
		}
		return func(ctx context.Context) error {
			_, err := mod.Call(ctx, method)
			return err
		}, nil
	}

	pre, err := hook(def.Pre)
	if err != nil {
		return err
	}
	post, err := hook(def.Post)
	if err != nil {
		return err
	}

	t, err := task.NewPrePost(def.Name, pre, post, task.WithMetrics(a.metrics))
	if err != nil {
		return fmt.Errorf("task '%s': %w", def.Name, err)
	}
	t.Observe(a.logTaskEvent)
	return a.tasks.Register(ctx, t)
}

func (a *App) logTaskEvent(ev task.Event) {
	if ev.Result == nil {
		a.logger.Info("Task event.", "task", ev.Task, "event", ev.Kind)
		return
	}
	attrs := []any{"task", ev.Task, "event", ev.Kind, "outcome", ev.Result.Outcome.String()}
	if ev.Result.Err != nil {
		attrs = append(attrs, "error", ev.Result.Err)
	} else {
		attrs = append(attrs, "data", ev.Result.Data)
	}
	a.logger.Info("Task event.", attrs...)
}
