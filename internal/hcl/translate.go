package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
)

func translateServer(s *serverBlock) *config.Server {
	port := config.DefaultPort
	if s.Port != nil {
		port = *s.Port
	}
	return &config.Server{Port: port}
}

func translateShare(ctx context.Context, s *shareBlock) (*config.Share, error) {
	share := &config.Share{Name: s.Name, Module: s.Module, Settings: map[string]any{}}
	if !isExprDefined(s.Settings) {
		return share, nil
	}

	val, err := evalExpr(s.Settings)
	if err != nil {
		return nil, fmt.Errorf("share '%s': settings: %w", s.Name, err)
	}
	settings, ok := val.(map[string]any)
	if !ok && val != nil {
		return nil, fmt.Errorf("share '%s': settings must be an object, got %T", s.Name, val)
	}
	if settings != nil {
		share.Settings = settings
	}
	ctxlog.OrDefault(ctx).Debug("Decoded share settings.", "share", s.Name, "settings", share.Settings)
	return share, nil
}

func translateTask(ctx context.Context, t *taskBlock) (*config.Task, error) {
	task := &config.Task{
		Name:          t.Name,
		Kind:          config.KindRun,
		Module:        t.Module,
		Method:        t.Method,
		Interruptable: t.Interruptable,
		Pre:           t.Pre,
		Post:          t.Post,
	}
	if t.Kind != nil {
		task.Kind = *t.Kind
	}
	if !isExprDefined(t.Args) {
		return task, nil
	}

	val, err := evalExpr(t.Args)
	if err != nil {
		return nil, fmt.Errorf("task '%s': args: %w", t.Name, err)
	}
	switch v := val.(type) {
	case nil:
	case []any:
		task.Args = v
	default:
		// A single value is shorthand for a one-element list.
		task.Args = []any{v}
	}
	ctxlog.OrDefault(ctx).Debug("Decoded task arguments.", "task", t.Name, "args", task.Args)
	return task, nil
}

// isExprDefined reports whether an optional attribute was actually written.
// gohcl fills omitted optional expressions with a zero-width placeholder, so
// a nil check alone is not enough.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	return r.End.Byte > r.Start.Byte
}

func evalExpr(expr hcl.Expression) (any, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, diags
	}
	return ctyValueToInterface(val)
}
