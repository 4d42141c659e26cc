package task

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
)

// PrePostTask wraps a pre-execution and a post-execution hook around some
// externally driven work:
//
//	event    src      dst
//	prerun   stopped  paused
//	postrun  paused   stopped
//
// Each event publishes a start event, runs its hook and publishes a finish
// event. A failing hook cancels the transition and is returned.
type PrePostTask struct {
	base

	pre  Hook
	post Hook
}

// NewPrePost creates a stopped PrePostTask. Either hook may be nil.
func NewPrePost(name string, pre, post Hook, opts ...Option) (*PrePostTask, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: task name is empty", ErrInvalidConfiguration)
	}
	t := &PrePostTask{pre: pre, post: post}
	t.name = name
	for _, opt := range opts {
		opt(&t.base)
	}

	t.machine = fsm.NewFSM(
		string(StateStopped),
		fsm.Events{
			{Name: eventPrerun, Src: []string{string(StateStopped)}, Dst: string(StatePaused)},
			{Name: eventPostrun, Src: []string{string(StatePaused)}, Dst: string(StateStopped)},
		},
		fsm.Callbacks{
			"before_" + eventPrerun:  t.hook(EventPreExecStart, "pre-execution", func() Hook { return t.pre }),
			"after_" + eventPrerun:   func(context.Context, *fsm.Event) { t.publish(EventPreExecFinish, nil) },
			"before_" + eventPostrun: t.hook(EventPostExecStart, "post-execution", func() Hook { return t.post }),
			"after_" + eventPostrun:  func(context.Context, *fsm.Event) { t.publish(EventPostExecFinish, nil) },
		},
	)
	return t, nil
}

// CanPause is always false: a PrePostTask cannot be interrupted.
func (t *PrePostTask) CanPause() bool { return false }

// PreRun runs the pre-execution hook and moves the task to paused.
func (t *PrePostTask) PreRun(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.fire(ctx, eventPrerun)
}

// PostRun runs the post-execution hook and moves the task back to stopped.
func (t *PrePostTask) PostRun(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.fire(ctx, eventPostrun)
}

func (t *PrePostTask) hook(start EventKind, phase string, fn func() Hook) fsm.Callback {
	return func(ctx context.Context, e *fsm.Event) {
		t.publish(start, nil)
		if err := callHook(ctx, fn()); err != nil {
			ctxlog.OrDefault(ctx).Error("Task hook failed.", "task", t.name, "phase", phase, "error", err)
			e.Cancel(fmt.Errorf("task %q: %s: %w", t.name, phase, err))
		}
	}
}
