package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/looplab/fsm"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
	"github.com/specialistvlad/modgrid/internal/tracing"
)

// Task is an interruptable unit of work. See the package documentation for
// its transition table.
type Task struct {
	base

	work Work
	args []any

	interruptable atomic.Bool
	pauseFn       Hook
	resumeFn      Hook

	// resultMu guards result apart from the transition lock so observers can
	// read it while a transition is notifying them.
	resultMu sync.RWMutex
	result   Result
}

// New creates a stopped, non-interruptable task.
func New(name string, work Work, args []any, opts ...Option) (*Task, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: task name is empty", ErrInvalidConfiguration)
	}
	if work == nil {
		return nil, fmt.Errorf("%w: task %q has no work", ErrInvalidConfiguration, name)
	}

	t := &Task{work: work, args: append([]any(nil), args...)}
	t.name = name
	for _, opt := range opts {
		opt(&t.base)
	}

	t.machine = fsm.NewFSM(
		string(StateStopped),
		fsm.Events{
			{Name: eventRun, Src: []string{string(StateStopped)}, Dst: string(StateRunning)},
			{Name: eventPause, Src: []string{string(StateRunning)}, Dst: string(StatePaused)},
			{Name: eventFinish, Src: []string{string(StateRunning)}, Dst: string(StateStopped)},
			{Name: eventResume, Src: []string{string(StatePaused)}, Dst: string(StateRunning)},
		},
		fsm.Callbacks{
			"before_" + eventPause:  t.beforePause,
			"before_" + eventResume: t.beforeResume,
			"after_" + eventRun:     func(context.Context, *fsm.Event) { t.publish(EventStarted, nil) },
			"after_" + eventPause:   func(context.Context, *fsm.Event) { t.publish(EventPaused, nil) },
			"after_" + eventResume:  func(context.Context, *fsm.Event) { t.publish(EventResumed, nil) },
			"after_" + eventFinish: func(context.Context, *fsm.Event) {
				res := t.Result()
				t.publish(EventFinished, &res)
			},
		},
	)
	return t, nil
}

// MakeInterruptable registers the pause and resume hooks. Both are required;
// if either is nil the task stays non-interruptable and
// ErrInvalidConfiguration is returned.
func (t *Task) MakeInterruptable(pauseFn, resumeFn Hook) error {
	if pauseFn == nil || resumeFn == nil {
		return fmt.Errorf("%w: task %q needs both a pause and a resume function", ErrInvalidConfiguration, t.name)
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	t.pauseFn = pauseFn
	t.resumeFn = resumeFn
	t.interruptable.Store(true)
	return nil
}

// Interruptable reports whether pause/resume hooks are registered.
func (t *Task) Interruptable() bool { return t.interruptable.Load() }

// CanPause reports whether Pause would currently be accepted.
func (t *Task) CanPause() bool {
	return t.interruptable.Load() && t.machine.Can(eventPause)
}

// Result returns the outcome of the last execution attempt.
func (t *Task) Result() Result {
	t.resultMu.RLock()
	defer t.resultMu.RUnlock()
	return t.result
}

func (t *Task) setResult(r Result) {
	t.resultMu.Lock()
	t.result = r
	t.resultMu.Unlock()
}

// Run executes the task's work under the task lock. On success the task is
// left running with a succeeded Result. A failing or panicking work function
// is logged, recorded as a failed Result and routes the task back to stopped;
// it is not returned. Run only errors when the task is not stopped.
func (t *Task) Run(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	ctx, span := tracing.StartSpan(ctx, "task.run", tracing.KindInternal, tracing.String("task", t.name))
	if err := t.fire(ctx, eventRun); err != nil {
		tracing.EndSpan(span, err)
		return err
	}

	data, err := t.execute(ctx)
	tracing.EndSpan(span, err)
	if err != nil {
		ctxlog.OrDefault(ctx).Error("Exception during task.", "task", t.name, "error", err)
		t.setResult(Result{Outcome: OutcomeFailed, Err: err})
		t.machine.SetState(string(StateStopped))
		t.metrics.TaskTransition(eventRun, "failed")
		res := t.Result()
		t.publish(EventFinished, &res)
		return nil
	}

	t.setResult(Result{Data: data, Outcome: OutcomeSucceeded})
	ctxlog.OrDefault(ctx).Debug("Task work completed.", "task", t.name)
	return nil
}

// Pause moves a running, interruptable task to paused after its pause hook
// succeeds.
func (t *Task) Pause(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.fire(ctx, eventPause)
}

// Resume moves a paused task back to running after its resume hook succeeds.
func (t *Task) Resume(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.fire(ctx, eventResume)
}

// Finish moves a running task to stopped and publishes its Result.
func (t *Task) Finish(ctx context.Context) error {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.fire(ctx, eventFinish)
}

func (t *Task) execute(ctx context.Context) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.work(ctx, t.args...)
}

func (t *Task) beforePause(ctx context.Context, e *fsm.Event) {
	if !t.interruptable.Load() {
		e.Cancel(fmt.Errorf("%w: %q", ErrNotInterruptable, t.name))
		return
	}
	if err := callHook(ctx, t.pauseFn); err != nil {
		ctxlog.OrDefault(ctx).Error("Pause function failed.", "task", t.name, "error", err)
		e.Cancel(fmt.Errorf("task %q: pause: %w", t.name, err))
	}
}

func (t *Task) beforeResume(ctx context.Context, e *fsm.Event) {
	if err := callHook(ctx, t.resumeFn); err != nil {
		ctxlog.OrDefault(ctx).Error("Resume function failed.", "task", t.name, "error", err)
		e.Cancel(fmt.Errorf("task %q: resume: %w", t.name, err))
	}
}
