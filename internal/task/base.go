package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"github.com/specialistvlad/modgrid/internal/metrics"
)

// Option configures a Task or PrePostTask.
type Option func(*base)

// WithMetrics counts the task's transitions in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

// base holds what both task flavours share: identity, the transition lock,
// the fsm and the observer list.
type base struct {
	name string
	// lock serializes transitions of this task only.
	lock    sync.Mutex
	machine *fsm.FSM
	metrics *metrics.Metrics

	obsMu     sync.RWMutex
	observers []Observer
}

// Name returns the task's unique name.
func (b *base) Name() string { return b.name }

// State returns the current state. It does not wait for an in-flight transition.
func (b *base) State() State { return State(b.machine.Current()) }

// Observe registers fn for every subsequent event of this task.
func (b *base) Observe(fn Observer) {
	if fn == nil {
		return
	}
	b.obsMu.Lock()
	b.observers = append(b.observers, fn)
	b.obsMu.Unlock()
}

func (b *base) publish(kind EventKind, result *Result) {
	ev := Event{Kind: kind, Task: b.name, Result: result, At: time.Now()}
	b.obsMu.RLock()
	observers := make([]Observer, len(b.observers))
	copy(observers, b.observers)
	b.obsMu.RUnlock()

	for _, fn := range observers {
		fn(ev)
	}
}

// fire runs event through the fsm and maps its errors onto this package's.
// Callers hold b.lock.
func (b *base) fire(ctx context.Context, event string) error {
	err := b.machine.Event(ctx, event)
	if err == nil {
		b.metrics.TaskTransition(event, "ok")
		return nil
	}
	b.metrics.TaskTransition(event, "rejected")

	var canceled fsm.CanceledError
	if errors.As(err, &canceled) && canceled.Err != nil {
		return canceled.Err
	}
	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		return fmt.Errorf("%w: cannot %s task %q while %s", ErrInvalidTransition, event, b.name, invalid.State)
	}
	return fmt.Errorf("task %q: %s: %w", b.name, event, err)
}

// callHook runs fn and converts a panic into an error.
func callHook(ctx context.Context, fn Hook) (err error) {
	if fn == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}
