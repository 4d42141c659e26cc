package task

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidTransition is returned when an event is fired from a state that forbids it.
	ErrInvalidTransition = errors.New("invalid task transition")
	// ErrNotInterruptable is returned by Pause on a task without pause/resume hooks.
	ErrNotInterruptable = errors.New("task is not interruptable")
	// ErrInvalidConfiguration is returned for tasks built or configured with missing callables.
	ErrInvalidConfiguration = errors.New("invalid task configuration")
	// ErrDuplicateTaskName is returned by Registry.Register when the name is taken.
	ErrDuplicateTaskName = errors.New("task name already registered")
	// ErrTaskNotFound is returned by Registry lookups for unknown names.
	ErrTaskNotFound = errors.New("task not registered")
)

// State is a task state machine state.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

const (
	eventRun     = "run"
	eventPause   = "pause"
	eventResume  = "resume"
	eventFinish  = "finish"
	eventPrerun  = "prerun"
	eventPostrun = "postrun"
)

// Work is the unit of work a Task executes. A returned error or a panic marks
// the attempt as failed.
type Work func(ctx context.Context, args ...any) (any, error)

// Hook is a pause, resume, pre-execution or post-execution callable.
type Hook func(ctx context.Context) error

// Outcome is the tri-state success flag of a Result.
type Outcome int8

const (
	OutcomeUnknown Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is what the last execution attempt of a task produced.
type Result struct {
	Data    any
	Outcome Outcome
	// Err is the cause of a failed attempt.
	Err error
}

// Succeeded reports whether the attempt completed without error.
func (r Result) Succeeded() bool { return r.Outcome == OutcomeSucceeded }

// EventKind names a lifecycle notification.
type EventKind string

const (
	EventStarted        EventKind = "started"
	EventPaused         EventKind = "paused"
	EventResumed        EventKind = "resumed"
	EventFinished       EventKind = "finished"
	EventPreExecStart   EventKind = "pre_exec_start"
	EventPreExecFinish  EventKind = "pre_exec_finish"
	EventPostExecStart  EventKind = "post_exec_start"
	EventPostExecFinish EventKind = "post_exec_finish"
)

// Event is published to observers after a transition completes. Result is
// only set for EventFinished.
type Event struct {
	Kind   EventKind
	Task   string
	Result *Result
	At     time.Time
}

// Observer receives task events.
type Observer func(Event)

// Unit is what the Registry stores: either a *Task or a *PrePostTask.
type Unit interface {
	Name() string
	State() State
	CanPause() bool
	Observe(Observer)
}
