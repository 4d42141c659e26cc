// Package task implements the per-module task engine: named units of work
// driven through an explicit state machine, plus the registry a logic module
// keeps them in.
//
// # State Machine
//
// An interruptable Task moves between three states:
//
//	event   src      dst
//	run     stopped  running
//	pause   running  paused
//	resume  paused   running
//	finish  running  stopped
//
// The transition table is held as data by a looplab/fsm machine. Every event
// entry point (Run, Pause, Resume, Finish) takes the task's own lock, so at
// most one transition executes at a time for a given task while different
// tasks proceed independently.
//
// A PrePostTask models the two-phase stopped <-> paused lifecycle with
// prerun/postrun events and is never pausable.
//
// # Failures
//
// Errors and panics raised by a task's work are contained: they are logged,
// recorded in the task's Result, and the task is routed back to stopped.
// Only misuse of the state machine (an event fired from the wrong state, a
// pause on a non-interruptable task, a failing pause/resume hook) is reported
// to the caller.
//
// # Events
//
// Observers registered with Observe receive a typed Event for each completed
// transition, synchronously and in transition order. Observers run while the
// task's transition lock is held: they may read the task (Name, State,
// Result, CanPause, Interruptable) but must not call Run, Pause, Resume,
// Finish, MakeInterruptable, PreRun or PostRun on it.
package task
