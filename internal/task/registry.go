package task

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
)

// Registry maps task names to tasks for one logic module. Its lock only
// guards the map; it never waits on a task's own lock, so registering tasks
// does not block their execution.
type Registry struct {
	mu    sync.Mutex
	tasks map[string]Unit
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Unit)}
}

// Register adds u under its name. A name that is already registered is
// rejected with ErrDuplicateTaskName and the existing task is kept.
func (r *Registry) Register(ctx context.Context, u Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := u.Name()
	if _, exists := r.tasks[name]; exists {
		ctxlog.OrDefault(ctx).Error("Could not register task because a task is already registered with this name.", "task", name)
		return fmt.Errorf("%w: %q", ErrDuplicateTaskName, name)
	}
	r.tasks[name] = u
	ctxlog.OrDefault(ctx).Debug("Registered task.", "task", name)
	return nil
}

// Unregister removes the task called name, if present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tasks[name]
	delete(r.tasks, name)
	return ok
}

// Get returns the task registered under name.
func (r *Registry) Get(name string) (Unit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTaskNotFound, name)
	}
	return u, nil
}

// Task returns the interruptable task registered under name.
func (r *Registry) Task(name string) (*Task, error) {
	u, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	t, ok := u.(*Task)
	if !ok {
		return nil, fmt.Errorf("task %q is a %T, not an interruptable task", name, u)
	}
	return t, nil
}

// PrePost returns the pre/post task registered under name.
func (r *Registry) PrePost(name string) (*PrePostTask, error) {
	u, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	t, ok := u.(*PrePostTask)
	if !ok {
		return nil, fmt.Errorf("task %q is a %T, not a pre/post task", name, u)
	}
	return t, nil
}

// Names returns all registered task names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	r.mu.Unlock()
	sort.Strings(names)
	return names
}

// Snapshot is a point-in-time view of one registered task.
type Snapshot struct {
	Name     string `json:"name"`
	State    State  `json:"state"`
	CanPause bool   `json:"canPause"`
}

// Snapshots returns the state of every registered task, sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.Lock()
	units := make([]Unit, 0, len(r.tasks))
	for _, u := range r.tasks {
		units = append(units, u)
	}
	r.mu.Unlock()

	out := make([]Snapshot, 0, len(units))
	for _, u := range units {
		out = append(out, Snapshot{Name: u.Name(), State: u.State(), CanPause: u.CanPause()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
