// Package listing provides small observable collections a node exposes to
// its host application (admin endpoint, UI, telemetry): a keyed Dict and an
// ordered List. Observers are called synchronously after each change, outside
// the collection's lock, in change order for a single writer.
package listing

import (
	"sort"
	"sync"
)

// Op is the kind of change an observer is notified about.
type Op string

const (
	OpAdded    Op = "added"
	OpReplaced Op = "replaced"
	OpRemoved  Op = "removed"
)

// Change describes one mutation. Key is empty for List changes.
type Change[T any] struct {
	Op    Op
	Key   string
	Value T
}

type observers[T any] struct {
	mu  sync.RWMutex
	fns []func(Change[T])
}

func (o *observers[T]) add(fn func(Change[T])) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	o.fns = append(o.fns, fn)
	o.mu.Unlock()
}

func (o *observers[T]) notify(c Change[T]) {
	o.mu.RLock()
	fns := make([]func(Change[T]), len(o.fns))
	copy(fns, o.fns)
	o.mu.RUnlock()
	for _, fn := range fns {
		fn(c)
	}
}

// Dict is an observable map keyed by name.
type Dict[T any] struct {
	Header string

	mu    sync.RWMutex
	items map[string]T
	obs   observers[T]
}

// NewDict creates an empty Dict with a display header.
func NewDict[T any](header string) *Dict[T] {
	return &Dict[T]{Header: header, items: make(map[string]T)}
}

// Observe registers fn for every later change.
func (d *Dict[T]) Observe(fn func(Change[T])) { d.obs.add(fn) }

// Add stores v under key and reports whether an existing value was replaced.
func (d *Dict[T]) Add(key string, v T) bool {
	d.mu.Lock()
	_, replaced := d.items[key]
	d.items[key] = v
	d.mu.Unlock()

	op := OpAdded
	if replaced {
		op = OpReplaced
	}
	d.obs.notify(Change[T]{Op: op, Key: key, Value: v})
	return replaced
}

// Pop removes key and returns its value.
func (d *Dict[T]) Pop(key string) (T, bool) {
	d.mu.Lock()
	v, ok := d.items[key]
	delete(d.items, key)
	d.mu.Unlock()

	if ok {
		d.obs.notify(Change[T]{Op: OpRemoved, Key: key, Value: v})
	}
	return v, ok
}

// Get returns the value stored under key.
func (d *Dict[T]) Get(key string) (T, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.items[key]
	return v, ok
}

// Keys returns all keys in sorted order.
func (d *Dict[T]) Keys() []string {
	d.mu.RLock()
	keys := make([]string, 0, len(d.items))
	for k := range d.items {
		keys = append(keys, k)
	}
	d.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (d *Dict[T]) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.items)
}

// List is an observable, append-ordered slice.
type List[T any] struct {
	Header string

	mu    sync.RWMutex
	items []T
	obs   observers[T]
}

// NewList creates an empty List with a display header.
func NewList[T any](header string) *List[T] {
	return &List[T]{Header: header}
}

// Observe registers fn for every later change.
func (l *List[T]) Observe(fn func(Change[T])) { l.obs.add(fn) }

// Append adds v at the end of the list.
func (l *List[T]) Append(v T) {
	l.mu.Lock()
	l.items = append(l.items, v)
	l.mu.Unlock()
	l.obs.notify(Change[T]{Op: OpAdded, Value: v})
}

// RemoveFunc removes every element for which match returns true and returns
// how many were removed.
func (l *List[T]) RemoveFunc(match func(T) bool) int {
	l.mu.Lock()
	var removed []T
	kept := l.items[:0]
	for _, v := range l.items {
		if match(v) {
			removed = append(removed, v)
			continue
		}
		kept = append(kept, v)
	}
	clear(l.items[len(kept):])
	l.items = kept
	l.mu.Unlock()

	for _, v := range removed {
		l.obs.notify(Change[T]{Op: OpRemoved, Value: v})
	}
	return len(removed)
}

// Items returns a copy of the elements in insertion order.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of elements.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}
