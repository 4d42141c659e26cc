package objectstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/modgrid/internal/ctxlog"
)

var (
	// ErrNotFound is returned by Lookup when no module is shared under a name.
	ErrNotFound = errors.New("module not shared")
	// ErrAlreadyShared is attached to the warning logged when a name is re-shared.
	ErrAlreadyShared = errors.New("module already shared")
	// ErrNotShared is attached to the error logged when an unknown name is unshared.
	ErrNotShared = errors.New("module was not shared")
)

// Entry is a single shared module.
type Entry struct {
	Name   string
	Object any
	// ID identifies this particular share of Object. Sharing under the same
	// name again produces a new ID, which lets peers detect stale references.
	ID       string
	SharedAt time.Time
}

// Store is a name -> Entry map guarded by a sync.RWMutex.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// New creates an empty Store.
func New() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// Share inserts obj under name, replacing any previous entry. Replacing is
// reported as a warning and never fails. It reports whether an entry was
// replaced.
func (s *Store) Share(ctx context.Context, name string, obj any) bool {
	logger := ctxlog.OrDefault(ctx)
	entry := &Entry{
		Name:     name,
		Object:   obj,
		ID:       uuid.NewString(),
		SharedAt: time.Now(),
	}

	s.mu.Lock()
	_, replaced := s.entries[name]
	s.entries[name] = entry
	s.mu.Unlock()

	if replaced {
		logger.Warn("Module already shared, replacing it.", "module", name, "error", ErrAlreadyShared)
	}
	logger.Info("Shared module.", "module", name, "id", entry.ID)
	return replaced
}

// Unshare removes the entry for name. Unsharing a name that was never shared
// logs ErrNotShared at error level and leaves the store untouched. It reports
// whether an entry was removed.
func (s *Store) Unshare(ctx context.Context, name string) bool {
	logger := ctxlog.OrDefault(ctx)

	s.mu.Lock()
	_, ok := s.entries[name]
	delete(s.entries, name)
	s.mu.Unlock()

	if !ok {
		logger.Error("Cannot unshare module.", "module", name, "error", ErrNotShared)
		return false
	}
	logger.Info("Unshared module.", "module", name)
	return true
}

// Lookup returns the entry shared under name, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, name string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}

// Names returns the names of all shared modules in sorted order.
func (s *Store) Names(ctx context.Context) []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	s.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Len returns the number of shared modules.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
