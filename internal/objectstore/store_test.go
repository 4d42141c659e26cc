package objectstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/specialistvlad/modgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ n int }

func TestShareThenLookup(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewContext(t)
	s := New()
	obj := &widget{n: 1}

	replaced := s.Share(ctx, "scanner", obj)
	require.False(t, replaced)

	entry, err := s.Lookup(ctx, "scanner")
	require.NoError(t, err)
	assert.Same(t, obj, entry.Object)
	assert.Equal(t, "scanner", entry.Name)
	assert.NotEmpty(t, entry.ID)
}

func TestUnshareThenLookupIsNotFound(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewContext(t)
	s := New()
	s.Share(ctx, "scanner", &widget{})

	removed := s.Unshare(ctx, "scanner")
	require.True(t, removed)

	_, err := s.Lookup(ctx, "scanner")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestShareTwiceWarnsOnceAndKeepsLatest(t *testing.T) {
	t.Parallel()
	// --- Arrange ---
	ctx, logs := testutil.NewContext(t)
	s := New()
	first, second := &widget{n: 1}, &widget{n: 2}

	// --- Act ---
	s.Share(ctx, "scanner", first)
	firstEntry, err := s.Lookup(ctx, "scanner")
	require.NoError(t, err)
	replaced := s.Share(ctx, "scanner", second)

	// --- Assert ---
	assert.True(t, replaced)
	assert.Equal(t, 1, logs.CountLevel(slog.LevelWarn), "exactly one warning expected")
	assert.Contains(t, logs.String(), ErrAlreadyShared.Error())

	entry, err := s.Lookup(ctx, "scanner")
	require.NoError(t, err)
	assert.Same(t, second, entry.Object)
	assert.NotEqual(t, firstEntry.ID, entry.ID, "re-sharing must issue a new id")
	assert.Equal(t, 1, s.Len())
}

func TestUnshareUnknownLogsErrorAndLeavesStoreUnchanged(t *testing.T) {
	t.Parallel()
	ctx, logs := testutil.NewContext(t)
	s := New()
	s.Share(ctx, "kept", &widget{})

	removed := s.Unshare(ctx, "ghost")

	assert.False(t, removed)
	assert.Equal(t, 1, logs.CountLevel(slog.LevelError))
	assert.Contains(t, logs.String(), ErrNotShared.Error())
	assert.Equal(t, []string{"kept"}, s.Names(ctx))
}

func TestLookupWorksWithoutLoggerInContext(t *testing.T) {
	t.Parallel()
	s := New()
	_, err := s.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestStore_ConcurrentAccess checks that readers and writers can interleave
// without races or lost writes.
func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	ctx, _ := testutil.NewContext(t)
	s := New()
	numGoroutines := 50
	var wg sync.WaitGroup

	wg.Add(numGoroutines * 2)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			s.Share(ctx, fmt.Sprintf("module-%d", i), &widget{n: i})
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = s.Lookup(ctx, fmt.Sprintf("module-%d", i))
			_ = s.Names(ctx)
		}(i)
	}
	wg.Wait()

	require.Equal(t, numGoroutines, s.Len())
	for i := 0; i < numGoroutines; i++ {
		entry, err := s.Lookup(ctx, fmt.Sprintf("module-%d", i))
		require.NoError(t, err)
		assert.Equal(t, i, entry.Object.(*widget).n)
	}
}
