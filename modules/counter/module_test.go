package counter

import (
	"context"
	"testing"

	"github.com/specialistvlad/modgrid/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCounter(t *testing.T, settings map[string]any) *Counter {
	t.Helper()
	r := registry.New()
	(&Module{}).Register(r)
	obj, err := r.Create(context.Background(), TypeName, settings)
	require.NoError(t, err)
	return obj.(*Counter)
}

func TestCounter_ExportsDriveState(t *testing.T) {
	// Arrange
	ctx := context.Background()
	c := newCounter(t, map[string]any{"start": float64(10)})
	exports := c.Exports()

	// Act
	got, err := exports["Add"](ctx, float64(5))
	require.NoError(t, err)
	_, err = exports["Add"](ctx)
	require.NoError(t, err)

	// Assert
	assert.Equal(t, float64(15), got)
	assert.Equal(t, float64(16), c.Value())

	reset, err := exports["Reset"](ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(10), reset)
}

func TestCounter_PausedRejectsAdd(t *testing.T) {
	ctx := context.Background()
	c := newCounter(t, nil)
	exports := c.Exports()

	_, err := exports["Pause"](ctx)
	require.NoError(t, err)
	_, err = exports["Add"](ctx, float64(1))
	assert.ErrorIs(t, err, ErrPaused)
	assert.True(t, c.Paused())

	_, err = exports["Resume"](ctx)
	require.NoError(t, err)
	_, err = exports["Add"](ctx, float64(1))
	require.NoError(t, err)
	assert.Equal(t, float64(1), c.Value())
}

func TestCounter_RejectsBadInput(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	_, err := r.Create(context.Background(), TypeName, map[string]any{"start": "ten"})
	assert.ErrorContains(t, err, "must be a number")

	_, err = newCounter(t, nil).Exports()["Add"](context.Background(), "one")
	assert.ErrorContains(t, err, "must be a number")
}
