package testutil

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/specialistvlad/modgrid/internal/ctxlog"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// CountLevel returns how many captured records were logged at level.
func (b *SafeBuffer) CountLevel(level slog.Level) int {
	return strings.Count(b.String(), "level="+level.String())
}

// NewLogger returns a debug-level text logger writing into a fresh SafeBuffer.
// Setting MODGRID_TEST_LOGS=true mirrors the captured output through t.Log
// when the test finishes.
func NewLogger(t *testing.T) (*slog.Logger, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	if os.Getenv("MODGRID_TEST_LOGS") == "true" {
		t.Cleanup(func() { t.Log(buf.String()) })
	}
	return logger, buf
}

// NewContext returns a context carrying a captured logger, plus its buffer.
func NewContext(t *testing.T) (context.Context, *SafeBuffer) {
	t.Helper()
	logger, buf := NewLogger(t)
	return ctxlog.WithLogger(context.Background(), logger), buf
}
