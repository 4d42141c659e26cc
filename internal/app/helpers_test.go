package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/specialistvlad/modgrid/internal/hcl"
	"github.com/specialistvlad/modgrid/internal/registry"
	"github.com/specialistvlad/modgrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// testConfig returns a Config with short timeouts and debug logs.
func testConfig(path string) *Config {
	return &Config{
		ConfigPath:     path,
		Port:           PortFromFile,
		LogFormat:      "text",
		LogLevel:       "debug",
		ConnectTimeout: 2 * time.Second,
		RequestTimeout: 2 * time.Second,
	}
}

// SetupAppTest writes nodeFile to a temp dir and builds an App from it. The
// app is shut down when the test ends.
func SetupAppTest(t *testing.T, nodeFile string, mutate func(*Config), modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	dir := testutil.WriteFiles(t, map[string]string{"node.hcl": nodeFile})
	path := filepath.Join(dir, "node.hcl")

	cfg := testConfig(path)
	if mutate != nil {
		mutate(cfg)
	}

	logBuffer := &testutil.SafeBuffer{}
	testApp, err := NewApp(logBuffer, cfg, hcl.NewLoader(), modules...)
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = testApp.Shutdown(ctx)
		if os.Getenv("MODGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
