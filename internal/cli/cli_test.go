package cli

import (
	"bytes"
	"testing"
	"time"

	"github.com/specialistvlad/modgrid/internal/app"
	"github.com/specialistvlad/modgrid/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	// Arrange
	out := &bytes.Buffer{}

	// Act
	cfg, exit, err := Parse([]string{"node.hcl"}, out)

	// Assert
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, &app.Config{
		ConfigPath:     "node.hcl",
		Port:           app.PortFromFile,
		LogFormat:      "text",
		LogLevel:       "info",
		ConnectTimeout: remote.DefaultConnectTimeout,
		RequestTimeout: remote.DefaultRequestTimeout,
	}, cfg)
}

func TestParse_AllFlags(t *testing.T) {
	cfg, exit, err := Parse([]string{
		"-c", "nodes/",
		"-port", "0",
		"-admin-port", "9090",
		"-log-format", "JSON",
		"-log-level", "DEBUG",
		"-connect-timeout", "3s",
		"-request-timeout", "250ms",
		"-trace",
	}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, "nodes/", cfg.ConfigPath)
	assert.Equal(t, 0, cfg.Port)
	assert.Equal(t, 9090, cfg.AdminPort)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.RequestTimeout)
	assert.True(t, cfg.Trace)
}

func TestParse_ConfigFlagWinsOverPositional(t *testing.T) {
	cfg, _, err := Parse([]string{"-config", "a.hcl", "b.hcl"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.ConfigPath)
}

func TestParse_NoPathPrintsUsage(t *testing.T) {
	out := &bytes.Buffer{}

	cfg, exit, err := Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Errors(t *testing.T) {
	tests := map[string][]string{
		"bad log format":    {"-log-format", "xml", "n.hcl"},
		"bad log level":     {"-log-level", "loud", "n.hcl"},
		"port out of range": {"-port", "70000", "n.hcl"},
		"bad duration":      {"-request-timeout", "soon", "n.hcl"},
		"zero timeout":      {"-connect-timeout", "0s", "n.hcl"},
		"unknown flag":      {"-nope"},
	}

	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(args, &bytes.Buffer{})

			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
