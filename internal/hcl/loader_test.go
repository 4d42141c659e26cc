package hcl

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/modgrid/internal/config"
	"github.com/specialistvlad/modgrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FullNodeFile(t *testing.T) {
	// Arrange
	ctx, _ := testutil.NewContext(t)
	dir := testutil.WriteFiles(t, map[string]string{"node.hcl": `
server {
  port = 4000
}

share "counter" {
  module   = "counter"
  settings = { start = 10, label = "main" }
}

remote "peer_counter" {
  url = "ws://10.0.0.2:18861/counter"
}

task "bump" {
  module        = "counter"
  method        = "Add"
  args          = [5, "x", true, { k = "v" }]
  interruptable = true
}

task "read" {
  module = "peer_counter"
  method = "Value"
}

task "window" {
  kind   = "prepost"
  module = "counter"
  pre    = "Pause"
  post   = "Resume"
}
`})

	// Act
	model, err := NewLoader().Load(ctx, dir)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, model.Server)
	assert.Equal(t, 4000, model.Server.Port)

	require.Len(t, model.Shares, 1)
	assert.Equal(t, &config.Share{
		Name:     "counter",
		Module:   "counter",
		Settings: map[string]any{"start": float64(10), "label": "main"},
	}, model.Shares[0])

	require.Len(t, model.Remotes, 1)
	assert.Equal(t, "ws://10.0.0.2:18861/counter", model.Remotes[0].URL)

	require.Len(t, model.Tasks, 3)
	wantTask := &config.Task{
		Name:          "bump",
		Kind:          config.KindRun,
		Module:        "counter",
		Method:        "Add",
		Args:          []any{float64(5), "x", true, map[string]any{"k": "v"}},
		Interruptable: true,
	}
	if diff := cmp.Diff(wantTask, model.Tasks[0]); diff != "" {
		t.Errorf("task mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, model.Tasks[1].Args)
	assert.False(t, model.Tasks[1].Interruptable)
	assert.Equal(t, &config.Task{
		Name:   "window",
		Kind:   config.KindPrePost,
		Module: "counter",
		Pre:    "Pause",
		Post:   "Resume",
	}, model.Tasks[2])
}

func TestLoad_DefaultsAndMerging(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	dir := testutil.WriteFiles(t, map[string]string{
		"a/server.hcl": "server {}\n",
		"b/shares.hcl": `
share "c" {
  module = "counter"
}
task "t" {
  module = "c"
  method = "Add"
  args   = 3
}
`,
		"notes.txt": "ignored",
	})

	model, err := NewLoader().Load(ctx, dir, filepath.Join(dir, "missing"))

	require.NoError(t, err)
	assert.Equal(t, config.DefaultPort, model.Server.Port)
	assert.Equal(t, map[string]any{}, model.Shares[0].Settings)
	assert.Equal(t, []any{float64(3)}, model.Tasks[0].Args, "a scalar is a one-element list")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"a.hcl": "share \"x\" {"},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "unknown block",
			files:   map[string]string{"a.hcl": "step \"x\" {}\n"},
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "missing required attribute",
			files:   map[string]string{"a.hcl": "remote \"x\" {}\n"},
			wantErr: "failed to decode HCL file",
		},
		{
			name:    "two server blocks",
			files:   map[string]string{"a.hcl": "server {}\n", "b.hcl": "server {}\n"},
			wantErr: "more than one server block",
		},
		{
			name:    "settings not an object",
			files:   map[string]string{"a.hcl": "share \"x\" {\n  module = \"counter\"\n  settings = [1]\n}\n"},
			wantErr: "settings must be an object",
		},
		{
			name:    "run task without method",
			files:   map[string]string{"a.hcl": "share \"c\" {\n  module = \"counter\"\n}\ntask \"t\" {\n  module = \"c\"\n}\n"},
			wantErr: "method must not be empty",
		},
		{
			name:    "task on unknown module",
			files:   map[string]string{"a.hcl": "task \"t\" {\n  module = \"ghost\"\n  method = \"Add\"\n}\n"},
			wantErr: "neither shared nor remote",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx, _ := testutil.NewContext(t)
			dir := testutil.WriteFiles(t, tc.files)

			_, err := NewLoader().Load(ctx, dir)

			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_SingleFilePath(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	dir := testutil.WriteFiles(t, map[string]string{"node.hcl": "share \"c\" {\n  module = \"counter\"\n}\n"})
	path := filepath.Join(dir, "node.hcl")

	model, err := NewLoader().Load(ctx, path)

	require.NoError(t, err)
	assert.Nil(t, model.Server)
	assert.Len(t, model.Shares, 1)
}
