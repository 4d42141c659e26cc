package config

// Model is the unified, format-agnostic representation of a node file.
type Model struct {
	Server  *Server
	Shares  []*Share
	Remotes []*Remote
	Tasks   []*Task
}

// Server is the `server` block. A nil Server means the node shares nothing
// over the network.
type Server struct {
	Port int
}

// Share is a `share` block: build a module of type Module and share it
// under Name.
type Share struct {
	Name     string
	Module   string
	Settings map[string]any
}

// Remote is a `remote` block: fetch the module at URL and make it known
// locally as Name.
type Remote struct {
	Name string
	URL  string
}

// Task kinds.
const (
	// KindRun calls Method once when the node starts.
	KindRun = "run"
	// KindPrePost wraps externally driven work with the Pre and Post
	// methods.
	KindPrePost = "prepost"
)

// Task is a `task` block on the module known locally as Module. A run task
// calls Method with Args; a prepost task calls Pre on prerun and Post on
// postrun.
type Task struct {
	Name          string
	Kind          string
	Module        string
	Method        string
	Args          []any
	Interruptable bool
	Pre           string
	Post          string
}

// ModuleNames returns the local names tasks may refer to: every share and
// every remote.
func (m *Model) ModuleNames() map[string]struct{} {
	names := make(map[string]struct{}, len(m.Shares)+len(m.Remotes))
	for _, s := range m.Shares {
		names[s.Name] = struct{}{}
	}
	for _, r := range m.Remotes {
		names[r.Name] = struct{}{}
	}
	return names
}

// DefaultPort is used when a server block omits its port.
const DefaultPort = 18861
