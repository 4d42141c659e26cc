package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot decodes every top-level block a node file may contain. Unknown
// blocks and attributes are decode errors.
type fileRoot struct {
	Servers []*serverBlock `hcl:"server,block"`
	Shares  []*shareBlock  `hcl:"share,block"`
	Remotes []*remoteBlock `hcl:"remote,block"`
	Tasks   []*taskBlock   `hcl:"task,block"`
}

type serverBlock struct {
	Port *int `hcl:"port,optional"`
}

type shareBlock struct {
	Name     string         `hcl:"name,label"`
	Module   string         `hcl:"module"`
	Settings hcl.Expression `hcl:"settings,optional"`
}

type remoteBlock struct {
	Name string `hcl:"name,label"`
	URL  string `hcl:"url"`
}

type taskBlock struct {
	Name          string         `hcl:"name,label"`
	Kind          *string        `hcl:"kind,optional"`
	Module        string         `hcl:"module"`
	Method        string         `hcl:"method,optional"`
	Args          hcl.Expression `hcl:"args,optional"`
	Interruptable bool           `hcl:"interruptable,optional"`
	Pre           string         `hcl:"pre,optional"`
	Post          string         `hcl:"post,optional"`
}
