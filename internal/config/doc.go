// Package config defines the format-agnostic model of a node file, along
// with the Loader interface concrete formats implement.
//
// A node file declares the module server, the modules the node shares, the
// remote modules it fetches from peers and the tasks it runs against either
// kind. The `config.Model` is the single source of truth for the app
// package; the HCL implementation lives in internal/hcl.
package config
