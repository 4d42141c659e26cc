// Package app wires a node together: it loads the node file, builds the
// shared modules from the module catalog, starts the module server, fetches
// remote modules, registers tasks and serves the admin endpoint. It is
// decoupled from any specific entrypoint like the CLI.
package app
