// Package remote lets nodes hand each other references to shared modules.
//
// A Server exposes the modules of an objectstore.Store over socket.io. Its
// operations are an explicit table built when the server is constructed:
//
//	getModule(name)                      -> reference | null
//	call(name, id, method, args)         -> {result} | {error}
//
// A Client connects to a peer's Server and resolves names into Handles. A
// Handle owns exactly one connection and a Proxy for the remote object. A
// peer answering getModule with null yields a Handle with an empty Proxy;
// using an empty Proxy fails with ErrNotFound.
//
// Objects become callable through a Proxy by implementing Exporter. Call
// arguments and results travel as JSON, so numbers arrive as float64 and
// structs as map[string]any.
//
// The protocol has no authentication or encryption: any connected peer may
// request any shared name.
package remote
