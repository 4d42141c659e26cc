// Package objectstore provides the in-memory registry of modules a node
// shares with its peers.
//
// # Concurrency Model
//
// The store is read on every inbound remote request and written only when the
// application shares or unshares a module, so it uses a sync.RWMutex: any
// number of server goroutines may look entries up concurrently while writes
// are serialized.
//
// # Ownership
//
// The store keeps a non-owning reference to each shared object. The
// application that shared it stays responsible for its lifetime.
package objectstore
