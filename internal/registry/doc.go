// Package registry is the catalog of module types compiled into the binary.
//
// A module type is a factory that builds a shareable Go object from the
// settings given in a node file. Packages under modules/ implement Module and
// add their factories in Register. During startup the catalog is populated
// and then validated against the loaded node file, so a share naming an
// unknown type or a task naming an unknown module fails before anything is
// served.
package registry
