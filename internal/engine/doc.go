// Package engine drives the build-then-run pipeline. Exec is the plain
// passthrough used by the rust and cuda commands; Collect runs a
// distribution collection and records it as a Run in the store.
package engine
