// Package backend defines the common interface that both search engine
// backends (native cargo build and GPU meson/ninja build) implement, along
// with the registry that selects one, feature-flag translation, and the
// error types surfaced by build and run stages.
package backend
