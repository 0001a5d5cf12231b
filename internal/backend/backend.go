package backend

import (
	"context"
	"fmt"

	"github.com/seantiz/monolithium/internal/model"
)

// Backend is the interface that both search engine backends implement.
type Backend interface {
	// Kind identifies the backend.
	Kind() model.BackendKind

	// Build prepares the executable artifact. It verifies the toolchain and,
	// for backends with a separate build step, compiles. Repeated calls with
	// no source changes must succeed without recompiling.
	Build(ctx context.Context) error

	// Run executes the engine with spec.Args and blocks until it exits. A
	// non-zero exit code is reported in the result, not as an error.
	Run(ctx context.Context, spec Spec) (Result, error)

	// Capabilities describes the backend for listings and diagnostics.
	Capabilities() Capabilities
}

// Spec describes a single engine invocation.
type Spec struct {
	// Args are the raw command-line tokens for the engine. Feature flags are
	// stripped by backends that declare features; the slice is not modified.
	Args []string `json:"args"`

	// Capture collects the engine's standard output instead of inheriting it.
	Capture bool `json:"capture"`
}

// Result holds the outcome of an engine invocation.
type Result struct {
	ExitCode   int    `json:"exit_code"`
	Stdout     []byte `json:"-"`
	DurationMS int    `json:"duration_ms"`
}

// Capabilities describes what a backend provides.
type Capabilities struct {
	Name      string            `json:"name"`
	Kind      model.BackendKind `json:"kind"`
	Toolchain string            `json:"toolchain"`
	Features  []string          `json:"features"`
	Artifact  string            `json:"artifact,omitempty"`
}

// Build phases reported by BuildError.
const (
	PhaseConfigure = "configure"
	PhaseCompile   = "compile"
)

// BuildError is returned when a build phase exits non-zero. The pipeline
// stops before running the engine.
type BuildError struct {
	Backend  model.BackendKind
	Phase    string
	ExitCode int
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s backend %s phase failed with exit code %d", e.Backend, e.Phase, e.ExitCode)
}

// RunFailure is returned when the engine itself exits non-zero.
type RunFailure struct {
	Backend  model.BackendKind
	ExitCode int
}

func (e *RunFailure) Error() string {
	return fmt.Sprintf("%s backend exited with code %d", e.Backend, e.ExitCode)
}
