// Package native runs the search engine through cargo. There is no separate
// build step: "cargo run --release" compiles when needed and then runs.
package native

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/model"
	"github.com/seantiz/monolithium/internal/process"
	"github.com/seantiz/monolithium/internal/toolchain"
)

// Config holds the native backend's commands and paths.
type Config struct {
	// Cargo and Rustup are commands, optionally with leading arguments.
	Cargo  []string
	Rustup []string

	// PackageDir is the working directory for cargo.
	PackageDir string

	// Manifest is the Cargo.toml whose [features] become command-line flags.
	Manifest string
}

// Backend implements backend.Backend on top of cargo.
type Backend struct {
	cfg      Config
	exec     process.Executor
	resolver *toolchain.Resolver
	logger   *slog.Logger
}

// Compile-time interface satisfaction check.
var _ backend.Backend = (*Backend)(nil)

// New creates a native backend.
func New(cfg Config, e process.Executor, resolver *toolchain.Resolver, logger *slog.Logger) *Backend {
	return &Backend{
		cfg:      cfg,
		exec:     e,
		resolver: resolver,
		logger:   logger.With("backend", model.BackendNative.String()),
	}
}

// Kind returns model.BackendNative.
func (b *Backend) Kind() model.BackendKind { return model.BackendNative }

// Build makes sure a stable rust toolchain is active.
func (b *Backend) Build(ctx context.Context) error {
	return b.resolver.Ensure(ctx, toolchain.RustStable(b.cfg.Rustup))
}

// Run compiles (if needed) and runs the engine with spec.Args. Declared
// feature flags in the args are turned into cargo --features options.
func (b *Backend) Run(ctx context.Context, spec backend.Spec) (backend.Result, error) {
	cmd, err := b.Command(spec)
	if err != nil {
		return backend.Result{}, err
	}

	b.logger.Info("running engine", "command", cmd.String())
	start := time.Now()
	res, err := b.exec.Run(ctx, cmd)
	if err != nil {
		return backend.Result{}, fmt.Errorf("cargo run: %w", err)
	}
	backend.ObserveRun(model.BackendNative, res.ExitCode, start)

	return backend.Result{
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		DurationMS: int(time.Since(start).Milliseconds()),
	}, nil
}

// Command builds the cargo invocation for spec:
// cargo run --release <feature options...> -- <filtered args...>
func (b *Backend) Command(spec backend.Spec) (process.Command, error) {
	if len(b.cfg.Cargo) == 0 {
		return process.Command{}, fmt.Errorf("cargo command is not configured")
	}
	declared, err := backend.ReadCargoFeatures(b.cfg.Manifest)
	if err != nil {
		return process.Command{}, err
	}
	filtered, options := backend.Translate(spec.Args, declared, backend.CargoFeature)

	args := append([]string(nil), b.cfg.Cargo[1:]...)
	args = append(args, "run", "--release")
	args = append(args, options...)
	args = append(args, "--")
	args = append(args, filtered...)

	return process.Command{
		Path:    b.cfg.Cargo[0],
		Args:    args,
		Dir:     b.cfg.PackageDir,
		Capture: spec.Capture,
	}, nil
}

// Capabilities describes the native backend. Features are re-read from the
// manifest so the listing follows edits to Cargo.toml.
func (b *Backend) Capabilities() backend.Capabilities {
	features, err := backend.ReadCargoFeatures(b.cfg.Manifest)
	if err != nil {
		b.logger.Warn("read cargo features", "error", err)
	}
	if features == nil {
		features = []string{}
	}
	return backend.Capabilities{
		Name:      "cargo",
		Kind:      model.BackendNative,
		Toolchain: "rust stable",
		Features:  features,
	}
}
