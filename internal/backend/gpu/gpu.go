// Package gpu builds the CUDA search engine with meson and ninja and runs the
// resulting executable.
package gpu

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/model"
	"github.com/seantiz/monolithium/internal/process"
	"github.com/seantiz/monolithium/internal/toolchain"
)

// ArtifactName is the executable meson produces in the build directory.
const ArtifactName = "monolithium"

// Config holds the GPU backend's commands and paths.
type Config struct {
	Meson []string
	Ninja []string
	NVCC  string

	// RepoRoot holds meson.build; meson setup runs there.
	RepoRoot string
	BuildDir string
}

// Backend implements backend.Backend with a meson/ninja build.
type Backend struct {
	cfg      Config
	exec     process.Executor
	resolver *toolchain.Resolver
	logger   *slog.Logger
}

// Compile-time interface satisfaction check.
var _ backend.Backend = (*Backend)(nil)

// New creates a GPU backend.
func New(cfg Config, e process.Executor, resolver *toolchain.Resolver, logger *slog.Logger) *Backend {
	return &Backend{
		cfg:      cfg,
		exec:     e,
		resolver: resolver,
		logger:   logger.With("backend", model.BackendGPU.String()),
	}
}

// Kind returns model.BackendGPU.
func (b *Backend) Kind() model.BackendKind { return model.BackendGPU }

// Artifact is the path of the built executable.
func (b *Backend) Artifact() string {
	return filepath.Join(b.cfg.BuildDir, ArtifactName)
}

// Build requires nvcc on PATH, then configures and compiles. Reconfiguring
// an existing build directory is allowed and ninja skips up-to-date units,
// so repeated builds succeed.
func (b *Backend) Build(ctx context.Context) error {
	if _, err := b.resolver.RequireBinary(b.cfg.NVCC); err != nil {
		return err
	}

	configure, err := command(b.cfg.Meson, "setup", b.cfg.BuildDir, "--buildtype", "release", "--reconfigure")
	if err != nil {
		return err
	}
	configure.Dir = b.cfg.RepoRoot
	if err := b.phase(ctx, backend.PhaseConfigure, configure); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	compile, err := command(b.cfg.Ninja, "-C", b.cfg.BuildDir)
	if err != nil {
		return err
	}
	return b.phase(ctx, backend.PhaseCompile, compile)
}

func (b *Backend) phase(ctx context.Context, phase string, cmd process.Command) error {
	b.logger.Info("build phase", "phase", phase, "command", cmd.String())
	start := time.Now()
	res, err := b.exec.Run(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", phase, err)
	}
	backend.ObserveBuild(model.BackendGPU, phase, start)
	if res.ExitCode != 0 {
		return &backend.BuildError{Backend: model.BackendGPU, Phase: phase, ExitCode: res.ExitCode}
	}
	return nil
}

// Run executes the built artifact with spec.Args.
func (b *Backend) Run(ctx context.Context, spec backend.Spec) (backend.Result, error) {
	cmd := process.Command{
		Path:    b.Artifact(),
		Args:    append([]string(nil), spec.Args...),
		Capture: spec.Capture,
	}

	b.logger.Info("running engine", "command", cmd.String())
	start := time.Now()
	res, err := b.exec.Run(ctx, cmd)
	if err != nil {
		return backend.Result{}, fmt.Errorf("run %s: %w", ArtifactName, err)
	}
	backend.ObserveRun(model.BackendGPU, res.ExitCode, start)

	return backend.Result{
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		DurationMS: int(time.Since(start).Milliseconds()),
	}, nil
}

// Capabilities describes the GPU backend. It declares no feature flags.
func (b *Backend) Capabilities() backend.Capabilities {
	return backend.Capabilities{
		Name:      "meson",
		Kind:      model.BackendGPU,
		Toolchain: b.cfg.NVCC,
		Features:  []string{},
		Artifact:  b.Artifact(),
	}
}

func command(tool []string, args ...string) (process.Command, error) {
	if len(tool) == 0 {
		return process.Command{}, fmt.Errorf("build tool is not configured")
	}
	return process.Command{
		Path: tool[0],
		Args: append(append([]string(nil), tool[1:]...), args...),
	}, nil
}
