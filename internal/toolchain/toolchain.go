// Package toolchain verifies that the compilers needed to build a backend are
// installed and activated, activating them when possible.
package toolchain

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/seantiz/monolithium/internal/process"
)

// Requirement names a toolchain and how to check and activate it.
type Requirement struct {
	// Name is the toolchain reported in errors (e.g. "rust stable").
	Name string
	// Binaries must include at least one executable discoverable on PATH.
	Binaries []string
	// Check exits 0 when the toolchain is active.
	Check process.Command
	// Activate makes the toolchain active; empty Path means no activation step.
	Activate process.Command
}

// MissingToolchainError means the toolchain is absent or could not be activated.
// The user has to install it by hand.
type MissingToolchainError struct {
	Toolchain string
	Cause     error
}

func (e *MissingToolchainError) Error() string {
	msg := fmt.Sprintf("toolchain %q is not available, install it manually", e.Toolchain)
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *MissingToolchainError) Unwrap() error { return e.Cause }

// MissingCompilerError means a compiler that has no activation step is not on PATH.
type MissingCompilerError struct {
	Compiler string
}

func (e *MissingCompilerError) Error() string {
	return fmt.Sprintf("%s wasn't found in PATH, is its toolkit installed?", e.Compiler)
}

// LookPathFunc resolves an executable name on PATH.
type LookPathFunc func(file string) (string, error)

// Resolver checks and activates toolchains.
type Resolver struct {
	exec     process.Executor
	lookPath LookPathFunc
	logger   *slog.Logger
}

// NewResolver creates a resolver. A nil lookPath uses exec.LookPath.
func NewResolver(e process.Executor, lookPath LookPathFunc, logger *slog.Logger) *Resolver {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	return &Resolver{exec: e, lookPath: lookPath, logger: logger}
}

// Ensure makes sure req is available and active. Calling it again once the
// toolchain is active only repeats the check.
func (r *Resolver) Ensure(ctx context.Context, req Requirement) error {
	if !r.discoverable(req.Binaries) {
		return &MissingToolchainError{
			Toolchain: req.Name,
			Cause:     fmt.Errorf("none of %v found in PATH", req.Binaries),
		}
	}

	check := req.Check
	check.Capture = true // keep the probe's output off the terminal
	res, err := r.exec.Run(ctx, check)
	if err == nil && res.ExitCode == 0 {
		r.logger.Debug("toolchain active", "toolchain", req.Name)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if req.Activate.Path == "" {
		return &MissingToolchainError{Toolchain: req.Name, Cause: checkFailure(check, res, err)}
	}

	r.logger.Info("activating toolchain", "toolchain", req.Name, "command", req.Activate.String())
	res, err = r.exec.Run(ctx, req.Activate)
	if err != nil {
		return &MissingToolchainError{Toolchain: req.Name, Cause: fmt.Errorf("activate: %w", err)}
	}
	if res.ExitCode != 0 {
		return &MissingToolchainError{
			Toolchain: req.Name,
			Cause:     fmt.Errorf("%s exited with code %d", req.Activate.String(), res.ExitCode),
		}
	}

	res, err = r.exec.Run(ctx, check)
	if err == nil && res.ExitCode == 0 {
		r.logger.Info("toolchain activated", "toolchain", req.Name)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &MissingToolchainError{
		Toolchain: req.Name,
		Cause:     fmt.Errorf("after activation: %w", checkFailure(check, res, err)),
	}
}

// RequireBinary checks that a compiler is on PATH and returns its location.
func (r *Resolver) RequireBinary(name string) (string, error) {
	path, err := r.lookPath(name)
	if err != nil {
		return "", &MissingCompilerError{Compiler: name}
	}
	return path, nil
}

// Available reports whether any of the binaries can be found on PATH.
func (r *Resolver) Available(binaries ...string) bool {
	return r.discoverable(binaries)
}

func (r *Resolver) discoverable(binaries []string) bool {
	for _, b := range binaries {
		if _, err := r.lookPath(b); err == nil {
			return true
		}
	}
	return false
}

func checkFailure(c process.Command, res process.Result, err error) error {
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	return fmt.Errorf("%s exited with code %d", c.String(), res.ExitCode)
}

// RustStable is the native backend's requirement: a stable rustc reachable
// through rustup, activated with "rustup default stable".
func RustStable(rustup []string) Requirement {
	bin, args := split(rustup)
	return Requirement{
		Name:     "rust stable",
		Binaries: []string{bin},
		Check:    process.Command{Path: bin, Args: append(args, "run", "stable", "rustc", "--version")},
		Activate: process.Command{Path: bin, Args: append(append([]string(nil), args...), "default", "stable")},
	}
}

// split separates a tool command into its executable and leading arguments.
func split(cmd []string) (string, []string) {
	if len(cmd) == 0 {
		return "", nil
	}
	return cmd[0], append([]string(nil), cmd[1:]...)
}
