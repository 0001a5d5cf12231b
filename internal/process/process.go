package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the child is
// gone; descendants that inherited them must not keep Run blocked.
const waitDelay = 500 * time.Millisecond

// Command describes a single child process invocation.
type Command struct {
	// Path is the executable, looked up on PATH when it has no separator.
	Path string
	Args []string
	// Dir is the working directory; empty means the parent's.
	Dir string
	// Capture collects stdout in memory instead of inheriting it.
	Capture bool
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Result is the outcome of a process that ran to completion.
type Result struct {
	ExitCode int
	// Stdout holds the full standard output when Command.Capture was set.
	Stdout []byte
}

// Executor spawns a process and blocks until it exits. A non-zero exit code is
// reported through Result, not as an error; errors mean the process could not
// be started or waited on.
type Executor interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// OSExecutor runs commands with os/exec.
type OSExecutor struct {
	// Stdout and Stderr receive inherited output; nil means the parent's streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Compile-time interface satisfaction check.
var _ Executor = (*OSExecutor)(nil)

// NewOSExecutor creates an executor that inherits the parent's output streams.
func NewOSExecutor() *OSExecutor {
	return &OSExecutor{}
}

// Run starts cmd and waits for it. When capturing, os/exec drains the stdout
// pipe concurrently with the child, so a chatty child never blocks on a full
// pipe while we wait for it to exit. Cancelling ctx kills the child together
// with everything it started; cargo runs the engine as its own child.
func (e *OSExecutor) Run(ctx context.Context, c Command) (Result, error) {
	if c.Path == "" {
		return Result{}, errors.New("no command provided")
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	// No stdin: the child leads its own process group and must not read
	// from the terminal.
	cmd.Stderr = e.stderr()
	cmd.WaitDelay = waitDelay
	killGroupOnCancel(cmd)

	var stdout bytes.Buffer
	if c.Capture {
		cmd.Stdout = &stdout
	} else {
		cmd.Stdout = e.stdout()
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes()}
	if err == nil {
		return res, nil
	}

	if ctx.Err() != nil {
		return res, fmt.Errorf("%s: %w", c.Path, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitCode(exitErr)
		return res, nil
	}
	return res, fmt.Errorf("run %s: %w", c.Path, err)
}

func (e *OSExecutor) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *OSExecutor) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}
