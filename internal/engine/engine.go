package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/distribution"
	"github.com/seantiz/monolithium/internal/model"
	"github.com/seantiz/monolithium/internal/results"
	"github.com/seantiz/monolithium/internal/store"
)

// Engine orchestrates backend builds and engine runs.
type Engine struct {
	store     store.Store
	registry  *backend.Registry
	spawnArgs []string
	logger    *slog.Logger
}

// NewEngine creates a new pipeline engine. spawnArgs are the engine
// arguments of a linear-spawn collection.
func NewEngine(s store.Store, reg *backend.Registry, spawnArgs []string, logger *slog.Logger) *Engine {
	return &Engine{
		store:     s,
		registry:  reg,
		spawnArgs: slices.Clone(spawnArgs),
		logger:    logger,
	}
}

// Exec builds the backend and runs the engine with args, letting its output
// through to the terminal. It returns the process exit code: the first
// non-zero code of any stage, or 0.
func (e *Engine) Exec(ctx context.Context, kind model.BackendKind, args []string) (int, error) {
	b, err := e.registry.Resolve(kind)
	if err != nil {
		return 1, err
	}

	if err := b.Build(ctx); err != nil {
		return ExitCode(err), fmt.Errorf("build: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return 1, err
	}

	res, err := b.Run(ctx, backend.Spec{Args: args})
	if err != nil {
		return 1, err
	}
	if res.ExitCode != 0 {
		return res.ExitCode, &backend.RunFailure{Backend: kind, ExitCode: res.ExitCode}
	}
	return 0, nil
}

// CollectRequest describes a distribution collection.
type CollectRequest struct {
	Mode    string
	Backend model.BackendKind
	// Args overrides the configured spawn arguments in linear-spawn mode.
	Args []string
	// Seeds are the worlds searched in per-world mode.
	Seeds  []int64
	Policy results.Policy
}

// Collect builds the backend, gathers a distribution and persists it. The
// run moves pending→running→completed/failed in the store; the returned run
// reflects its final state. Invalid requests fail before any run is stored.
func (e *Engine) Collect(ctx context.Context, req CollectRequest) (*model.Run, *distribution.Distribution, error) {
	b, err := e.registry.Resolve(req.Backend)
	if err != nil {
		return nil, nil, err
	}

	collector := distribution.NewCollector(b, e.spawnArgs, e.logger)
	opts := distribution.Options{Args: req.Args, Seeds: req.Seeds, Policy: req.Policy}
	invs, err := collector.Invocations(req.Mode, opts)
	if err != nil {
		return nil, nil, err
	}

	run := &model.Run{
		ID:        model.NewID(),
		Mode:      req.Mode,
		Backend:   req.Backend,
		Args:      []string{},
		Seeds:     slices.Clone(req.Seeds),
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if req.Mode == model.ModeLinearSpawn {
		run.Args = invs[0]
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("create run: %w", err)
	}

	logger := e.logger.With("run_id", run.ID)

	if err := e.store.UpdateRunStatus(ctx, run.ID, model.StatusRunning); err != nil {
		logger.Error("failed to transition to running", "error", err)
		return e.fail(run, time.Time{}, err)
	}
	start := time.Now()
	run.Status = model.StatusRunning
	run.StartedAt = &start

	logger.Info("collection started", "mode", run.Mode, "backend", run.Backend.String(), "invocations", len(invs))

	if err := b.Build(ctx); err != nil {
		return e.fail(run, start, fmt.Errorf("build: %w", err))
	}

	dist, err := collector.Collect(ctx, req.Mode, opts)
	if err != nil {
		return e.fail(run, start, err)
	}

	if err := e.store.InsertMonoliths(ctx, run.ID, dist.Records()); err != nil {
		return e.fail(run, start, fmt.Errorf("store monoliths: %w", err))
	}

	code := 0
	now := time.Now().UTC()
	dur := int(time.Since(start).Milliseconds())
	run.Status = model.StatusCompleted
	run.ExitCode = &code
	run.RecordCount = dist.Len()
	run.DurationMS = &dur
	run.FinishedAt = &now
	if err := e.store.FinishRun(context.Background(), run); err != nil {
		return run, dist, fmt.Errorf("finish run: %w", err)
	}

	logger.Info("collection completed", "records", run.RecordCount, "duration_ms", dur)
	return run, dist, nil
}

// fail marks run as failed with cause and returns cause. start is zero when
// the run never started. The store update does not use the caller's context
// so that cancelled collections are still recorded.
func (e *Engine) fail(run *model.Run, start time.Time, cause error) (*model.Run, *distribution.Distribution, error) {
	code := ExitCode(cause)
	now := time.Now().UTC()
	dur := 0
	if !start.IsZero() {
		dur = int(time.Since(start).Milliseconds())
	}

	run.Status = model.StatusFailed
	run.ExitCode = &code
	run.Error = cause.Error()
	run.DurationMS = &dur
	run.FinishedAt = &now

	if err := e.store.FinishRun(context.Background(), run); err != nil {
		e.logger.Error("failed to record failed run", "run_id", run.ID, "error", err)
	}
	e.logger.Warn("collection failed", "run_id", run.ID, "exit_code", code, "error", cause)
	return run, nil, cause
}

// ExitCode maps a pipeline error to a process exit code. Build and run
// failures keep the child's code; anything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var be *backend.BuildError
	if errors.As(err, &be) && be.ExitCode != 0 {
		return be.ExitCode
	}
	var rf *backend.RunFailure
	if errors.As(err, &rf) && rf.ExitCode != 0 {
		return rf.ExitCode
	}
	return 1
}
