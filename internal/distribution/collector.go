package distribution

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/model"
	"github.com/seantiz/monolithium/internal/results"
)

// Options tune a collection.
type Options struct {
	// Args replaces the configured spawn arguments in linear-spawn mode.
	Args []string
	// Seeds are the worlds searched in per-world mode, in order.
	Seeds []int64
	// Policy decides how malformed records are handled.
	Policy results.Policy
}

// Collector runs the engine and folds its records into a Distribution.
// The backend must already be built.
type Collector struct {
	backend   backend.Backend
	spawnArgs []string
	logger    *slog.Logger
}

// NewCollector creates a collector. spawnArgs are the engine arguments for
// a linear-spawn collection.
func NewCollector(b backend.Backend, spawnArgs []string, logger *slog.Logger) *Collector {
	return &Collector{
		backend:   b,
		spawnArgs: slices.Clone(spawnArgs),
		logger:    logger,
	}
}

// Invocations returns the engine arguments of each invocation mode makes,
// in the order they run.
func (c *Collector) Invocations(mode string, opts Options) ([][]string, error) {
	switch mode {
	case model.ModeLinearSpawn:
		args := c.spawnArgs
		if len(opts.Args) > 0 {
			args = opts.Args
		}
		return [][]string{slices.Clone(args)}, nil
	case model.ModePerWorld:
		if len(opts.Seeds) == 0 {
			return nil, fmt.Errorf("per-world collection needs at least one seed")
		}
		invs := make([][]string, len(opts.Seeds))
		for i, seed := range opts.Seeds {
			if seed < 0 {
				return nil, fmt.Errorf("seed %d is negative; world seeds are unsigned", seed)
			}
			invs[i] = WorldArgs(seed)
		}
		return invs, nil
	default:
		return nil, fmt.Errorf("unknown collection mode %q", mode)
	}
}

// WorldArgs are the engine arguments that search a single world.
func WorldArgs(seed int64) []string {
	return []string{"find", "--seed", strconv.FormatInt(seed, 10)}
}

// Collect runs every invocation for mode, one at a time, and returns the
// records in emission order. The first failing invocation stops the
// collection.
func (c *Collector) Collect(ctx context.Context, mode string, opts Options) (*Distribution, error) {
	invs, err := c.Invocations(mode, opts)
	if err != nil {
		return nil, err
	}

	dist := New()
	for i, args := range invs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := c.backend.Run(ctx, backend.Spec{Args: args, Capture: true})
		if err != nil {
			return nil, err
		}
		if res.ExitCode != 0 {
			return nil, &backend.RunFailure{Backend: c.backend.Kind(), ExitCode: res.ExitCode}
		}

		records, err := results.Parse(res.Stdout, opts.Policy, c.logger)
		if err != nil {
			return nil, fmt.Errorf("parse output of invocation %d: %w", i+1, err)
		}
		dist.Extend(records)

		c.logger.Info("invocation collected",
			"mode", mode,
			"invocation", i+1,
			"of", len(invs),
			"records", len(records),
			"duration_ms", res.DurationMS,
		)
	}
	return dist, nil
}
