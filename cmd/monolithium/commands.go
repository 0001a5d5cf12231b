package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/seantiz/monolithium/internal/api"
	"github.com/seantiz/monolithium/internal/distribution"
	"github.com/seantiz/monolithium/internal/engine"
	"github.com/seantiz/monolithium/internal/model"
	"github.com/seantiz/monolithium/internal/results"
)

// newRootCommand creates the root cobra command.
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "monolithium",
		Short: "Build, run and collect results from the monolith search engine",
		Long: fmt.Sprintf(`%s

Builds the search engine with the native (cargo) or GPU (meson/ninja)
toolchain, runs it, and gathers the monoliths it finds.

%s
  monolithium rust find --seed 42
  monolithium rust --filter-fracts spawn linear -t 50000
  monolithium cuda spawn random -t 1000
  monolithium collect linear --out dist.json
  monolithium collect world --seed 1 --seed 2 --backend gpu
  monolithium serve`,
			bold("monolithium"),
			bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newPassthroughCommand(a, "rust", model.BackendNative,
		"Run the engine with cargo (declared cargo features may be passed as --<feature>)"))
	root.AddCommand(newPassthroughCommand(a, "cuda", model.BackendGPU,
		"Build the CUDA engine with meson and ninja, then run it"))
	root.AddCommand(newCollectCommand(a))
	root.AddCommand(newRunsCommand(a))
	root.AddCommand(newServeCommand(a))
	root.AddCommand(newDoctorCommand(a))

	return root
}

// newPassthroughCommand hands every argument to the engine untouched.
func newPassthroughCommand(a *app, name string, kind model.BackendKind, short string) *cobra.Command {
	return &cobra.Command{
		Use:                name + " [engine args...]",
		Short:              short,
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := a.passthrough()
			if err != nil {
				return err
			}
			code, err := eng.Exec(cmd.Context(), kind, args)
			if code != 0 || err != nil {
				return &exitError{code: max(code, 1), err: err}
			}
			return nil
		},
	}
}

// collectModes maps the command-line mode names to collection modes.
var collectModes = map[string]string{
	"linear": model.ModeLinearSpawn,
	"world":  model.ModePerWorld,
}

func newCollectCommand(a *app) *cobra.Command {
	var (
		backendName string
		seeds       []int64
		lenient     bool
		out         string
	)

	cmd := &cobra.Command{
		Use:   "collect linear|world [-- engine args...]",
		Short: "Collect a distribution of monoliths and store it as a run",
		Long: `Collect a distribution of monoliths and store it as a run.

  linear  one engine invocation over a linear range of seeds
          (default "spawn linear -t 50000", override after --)
  world   one "find --seed N" invocation per --seed, in order`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, ok := collectModes[args[0]]
			if !ok {
				return fmt.Errorf("unknown mode %q: must be linear or world", args[0])
			}
			kind, err := model.ParseBackendKind(backendName)
			if err != nil {
				return err
			}
			if mode == model.ModePerWorld && len(args) > 1 {
				return fmt.Errorf("world mode takes no engine arguments, use --seed")
			}

			eng, err := a.engine()
			if err != nil {
				return err
			}

			policy := results.Strict
			if lenient {
				policy = results.SkipInvalid
			}

			run, dist, err := eng.Collect(cmd.Context(), engine.CollectRequest{
				Mode:    mode,
				Backend: kind,
				Args:    args[1:],
				Seeds:   seeds,
				Policy:  policy,
			})
			if err != nil {
				if run != nil {
					fmt.Fprintf(os.Stderr, "%s run %s failed\n", red("✗"), run.ID)
				}
				return &exitError{code: engine.ExitCode(err), err: err}
			}

			printSummary(run, dist.Summary())
			if out != "" {
				if err := writeDistribution(out, run, dist); err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "%s wrote %s\n", green("✓"), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&backendName, "backend", "b", model.BackendNative.String(), "backend to run: native (rust) or gpu (cuda)")
	cmd.Flags().Int64SliceVarP(&seeds, "seed", "s", nil, "world seed for world mode (repeatable)")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "skip malformed records instead of failing")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the distribution as JSON to this file")
	return cmd
}

func printSummary(run *model.Run, s distribution.Summary) {
	fmt.Printf("%s run %s: %s monoliths in %d worlds\n",
		green("✓"), bold(run.ID), bold(s.Count), s.Worlds)
	if s.Count == 0 {
		return
	}
	fmt.Printf("  area   min %d  max %d  mean %.1f  total %d\n", s.MinArea, s.MaxArea, s.MeanArea(), s.TotalArea)
	fmt.Printf("  x      [%d, %d]\n", s.MinX, s.MaxX)
	fmt.Printf("  z      [%d, %d]\n", s.MinZ, s.MaxZ)
}

// distributionFile is the JSON layout written by collect --out.
type distributionFile struct {
	Run       *model.Run           `json:"run"`
	Summary   distribution.Summary `json:"summary"`
	Monoliths []model.Monolith     `json:"monoliths"`
}

func writeDistribution(path string, run *model.Run, dist *distribution.Distribution) error {
	data, err := json.MarshalIndent(distributionFile{
		Run:       run,
		Summary:   dist.Summary(),
		Monoliths: dist.Records(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode distribution: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write distribution: %w", err)
	}
	return nil
}

func newRunsCommand(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored collection runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			runs, total, err := s.ListRuns(cmd.Context(), limit, 0)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMODE\tBACKEND\tRECORDS\tCREATED\tSTATUS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					r.ID, r.Mode, r.Backend, r.RecordCount,
					r.CreatedAt.Local().Format(time.DateTime), statusText(r.Status))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if total > len(runs) {
				fmt.Println(gray(fmt.Sprintf("%d of %d runs shown", len(runs), total)))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}

func newServeCommand(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openStore()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.ListenAddr
			}
			a.logger.Info("monolithium: starting", "listen_addr", addr, "db_path", a.cfg.DBPath)
			return api.NewServer(addr, s, a.registry, a.logger).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from MONOLITHIUM_LISTEN_ADDR)")
	return cmd
}

func newDoctorCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check which backends can be built on this machine",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			checks := []struct {
				kind  model.BackendKind
				tools [][]string
			}{
				{model.BackendNative, [][]string{a.cfg.Tools.Rustup, a.cfg.Tools.Cargo}},
				{model.BackendGPU, [][]string{{a.cfg.Tools.NVCC}, a.cfg.Tools.Meson, a.cfg.Tools.Ninja}},
			}

			ready := 0
			for _, c := range checks {
				b, err := a.registry.Resolve(c.kind)
				if err != nil {
					return err
				}
				caps := b.Capabilities()
				fmt.Printf("%s (%s)\n", bold(c.kind.String()), caps.Name)

				ok := true
				for _, tool := range c.tools {
					if len(tool) == 0 {
						continue
					}
					if a.resolver.Available(tool[0]) {
						fmt.Printf("  %s %s\n", green("✓"), strings.Join(tool, " "))
					} else {
						fmt.Printf("  %s %s %s\n", red("✗"), strings.Join(tool, " "), gray("not found in PATH"))
						ok = false
					}
				}
				if len(caps.Features) > 0 {
					fmt.Printf("  features: %s\n", strings.Join(caps.Features, ", "))
				}
				if ok {
					ready++
				}
			}

			if ready == 0 {
				return &exitError{code: 1, err: fmt.Errorf("no backend has its toolchain installed")}
			}
			return nil
		},
	}
}
