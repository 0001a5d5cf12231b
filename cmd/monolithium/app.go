package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/seantiz/monolithium/internal/backend"
	"github.com/seantiz/monolithium/internal/backend/gpu"
	"github.com/seantiz/monolithium/internal/backend/native"
	"github.com/seantiz/monolithium/internal/config"
	"github.com/seantiz/monolithium/internal/engine"
	"github.com/seantiz/monolithium/internal/process"
	"github.com/seantiz/monolithium/internal/store"
	"github.com/seantiz/monolithium/internal/toolchain"
)

// app holds the dependencies shared by every command. They are built on
// first use so that commands like "rust" never touch the database.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	resolver *toolchain.Resolver
	registry *backend.Registry
	store    *store.SQLiteStore
}

func newApp() *app {
	return &app{}
}

// setup loads configuration and wires the backends.
func (a *app) setup() error {
	if a.registry != nil {
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	// Stdout belongs to the search engine; logs go to stderr.
	a.logger = config.NewLogger(os.Stderr, cfg.LogLevel)

	exec := process.NewOSExecutor()
	a.resolver = toolchain.NewResolver(exec, nil, a.logger)

	a.registry = backend.NewRegistry()
	a.registry.Register(native.New(native.Config{
		Cargo:      cfg.Tools.Cargo,
		Rustup:     cfg.Tools.Rustup,
		PackageDir: cfg.PackageDir,
		Manifest:   cfg.CargoManifest,
	}, exec, a.resolver, a.logger))
	a.registry.Register(gpu.New(gpu.Config{
		Meson:    cfg.Tools.Meson,
		Ninja:    cfg.Tools.Ninja,
		NVCC:     cfg.Tools.NVCC,
		RepoRoot: cfg.RepoRoot,
		BuildDir: cfg.BuildDir,
	}, exec, a.resolver, a.logger))

	a.logger.Debug("monolithium: configured",
		"repo_root", cfg.RepoRoot,
		"build_dir", cfg.BuildDir,
		"db_path", cfg.DBPath,
	)
	return nil
}

// openStore opens the run database.
func (a *app) openStore() (*store.SQLiteStore, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}
	if a.store != nil {
		return a.store, nil
	}
	s, err := store.NewSQLiteStore(a.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.store = s
	return s, nil
}

// passthrough returns an engine for the rust and cuda commands. Exec never
// records runs, so no database is opened.
func (a *app) passthrough() (*engine.Engine, error) {
	if err := a.setup(); err != nil {
		return nil, err
	}
	return engine.NewEngine(nil, a.registry, a.cfg.SpawnArgs, a.logger), nil
}

// engine returns a pipeline engine backed by the run database.
func (a *app) engine() (*engine.Engine, error) {
	s, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return engine.NewEngine(s, a.registry, a.cfg.SpawnArgs, a.logger), nil
}

// close releases the database if it was opened.
func (a *app) close() {
	if a.store != nil {
		a.store.Close()
		a.store = nil
	}
}
