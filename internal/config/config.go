package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultListenAddr = ":8080"
	defaultDBPath     = "monolithium.db"
	defaultRepoRoot   = "."

	// Directory names relative to the repository root.
	defaultBuildDirName   = "build"
	defaultPackageDirName = "monolithium"
	defaultManifestName   = "Cargo.toml"

	envConfigFile = "MONOLITHIUM_CONFIG"
	envListenAddr = "MONOLITHIUM_LISTEN_ADDR"
	envDBPath     = "MONOLITHIUM_DB_PATH"
	envLogLevel   = "MONOLITHIUM_LOG_LEVEL"
	envRepoRoot   = "MONOLITHIUM_REPO"
	envBuildDir   = "MONOLITHIUM_BUILD_DIR"
	envCargo      = "MONOLITHIUM_CARGO"
	envRustup     = "MONOLITHIUM_RUSTUP"
	envMeson      = "MONOLITHIUM_MESON"
	envNinja      = "MONOLITHIUM_NINJA"
	envNVCC       = "MONOLITHIUM_NVCC"
	envSpawnArgs  = "MONOLITHIUM_SPAWN_ARGS"
)

// DefaultSpawnArgs asks the engine for a bulk search over linear seeds.
var DefaultSpawnArgs = []string{"spawn", "linear", "-t", "50000"}

// Tools holds the commands used to build and run the backends. Multi-word
// commands (e.g. "python3 -m mesonbuild.mesonmain") are split on whitespace.
type Tools struct {
	Cargo  []string `yaml:"cargo"`
	Rustup []string `yaml:"rustup"`
	Meson  []string `yaml:"meson"`
	Ninja  []string `yaml:"ninja"`
	NVCC   string   `yaml:"nvcc"`
}

// Config holds application configuration. It is built once at startup and
// passed by value to every component.
type Config struct {
	ListenAddr string     `yaml:"listen_addr"`
	DBPath     string     `yaml:"db_path"`
	LogLevel   slog.Level `yaml:"-"`

	// RepoRoot is the search engine's repository (Cargo.toml, meson.build).
	RepoRoot string `yaml:"repo_root"`
	// BuildDir is where the GPU backend's meson build lives.
	BuildDir string `yaml:"build_dir"`
	// PackageDir is the working directory for cargo invocations.
	PackageDir string `yaml:"package_dir"`
	// CargoManifest declares the native backend's optional features.
	CargoManifest string `yaml:"cargo_manifest"`

	Tools Tools `yaml:"tools"`

	// SpawnArgs are the engine arguments for linear-spawn collection.
	SpawnArgs []string `yaml:"spawn_args"`
}

// fileConfig mirrors Config for YAML decoding; LogLevel is a string there.
type fileConfig struct {
	Config   `yaml:",inline"`
	LogLevel string `yaml:"log_level"`
}

// Load builds configuration from defaults, then the optional YAML file named
// by MONOLITHIUM_CONFIG, then environment variables.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr: defaultListenAddr,
		DBPath:     defaultDBPath,
		LogLevel:   slog.LevelInfo,
		RepoRoot:   defaultRepoRoot,
		Tools: Tools{
			Cargo:  []string{"cargo"},
			Rustup: []string{"rustup"},
			Meson:  []string{"meson"},
			Ninja:  []string{"ninja"},
			NVCC:   "nvcc",
		},
		SpawnArgs: append([]string(nil), DefaultSpawnArgs...),
	}

	if path := os.Getenv(envConfigFile); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()

	if err := cfg.resolvePaths(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	fc := fileConfig{Config: *c}
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	lvl := c.LogLevel
	*c = fc.Config
	c.LogLevel = lvl
	if fc.LogLevel != "" {
		c.LogLevel = parseLogLevel(fc.LogLevel)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envListenAddr); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
	if v := os.Getenv(envRepoRoot); v != "" {
		c.RepoRoot = v
	}
	if v := os.Getenv(envBuildDir); v != "" {
		c.BuildDir = v
	}
	if v := os.Getenv(envCargo); v != "" {
		c.Tools.Cargo = strings.Fields(v)
	}
	if v := os.Getenv(envRustup); v != "" {
		c.Tools.Rustup = strings.Fields(v)
	}
	if v := os.Getenv(envMeson); v != "" {
		c.Tools.Meson = strings.Fields(v)
	}
	if v := os.Getenv(envNinja); v != "" {
		c.Tools.Ninja = strings.Fields(v)
	}
	if v := os.Getenv(envNVCC); v != "" {
		c.Tools.NVCC = v
	}
	if v := os.Getenv(envSpawnArgs); v != "" {
		c.SpawnArgs = strings.Fields(v)
	}
}

// resolvePaths makes RepoRoot absolute and derives the paths left unset.
func (c *Config) resolvePaths() error {
	root, err := filepath.Abs(c.RepoRoot)
	if err != nil {
		return fmt.Errorf("resolve repo root: %w", err)
	}
	c.RepoRoot = root
	if c.BuildDir == "" {
		c.BuildDir = filepath.Join(root, defaultBuildDirName)
	}
	if c.PackageDir == "" {
		c.PackageDir = filepath.Join(root, defaultPackageDirName)
	}
	if c.CargoManifest == "" {
		c.CargoManifest = filepath.Join(root, defaultManifestName)
	}
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
