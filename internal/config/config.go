// internal/config/config.go

// Package config loads the process-wide configuration once, at startup.
// The loaded value is passed by value to everything that needs it; there is
// no ambient global state.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"xga/internal/sasgen"
)

// Config is the immutable run configuration.
type Config struct {
	// OutputDir is where generated products and fit tables live, and where
	// discovery looks for previous runs' files.
	OutputDir string `yaml:"output_dir"`

	// Cores bounds the generation pool; 0 means 90% of the machine's CPUs.
	Cores int `yaml:"cores"`

	// External tool binaries.
	XSPECBinary string `yaml:"xspec_binary"`
	NHBinary    string `yaml:"nh_binary"`

	// AbundanceTable names the relative-abundance table handed to the
	// fitting engine.
	AbundanceTable string `yaml:"abundance_table"`

	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// Default is the configuration used when no file is given.
func Default() Config {
	return Config{
		OutputDir:      "xga_output",
		XSPECBinary:    "xspec",
		NHBinary:       "nh",
		AbundanceTable: "angr",
		LogLevel:       "info",
	}
}

// Load reads and validates a YAML configuration file, filling unset fields
// from the defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.Cores < 0 {
		return fmt.Errorf("cores must be >= 0")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Workers resolves the pool bound.
func (c Config) Workers() int {
	if c.Cores > 0 {
		return c.Cores
	}
	return sasgen.DefaultWorkers()
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log_level %q", s)
}

// Logger builds the process logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
