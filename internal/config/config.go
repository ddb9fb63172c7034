// Package config loads the interpreter's optional TOML configuration file,
// following manifest.Load's shape (chazu-maggie/manifest/manifest.go):
// missing file is not an error, a malformed one is.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config holds the tunable knobs spec.md's ambient stack exposes: how deep
// invokestatic may recurse, how big the heap's initial table is, and where
// (if anywhere) to send an execution trace.
type Config struct {
	Run   RunConfig   `toml:"run"`
	Heap  HeapConfig  `toml:"heap"`
	Trace TraceConfig `toml:"trace"`
}

type RunConfig struct {
	Trace         bool `toml:"trace"`
	MaxCallDepth  int  `toml:"max_call_depth"`
}

type HeapConfig struct {
	InitialCapacity int `toml:"initial_capacity"`
}

type TraceConfig struct {
	DBPath string `toml:"db_path"`
}

const DefaultMaxCallDepth = 4096

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Run: RunConfig{MaxCallDepth: DefaultMaxCallDepth},
	}
}

// candidateNames are checked in order in the current working directory.
var candidateNames = []string{"teenyjvm.toml", ".teenyjvmrc"}

// Load searches the current directory for a recognized config file. A
// missing file yields Default(), not an error; a present-but-malformed file
// does return an error.
func Load() (*Config, error) {
	for _, name := range candidateNames {
		if _, err := os.Stat(name); err != nil {
			continue
		}
		return LoadFile(name)
	}
	return Default(), nil
}

// LoadFile parses a specific config file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	if cfg.Run.MaxCallDepth <= 0 {
		cfg.Run.MaxCallDepth = DefaultMaxCallDepth
	}
	return cfg, nil
}
