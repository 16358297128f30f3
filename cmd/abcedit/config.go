package main

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/gemforce-team/abcedit/errors"
)

const configFile = "abcedit.toml"

// Config is the abcedit.toml file. Command-line flags override it.
type Config struct {
	IncludeDebug bool       `toml:"include-debug"`
	SugarLocals  bool       `toml:"sugar-locals"`
	Jobs         int        `toml:"jobs"`
	LogLevel     string     `toml:"log-level"`
	Dump         DumpConfig `toml:"dump"`

	// Path is the file the config was read from, empty for defaults.
	Path string `toml:"-"`
}

// DumpConfig configures the dump command.
type DumpConfig struct {
	Output string `toml:"output"`
}

func defaultConfig() *Config {
	return &Config{
		Jobs:     runtime.NumCPU(),
		LogLevel: "warn",
		Dump:     DumpConfig{Output: "dump"},
	}
}

// loadConfig reads the config at path. With an empty path it looks for
// abcedit.toml in dir and its parents, and returns the defaults when there
// is none.
func loadConfig(path, dir string) (*Config, error) {
	if path == "" {
		found, err := findConfig(dir)
		if err != nil {
			return nil, err
		}
		if found == "" {
			return defaultConfig(), nil
		}
		path = found
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "cannot read "+path)
	}
	cfg := defaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse error in "+path)
	}
	if cfg.Jobs < 1 {
		return nil, errors.InvalidData(errors.PhaseConfig, []string{path, "jobs"}, "jobs must be at least 1")
	}
	cfg.Path = path
	return cfg, nil
}

func findConfig(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		path := filepath.Join(dir, configFile)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
