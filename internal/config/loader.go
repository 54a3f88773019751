package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvConfigPath names the environment variable holding the config file path.
const EnvConfigPath = "TAPLINE_CONFIG"

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if TAPLINE_CONFIG is set
//  3. env (prefix TAPLINE_)
func Load() (*Config, error) {
	return loadFrom(os.Getenv(EnvConfigPath))
}

// LoadOrCreate behaves like Load but, when TAPLINE_CONFIG points at a file
// that does not exist yet, writes the defaults there first so operators get
// an editable template.
func LoadOrCreate() (*Config, error) {
	path := os.Getenv(EnvConfigPath)
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := writeDefaults(path); err != nil {
				return nil, err
			}
		}
	}
	return loadFrom(path)
}

func loadFrom(path string) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: TAPLINE_ADDR, TAPLINE_WINDOW_SIZE, ...
	// Map env keys like TAPLINE_WINDOW_SIZE -> window_size (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("TAPLINE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "tapline_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.WindowSize < 1 {
		return fmt.Errorf("%w: window_size must be at least 1", ErrInvalidConfig)
	}
	if cfg.MinIntervalMS < 0 {
		return fmt.Errorf("%w: min_interval_ms must not be negative", ErrInvalidConfig)
	}
	if cfg.DedupeSize < 1 {
		return fmt.Errorf("%w: dedupe_size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

func writeDefaults(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: %w", ErrWriteConfig, err)
		}
	}
	data, err := yamlv3.Marshal(New())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteConfig, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteConfig, err)
	}
	return nil
}
