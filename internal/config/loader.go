package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if FINTRACK_CONFIG is set
//  3. env (prefix FINTRACK_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("FINTRACK_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// Environment variables: FINTRACK_ADDR, FINTRACK_DEBOUNCE_MS, ...
	// Map env keys like FINTRACK_DEBOUNCE_MS -> debounce_ms (flat keys).
	envProvider := env.Provider("FINTRACK_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "fintrack_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.DebounceMS <= 0 {
		return nil, fmt.Errorf("%w: debounce_ms must be positive", ErrInvalidConfig)
	}
	if cfg.LocalDBPath == "" {
		return nil, fmt.Errorf("%w: local_db_path must not be empty", ErrInvalidConfig)
	}
	return &cfg, nil
}
