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
//  2. file (YAML) if ARENA_CONFIG is set
//  3. env (prefix ARENA_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ARENA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ARENA_ADDR, ARENA_MIRROR_QUEUE_SIZE, ...
	// Map env keys like ARENA_MIRROR_QUEUE_SIZE -> mirror_queue_size to
	// match koanf tags on the struct.
	envProvider := env.Provider("ARENA_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "arena_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DatabaseDSN == "":
		return fmt.Errorf("%w: database_dsn must not be empty", ErrInvalidConfig)
	case c.MaxRangeSpan < 1:
		return fmt.Errorf("%w: max_range_span must be positive", ErrInvalidConfig)
	case c.ResyncGlobalCeiling < 1 || c.ResyncGameCeiling < 1:
		return fmt.Errorf("%w: resync ceilings must be positive", ErrInvalidConfig)
	}
	return nil
}
