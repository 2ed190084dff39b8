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
//  2. file (YAML) if KATA_CONFIG is set
//  3. env (prefix KATA_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("KATA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: KATA_ADDR, KATA_WINDOW_SIZE, ...
	// Map env keys like KATA_WINDOW_SIZE -> window_size (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("KATA_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "kata_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.PerformerPort <= 0 || cfg.ReferencePort <= 0 {
		return nil, fmt.Errorf("%w: performer_port and reference_port must be positive", ErrInvalidConfig)
	}
	if cfg.PerformerPort == cfg.ReferencePort {
		return nil, fmt.Errorf("%w: performer_port and reference_port must differ", ErrInvalidConfig)
	}
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("%w: window_size must be positive", ErrInvalidConfig)
	}
	if cfg.Band <= 0 {
		return nil, fmt.Errorf("%w: band must be positive", ErrInvalidConfig)
	}
	if cfg.PoseWeight < 0 || cfg.TrajectoryWeight < 0 || cfg.RhythmWeight < 0 {
		return nil, fmt.Errorf("%w: weights must not be negative", ErrInvalidWeights)
	}
	if cfg.PoseWeight+cfg.TrajectoryWeight+cfg.RhythmWeight <= 0 {
		return nil, fmt.Errorf("%w: at least one weight must be positive", ErrInvalidWeights)
	}
	return &cfg, nil
}
