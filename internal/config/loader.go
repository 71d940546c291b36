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

// Environment variables that point at optional YAML files, and the
// prefixes of per-key overrides.
const (
	ServerFileEnv = "GAMESPIN_CONFIG"
	ServerPrefix  = "GAMESPIN_"
	ClientFileEnv = "GAMESPIN_CLIENT_CONFIG"
	ClientPrefix  = "GAMESPIN_CLIENT_"
)

// Load builds the server Config by layering, low to high precedence:
//  1. defaults (New)
//  2. YAML file named by GAMESPIN_CONFIG
//  3. env (prefix GAMESPIN_), e.g. GAMESPIN_COOLDOWN_MS -> cooldown_ms
//
// Variables with the client prefix are ignored.
func Load(_ context.Context) (*Config, error) {
	cfg := New()
	if err := load(cfg, ServerFileEnv, ServerPrefix, func(key string) bool {
		return !strings.HasPrefix(key, ClientPrefix) && key != ServerFileEnv
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadClient builds the ClientConfig the same way from
// GAMESPIN_CLIENT_CONFIG and GAMESPIN_CLIENT_ variables.
func LoadClient(_ context.Context) (*ClientConfig, error) {
	cfg := NewClient()
	if err := load(cfg, ClientFileEnv, ClientPrefix, func(key string) bool {
		return key != ClientFileEnv
	}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(out any, fileEnv, prefix string, keep func(string) bool) error {
	k := koanf.New(".")

	if path := os.Getenv(fileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Flat keys: underscores are preserved to match the koanf tags.
	lower := strings.ToLower(prefix)
	envProvider := env.Provider(prefix, ".", func(s string) string {
		if !keep(s) {
			return ""
		}
		return strings.TrimPrefix(strings.ToLower(s), lower)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	if err := k.UnmarshalWithConf("", out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	return nil
}
