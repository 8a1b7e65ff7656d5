package core

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

// SessionBackendKind selects a Session Store backend (§6).
type SessionBackendKind string

const (
	SessionBackendMemory SessionBackendKind = "memory"
	SessionBackendCookie SessionBackendKind = "cookie"
)

// Config holds the recognized options table from §6.
type Config struct {
	Secret          string             `json:"secret"`
	JWTSecret       string             `json:"jwtSecret"`
	SessionMaxAgeMs int64              `json:"sessionMaxAgeMs"`
	MaxDepth        int                `json:"maxDepth"`
	MaxStringLen    int                `json:"maxStringLen"`
	MaxBlobBytes    int                `json:"maxBlobBytes"`
	SessionBackend  SessionBackendKind `json:"sessionBackend"`
}

// DefaultConfig returns the defaults named in §6.
func DefaultConfig() Config {
	return Config{
		SessionMaxAgeMs: (24 * time.Hour).Milliseconds(),
		MaxDepth:        20,
		MaxStringLen:    10 << 20,
		MaxBlobBytes:    50 << 20,
		SessionBackend:  SessionBackendMemory,
	}
}

// SessionMaxAge is SessionMaxAgeMs as a time.Duration.
func (c Config) SessionMaxAge() time.Duration {
	return time.Duration(c.SessionMaxAgeMs) * time.Millisecond
}

// Validate rejects configurations the rest of the module cannot act on.
func (c Config) Validate() error {
	if c.MaxDepth <= 0 {
		return newCoreValidationError("maxDepth", "must be a positive integer")
	}
	if c.MaxStringLen <= 0 {
		return newCoreValidationError("maxStringLen", "must be a positive integer")
	}
	if c.MaxBlobBytes <= 0 {
		return newCoreValidationError("maxBlobBytes", "must be a positive integer")
	}
	if c.SessionMaxAgeMs <= 0 {
		return newCoreValidationError("sessionMaxAgeMs", "must be a positive integer")
	}
	switch c.SessionBackend {
	case SessionBackendMemory, SessionBackendCookie:
	default:
		return newCoreValidationError("sessionBackend", fmt.Sprintf("unsupported backend %q", c.SessionBackend))
	}
	return nil
}

// RawConfigLoader loads untyped configuration data, e.g. from a file or the
// environment, to be merged over Config's defaults.
type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// ConfigProvider resolves a final Config from defaults plus whatever a
// RawConfigLoader supplies, validating the result via cfgx.
type ConfigProvider struct {
	Loader RawConfigLoader
}

func NewConfigProvider(loader RawConfigLoader) *ConfigProvider {
	return &ConfigProvider{Loader: loader}
}

func (p *ConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil || p.Loader == nil {
		return defaults, nil
	}
	raw, err := p.Loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ResolveConfig layers defaults, loaded (file/env), and runtime
// (programmatic Option overrides) configuration through go-options, then
// re-validates the merged result through cfgx — the same three-layer shape
// the teacher uses to resolve its service configuration.
func ResolveConfig(defaults, loaded, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configLayer(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configLayer(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configLayer(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configLayer(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || cfg.Secret != "" {
		layer["secret"] = cfg.Secret
	}
	if includeZero || cfg.JWTSecret != "" {
		layer["jwtSecret"] = cfg.JWTSecret
	}
	if includeZero || cfg.SessionMaxAgeMs != 0 {
		layer["sessionMaxAgeMs"] = cfg.SessionMaxAgeMs
	}
	if includeZero || cfg.MaxDepth != 0 {
		layer["maxDepth"] = cfg.MaxDepth
	}
	if includeZero || cfg.MaxStringLen != 0 {
		layer["maxStringLen"] = cfg.MaxStringLen
	}
	if includeZero || cfg.MaxBlobBytes != 0 {
		layer["maxBlobBytes"] = cfg.MaxBlobBytes
	}
	if includeZero || cfg.SessionBackend != "" {
		layer["sessionBackend"] = string(cfg.SessionBackend)
	}
	return layer
}
