package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SCROLLDOC_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: SCROLLDOC_PORT -> port,
	// SCROLLDOC_TRACKING__LOCK_TTL_MS -> tracking.lock_ttl_ms.
	if err := k.Load(env.Provider("SCROLLDOC_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "SCROLLDOC_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validEnvironments is the set of recognized environment values.
var validEnvironments = map[Environment]bool{
	EnvAuto:      true,
	EnvLocalFile: true,
	EnvDevServer: true,
	EnvHosted:    true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if c.ContentDir == "" {
		return fmt.Errorf("content_dir is required")
	}

	if !validEnvironments[c.Environment] {
		return fmt.Errorf("invalid environment %q: must be one of auto, local-file, dev-server, hosted", c.Environment)
	}

	if c.Environment == EnvHosted && c.BasePath == "" {
		return fmt.Errorf("base_path is required when environment is hosted")
	}

	t := c.Tracking
	if t.ActivationThreshold <= 0 || t.ActivationThreshold > 1 {
		return fmt.Errorf("tracking.activation_threshold must be in (0,1], got %v", t.ActivationThreshold)
	}
	if t.ProximityMargin < 0 || t.ProximityMargin >= t.ActivationThreshold {
		return fmt.Errorf("tracking.proximity_margin must be in [0, activation_threshold), got %v", t.ProximityMargin)
	}
	if len(t.IntersectionThresholds) < 2 {
		return fmt.Errorf("tracking.intersection_thresholds needs at least 2 crossings")
	}
	if !sort.Float64sAreSorted(t.IntersectionThresholds) {
		return fmt.Errorf("tracking.intersection_thresholds must be ascending")
	}
	for _, v := range t.IntersectionThresholds {
		if v < 0 || v > 1 {
			return fmt.Errorf("tracking.intersection_thresholds values must be in [0,1], got %v", v)
		}
	}
	if t.LockTTLMillis <= 0 {
		return fmt.Errorf("tracking.lock_ttl_ms must be positive, got %d", t.LockTTLMillis)
	}
	if t.ScanIntervalMillis <= 0 {
		return fmt.Errorf("tracking.scan_interval_ms must be positive, got %d", t.ScanIntervalMillis)
	}

	if c.Scenes.ReleaseDistance <= 0 {
		return fmt.Errorf("scenes.release_distance must be positive, got %v", c.Scenes.ReleaseDistance)
	}

	return nil
}

// LockTTL returns the navigation lock TTL as a duration.
func (t Tracking) LockTTL() time.Duration {
	return time.Duration(t.LockTTLMillis) * time.Millisecond
}

// ScanInterval returns the fallback scan throttle as a duration.
func (t Tracking) ScanInterval() time.Duration {
	return time.Duration(t.ScanIntervalMillis) * time.Millisecond
}
