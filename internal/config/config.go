// Package config loads client settings from ~/.murmur/config.yaml with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Hub      HubConfig      `yaml:"hub"`
	Defaults RunDefaults    `yaml:"defaults"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type HubConfig struct {
	URL             string `yaml:"url"`
	Token           string `yaml:"token"`
	SnapshotTimeout string `yaml:"snapshot_timeout"` // e.g. "10s"
}

// RunDefaults are applied to runs that don't specify their own flags.
type RunDefaults struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	Mode     string `yaml:"mode"` // "emergent" or "direct"
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Hub: HubConfig{
			URL:             "http://localhost:8000",
			SnapshotTimeout: "10s",
		},
		Defaults: RunDefaults{Mode: "emergent"},
		Logging:  LoggingConfig{Level: "info"},
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// environment variables override either way.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if url := os.Getenv("MURMUR_HUB_URL"); url != "" {
		cfg.Hub.URL = url
	}
	if token := os.Getenv("MURMUR_HUB_TOKEN"); token != "" {
		cfg.Hub.Token = token
	}
	if mode := os.Getenv("MURMUR_MODE"); mode != "" {
		cfg.Defaults.Mode = mode
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Hub.URL == "" {
		return fmt.Errorf("hub.url is required")
	}
	if m := c.Defaults.Mode; m != "" && m != "emergent" && m != "direct" {
		return fmt.Errorf("defaults.mode must be 'emergent' or 'direct'")
	}
	if c.Hub.SnapshotTimeout != "" {
		if _, err := time.ParseDuration(c.Hub.SnapshotTimeout); err != nil {
			return fmt.Errorf("hub.snapshot_timeout: %w", err)
		}
	}
	return nil
}

// SnapshotTimeout returns the parsed attach timeout, or 10s.
func (c *Config) SnapshotTimeout() time.Duration {
	d, err := time.ParseDuration(c.Hub.SnapshotTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}
