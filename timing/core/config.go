package core

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sarchlab/m64sim/timing/cache"
	"github.com/sarchlab/m64sim/timing/latency"
)

// Config aggregates the timing and cache configuration of a Machine.
type Config struct {
	Timing *latency.TimingConfig  `json:"timing"`
	Cache  cache.HierarchyConfig `json:"cache"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Timing: latency.DefaultTimingConfig(),
		Cache:  cache.DefaultHierarchyConfig(),
	}
}

// LoadConfig loads a Config from a JSON file. Missing fields keep their
// defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the timing and cache sections.
func (c *Config) Validate() error {
	if c.Timing == nil {
		return fmt.Errorf("timing section is missing")
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Timing != nil {
		clone.Timing = c.Timing.Clone()
	}
	return &clone
}
