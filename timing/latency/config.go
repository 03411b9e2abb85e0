package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds the pipeline parameters of the MIPS64 machine.
type TimingConfig struct {
	// Forwarding enables result forwarding. Without it, results become
	// visible to dependent instructions only in WB. Default: true.
	Forwarding bool `json:"forwarding"`

	// DividerLatency is the number of cycles DIV.D occupies the FP divider.
	// Default: 24 cycles.
	DividerLatency uint64 `json:"divider_latency"`

	// SyncExceptions makes integer overflow and division by zero fail the
	// step instead of being masked. Default: false.
	SyncExceptions bool `json:"sync_exceptions"`

	// DataMemorySize is the data memory size in bytes, a multiple of 8.
	// Default: 8192 bytes.
	DataMemorySize int `json:"data_memory_size"`

	// CodeMemorySize is the maximum number of instructions in a program.
	// Default: 4096 instructions.
	CodeMemorySize int `json:"code_memory_size"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		Forwarding:     true,
		DividerLatency: 24,
		SyncExceptions: false,
		DataMemorySize: 8192,
		CodeMemorySize: 4096,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Missing fields keep
// their defaults.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all values are usable.
func (c *TimingConfig) Validate() error {
	if c.DividerLatency == 0 {
		return fmt.Errorf("divider_latency must be > 0")
	}
	if c.DataMemorySize <= 0 || c.DataMemorySize%8 != 0 {
		return fmt.Errorf("data_memory_size must be a positive multiple of 8")
	}
	if c.CodeMemorySize <= 0 {
		return fmt.Errorf("code_memory_size must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
