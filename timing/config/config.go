// Package config holds the tunable parameters of a timing run and their JSON
// file format.
package config

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"

	"github.com/sarchlab/legsim/timing/cache"
	"github.com/sarchlab/legsim/timing/pipeline"
)

// Config holds the cache geometries, predictor sizes and run limits.
type Config struct {
	// ICache is the instruction cache geometry.
	// Default: 64 sets, 4 ways, 32-byte blocks, 10-cycle misses.
	ICache cache.Config `json:"icache"`

	// DCache is the data cache geometry.
	// Default: 256 sets, 8 ways, 32-byte blocks, 10-cycle misses.
	DCache cache.Config `json:"dcache"`

	// Predictor sizes the gshare tables. Default: 8 history bits, 1024 BTB
	// entries.
	Predictor pipeline.BranchPredictorConfig `json:"predictor"`

	// EntryPC is where the program image is loaded and fetch starts.
	// Default: 0x00400000.
	EntryPC uint64 `json:"entry_pc"`

	// MaxCycles stops a run that has not halted. Zero means no limit.
	MaxCycles uint64 `json:"max_cycles"`

	// FrequencyGHz is the core clock used to convert cycles to simulated
	// time. Default: 1.
	FrequencyGHz float64 `json:"frequency_ghz"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	return &Config{
		ICache:       cache.DefaultInstructionConfig(),
		DCache:       cache.DefaultDataConfig(),
		Predictor:    pipeline.DefaultBranchPredictorConfig(),
		EntryPC:      pipeline.DefaultEntryPC,
		FrequencyGHz: 1,
	}
}

// LoadConfig loads a Config from a JSON file. Fields the file leaves out
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read timing config file")
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, errors.Wrap(err, "failed to parse timing config")
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid timing config %s", path)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize timing config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write timing config file")
	}

	return nil
}

// Validate checks that every value can be simulated.
func (c *Config) Validate() error {
	if err := c.ICache.Validate(); err != nil {
		return errors.Wrap(err, "icache")
	}
	if err := c.DCache.Validate(); err != nil {
		return errors.Wrap(err, "dcache")
	}
	if c.Predictor.HistoryBits == 0 || c.Predictor.HistoryBits > 16 {
		return errors.Errorf("predictor.history_bits must be in [1, 16], got %d",
			c.Predictor.HistoryBits)
	}
	if c.Predictor.BTBIndexBits == 0 || c.Predictor.BTBIndexBits > 20 {
		return errors.Errorf("predictor.btb_index_bits must be in [1, 20], got %d",
			c.Predictor.BTBIndexBits)
	}
	if c.EntryPC%4 != 0 {
		return errors.Errorf("entry_pc must be word aligned, got 0x%x", c.EntryPC)
	}
	if c.FrequencyGHz <= 0 {
		return errors.Errorf("frequency_ghz must be > 0, got %g", c.FrequencyGHz)
	}
	return nil
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// PipelineOptions turns the configuration into pipeline options.
func (c *Config) PipelineOptions() []pipeline.PipelineOption {
	return []pipeline.PipelineOption{
		pipeline.WithICache(c.ICache),
		pipeline.WithDCache(c.DCache),
		pipeline.WithBranchPredictor(c.Predictor),
		pipeline.WithEntryPC(c.EntryPC),
	}
}
