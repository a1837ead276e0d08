package config

import (
	"errors"

	"github.com/andrew-solarstorm/go-packages/common"
)

type GasConfig struct {
	// OverrideGasLimit, when nonzero, takes precedence over probed limits.
	OverrideGasLimit int

	// StaticMaxGas is the hard ceiling regardless of probe results.
	// Default: 1400000
	StaticMaxGas int

	// GasBuffer is subtracted from the resolved limit as a safety margin.
	// Default: 50000
	GasBuffer int

	// Per-trade accounting. GasPerHop applies to pool variants without a
	// dedicated entry below.
	BaseGas     int // Default: 120000
	GasPerHop   int // Default: 90000
	GasPerSplit int // Default: 60000

	// Per-variant hop costs.
	GasPerHopV2     int // Default: 75000
	GasPerHopV3     int // Default: 110000
	GasPerHopStable int // Default: 140000
	GasPerHopBin    int // Default: 95000

	// ProbeTTLMs is the lifetime of cached probe results in milliseconds.
	// Default: 3000
	ProbeTTLMs int
}

func (c *GasConfig) Key() string {
	return GAS_CONFIG_KEY
}

func (c *GasConfig) Load() error {
	c.OverrideGasLimit = common.GetEnvOrDefaultInt("GAS_OVERRIDE_LIMIT", 0)
	c.StaticMaxGas = common.GetEnvOrDefaultInt("GAS_STATIC_MAX", 1400000)
	c.GasBuffer = common.GetEnvOrDefaultInt("GAS_BUFFER", 50000)
	c.BaseGas = common.GetEnvOrDefaultInt("GAS_BASE", 120000)
	c.GasPerHop = common.GetEnvOrDefaultInt("GAS_PER_HOP", 90000)
	c.GasPerSplit = common.GetEnvOrDefaultInt("GAS_PER_SPLIT", 60000)
	c.GasPerHopV2 = common.GetEnvOrDefaultInt("GAS_PER_HOP_V2", 75000)
	c.GasPerHopV3 = common.GetEnvOrDefaultInt("GAS_PER_HOP_V3", 110000)
	c.GasPerHopStable = common.GetEnvOrDefaultInt("GAS_PER_HOP_STABLE", 140000)
	c.GasPerHopBin = common.GetEnvOrDefaultInt("GAS_PER_HOP_BIN", 95000)
	c.ProbeTTLMs = common.GetEnvOrDefaultInt("GAS_PROBE_TTL_MS", 3000)
	return c.Validate()
}

func (c *GasConfig) Validate() error {
	if c.StaticMaxGas <= 0 {
		return errors.New("invalid gas config: static max must be positive")
	}
	if c.GasBuffer >= c.StaticMaxGas {
		return errors.New("invalid gas config: buffer leaves no usable gas")
	}
	return nil
}
