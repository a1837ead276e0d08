package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type EngineConfig struct {
	// DBPath is the path to the BoltDB file for pool persistence.
	// Default: "./data/quote-engine.db"
	DBPath string

	// PersistenceEnabled controls whether pools are persisted to disk.
	// Default: true
	PersistenceEnabled bool

	// PersistInterval is how often pools are batch-saved to disk (in seconds).
	// Default: 30
	PersistInterval int

	// MaxHops bounds the path length of multi-hop routes.
	// Default: 3
	MaxHops int

	// SplitImpactThresholdBps gates split routing: splits are only searched
	// when the best single route's price impact exceeds this.
	// Default: 100
	SplitImpactThresholdBps int

	// QuoteCacheTTLMs is the lifetime of cached trades in milliseconds.
	// Default: 300
	QuoteCacheTTLMs int
}

func (c *EngineConfig) Key() string {
	return ENGINE_CONFIG_KEY
}

func (c *EngineConfig) Load() error {
	c.DBPath = common.GetEnvOrDefault("ENGINE_DB_PATH", "./data/quote-engine.db")
	c.PersistenceEnabled = common.GetEnvOrDefault("ENGINE_PERSISTENCE_ENABLED", "true") == "true"
	c.PersistInterval = common.GetEnvOrDefaultInt("ENGINE_PERSIST_INTERVAL", 30)
	c.MaxHops = common.GetEnvOrDefaultInt("ENGINE_MAX_HOPS", 3)
	c.SplitImpactThresholdBps = common.GetEnvOrDefaultInt("ENGINE_SPLIT_IMPACT_THRESHOLD_BPS", 100)
	c.QuoteCacheTTLMs = common.GetEnvOrDefaultInt("ENGINE_QUOTE_CACHE_TTL_MS", 300)
	return nil
}

func (c *EngineConfig) Validate() error {
	return nil
}
