package config

import (
	"errors"
	"os"

	"github.com/andrew-solarstorm/go-packages/common"
)

type ChainConfig struct {
	RPCUrl  string
	WSUrl   string
	ChainID uint64

	// WrappedNative is the canonical wrapped-native token address used to
	// normalize native-coin quotes.
	WrappedNative string

	// Retry tuning for RPC reads.
	RetryAttempts  int
	RetryBaseDelay int // milliseconds
}

func (r *ChainConfig) Key() string {
	return CHAIN_CONFIG_KEY
}

func (r *ChainConfig) Load() error {
	r.RPCUrl = os.Getenv("RPC_URL")
	r.WSUrl = os.Getenv("WS_URL")
	r.ChainID = uint64(common.GetEnvOrDefaultInt("CHAIN_ID", 1))
	r.WrappedNative = os.Getenv("WRAPPED_NATIVE_ADDRESS")
	r.RetryAttempts = common.GetEnvOrDefaultInt("RPC_RETRY_ATTEMPTS", 3)
	r.RetryBaseDelay = common.GetEnvOrDefaultInt("RPC_RETRY_BASE_DELAY_MS", 200)
	return nil
}

func (r *ChainConfig) Validate() error {
	if r.RPCUrl == "" {
		return errors.New("invalid chain config: RPC_URL is required")
	}
	if r.ChainID == 0 {
		return errors.New("invalid chain config: CHAIN_ID is required")
	}
	return nil
}
