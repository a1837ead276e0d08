// Package common contains common constants and variables used across services
package common

import "github.com/ethereum/go-ethereum/common"

var (
	// NativeTokenAddress is the sentinel address clients use for the
	// chain's native coin in quote requests.
	NativeTokenAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

	// Wrapped native token per supported chain id.
	WrappedNativeByChain = map[uint64]common.Address{
		1:     common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), // WETH mainnet
		56:    common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c"), // WBNB
		137:   common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"), // WMATIC
		8453:  common.HexToAddress("0x4200000000000000000000000000000000000006"), // WETH base
		42161: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), // WETH arbitrum
	}
)

const (
	// FeeBase is the denominator for pool fee rates (millionths of input).
	FeeBase = 1_000_000

	// BpsDenominator scales basis point values.
	BpsDenominator = 10_000
)
