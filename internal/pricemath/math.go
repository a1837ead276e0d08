// Package pricemath implements the fixed-point price conversions shared by
// the pool quoters: tick <-> sqrt price <-> price for concentrated pools,
// bin id <-> price for discretized pools, and the packed protocol fee field.
package pricemath

import (
	"errors"
	"math/big"
)

var ErrInvalidPriceMath = errors.New("invalid price math input")

const (
	// MinTick and MaxTick bound the usable tick range of concentrated pools.
	MinTick int32 = -887272
	MaxTick int32 = 887272

	// BasisPointMax scales bin steps: a binStep of 25 means each bin is
	// 0.25% apart in price.
	BasisPointMax = 10000
)

var (
	// Q32, Q96, Q192 fixed-point scales
	Q32  = new(big.Int).Lsh(big.NewInt(1), 32)
	Q96  = new(big.Int).Lsh(big.NewInt(1), 96)
	Q192 = new(big.Int).Lsh(big.NewInt(1), 192)

	// MinSqrtRatio is GetSqrtRatioAtTick(MinTick), MaxSqrtRatio is
	// GetSqrtRatioAtTick(MaxTick).
	MinSqrtRatio    = big.NewInt(4295128739)
	MaxSqrtRatio, _ = new(big.Int).SetString("1461446703485210103287273052203988822378723970342", 10)

	one = big.NewInt(1)
	two = big.NewInt(2)
)
