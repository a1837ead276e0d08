package router

import (
	"math/big"
	"testing"

	"github.com/zeebo/assert"
)

func TestPriceImpactU64MatchesBigPath(t *testing.T) {
	// fee-free so scaling every operand preserves the ratio exactly
	amountIn := new(big.Int).SetUint64(1_000_000_000)
	amountOut := new(big.Int).SetUint64(990_000_000)
	spotNum := new(big.Int).SetUint64(2_000_000_000_000)
	spotDenom := new(big.Int).SetUint64(2_000_000_000_000)

	small := calculatePriceImpact(amountIn, amountOut, spotNum, spotDenom, 0)
	assert.Equal(t, uint16(100), small)

	// pushing the spot rational past 64 bits forces the big.Int path; the
	// scaled operands describe the same trade, so the impact is unchanged
	wide := calculatePriceImpact(
		new(big.Int).Lsh(amountIn, 32),
		new(big.Int).Lsh(amountOut, 32),
		new(big.Int).Lsh(spotNum, 32),
		new(big.Int).Lsh(spotDenom, 32),
		0,
	)
	assert.Equal(t, small, wide)
}

func TestPriceImpactU64FeeExcluded(t *testing.T) {
	// output exactly matches the fee-reduced input at spot: pure fee, no
	// slippage, no impact
	impact := calculatePriceImpact(
		new(big.Int).SetUint64(1_000_000),
		new(big.Int).SetUint64(997_500),
		new(big.Int).SetUint64(1_000_000_000),
		new(big.Int).SetUint64(1_000_000_000),
		2500,
	)
	assert.Equal(t, uint16(0), impact)

	// a confiscatory fee rate leaves no effective input
	impact = calculatePriceImpact(
		new(big.Int).SetUint64(1_000_000),
		new(big.Int).SetUint64(1),
		new(big.Int).SetUint64(1_000_000_000),
		new(big.Int).SetUint64(1_000_000_000),
		1_000_000,
	)
	assert.Equal(t, uint16(0), impact)
}
