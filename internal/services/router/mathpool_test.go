package router

import (
	"math/big"
	"testing"

	"github.com/zeebo/assert"
)

func TestMulDiv(t *testing.T) {
	assert.Equal(t, uint64(50), MulDiv(10, 10, 2))

	// the intermediate product overflows uint64 but the result fits
	assert.Equal(t, uint64(1)<<60, MulDiv(1<<40, 1<<40, 1<<20))

	// zero divisor and oversized results collapse to zero
	assert.Equal(t, uint64(0), MulDiv(1, 1, 0))
	assert.Equal(t, uint64(0), MulDiv(^uint64(0), ^uint64(0), 1))
}

func TestSafeUint64(t *testing.T) {
	assert.Equal(t, uint64(42), SafeUint64(big.NewInt(42)))
	assert.Equal(t, uint64(0), SafeUint64(nil))
	assert.Equal(t, uint64(0), SafeUint64(big.NewInt(0)))
	assert.Equal(t, uint64(0), SafeUint64(big.NewInt(-1)))
	assert.Equal(t, uint64(0), SafeUint64(new(big.Int).Lsh(big.NewInt(1), 64)))
}
