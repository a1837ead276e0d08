package router

import (
	"math/big"
	"sync"

	"github.com/holiman/uint256"
)

// Pre-computed constants (avoid allocation on every call)
var (
	// Q96 = 2^96 for sqrt price fixed-point math
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Q128 = 2^128 for bin price fixed-point math
	Q128 = new(big.Int).Lsh(big.NewInt(1), 128)
	// BPS_DENOM = 10000 for basis points
	BPS_DENOM = big.NewInt(10000)
	// FEE_BASE = 1000000 for fee rate calculations
	FEE_BASE = big.NewInt(1000000)
	// ZERO for comparisons
	ZERO = big.NewInt(0)
	// ONE for calculations
	ONE = big.NewInt(1)
	// HUNDRED for percentage calculations
	HUNDRED = big.NewInt(100)

	// uint256 versions
	u256BpsDenom = uint256.NewInt(10000)
	u256FeeBase  = uint256.NewInt(1000000)
)

// Object pools for zero-allocation hot path

var uint256Pool = sync.Pool{
	New: func() interface{} {
		return new(uint256.Int)
	},
}

var bigIntPool = sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

var bigFloatPool = sync.Pool{
	New: func() interface{} {
		return new(big.Float)
	},
}

// GetU256 gets a uint256.Int from the pool
func GetU256() *uint256.Int {
	return uint256Pool.Get().(*uint256.Int)
}

// PutU256 returns a uint256.Int to the pool
func PutU256(v *uint256.Int) {
	v.Clear()
	uint256Pool.Put(v)
}

// GetBigInt gets a big.Int from the pool
func GetBigInt() *big.Int {
	return bigIntPool.Get().(*big.Int)
}

// PutBigInt returns a big.Int to the pool
func PutBigInt(v *big.Int) {
	v.SetInt64(0)
	bigIntPool.Put(v)
}

// GetBigFloat gets a big.Float from the pool
func GetBigFloat() *big.Float {
	return bigFloatPool.Get().(*big.Float)
}

// PutBigFloat returns a big.Float to the pool
func PutBigFloat(v *big.Float) {
	v.SetFloat64(0)
	bigFloatPool.Put(v)
}

// MulDiv performs (a * b) / c with full precision intermediate
func MulDiv(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	result := GetU256()
	temp := GetU256()
	defer func() {
		PutU256(result)
		PutU256(temp)
	}()

	result.SetUint64(a)
	temp.SetUint64(b)
	result.Mul(result, temp)
	temp.SetUint64(c)
	result.Div(result, temp)

	if result.IsUint64() {
		return result.Uint64()
	}
	return 0
}

// mulDivBig computes floor(a*b/c) into a fresh big.Int.
func mulDivBig(a, b, c *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Div(out, c)
}

// mulDivRoundingUp computes ceil(a*b/c) into a fresh big.Int.
func mulDivRoundingUp(a, b, c *big.Int) *big.Int {
	num := new(big.Int).Mul(a, b)
	out, rem := new(big.Int).DivMod(num, c, new(big.Int))
	if rem.Sign() != 0 {
		out.Add(out, ONE)
	}
	return out
}

// SafeUint64 safely converts big.Int to uint64, returning 0 if overflow
func SafeUint64(b *big.Int) uint64 {
	if b == nil || b.Sign() <= 0 {
		return 0
	}
	if !b.IsUint64() {
		return 0
	}
	return b.Uint64()
}
