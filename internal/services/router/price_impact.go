package router

import (
	"math/big"
)

// Price impact thresholds in basis points (bps)
const (
	PriceImpactLow      uint16 = 100  // 1% - Low impact
	PriceImpactModerate uint16 = 300  // 3% - Moderate impact
	PriceImpactHigh     uint16 = 500  // 5% - High impact
	PriceImpactExtreme  uint16 = 1000 // 10% - Extreme impact
)

// PriceImpactSeverity represents the severity level of price impact
type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"     // < 1%
	SeverityLow      PriceImpactSeverity = "low"      // 1-3%
	SeverityModerate PriceImpactSeverity = "moderate" // 3-5%
	SeverityHigh     PriceImpactSeverity = "high"     // 5-10%
	SeverityExtreme  PriceImpactSeverity = "extreme"  // > 10%
)

// GetPriceImpactSeverity returns the severity level based on price impact bps
func GetPriceImpactSeverity(priceImpactBps uint16) PriceImpactSeverity {
	switch {
	case priceImpactBps < PriceImpactLow:
		return SeverityNone
	case priceImpactBps < PriceImpactModerate:
		return SeverityLow
	case priceImpactBps < PriceImpactHigh:
		return SeverityModerate
	case priceImpactBps < PriceImpactExtreme:
		return SeverityHigh
	default:
		return SeverityExtreme
	}
}

// calculatePriceImpact derives the impact in bps from the spot price before
// the trade and the fee-excluded execution price. spotNum/spotDenom is the
// output-per-input spot price as an exact rational.
// impact = (1 - effective/spot) * 10000, clamped at zero for positive slippage.
func calculatePriceImpact(amountIn, amountOut, spotNum, spotDenom *big.Int, feeRate uint32) uint16 {
	if amountIn == nil || amountOut == nil || spotNum == nil || spotDenom == nil {
		return 0
	}
	if amountIn.Sign() <= 0 || amountOut.Sign() <= 0 || spotNum.Sign() <= 0 || spotDenom.Sign() <= 0 {
		return 0
	}

	if amountIn.IsUint64() && amountOut.IsUint64() && spotNum.IsUint64() && spotDenom.IsUint64() {
		return priceImpactU64(amountIn.Uint64(), amountOut.Uint64(), spotNum.Uint64(), spotDenom.Uint64(), feeRate)
	}

	feeAmount := GetBigInt()
	amountInEffective := GetBigInt()
	lhs := GetBigInt()
	rhs := GetBigInt()
	impact := GetBigInt()
	defer func() {
		PutBigInt(feeAmount)
		PutBigInt(amountInEffective)
		PutBigInt(lhs)
		PutBigInt(rhs)
		PutBigInt(impact)
	}()

	// Exclude the fee so impact reflects pure slippage
	feeAmount.SetInt64(int64(feeRate))
	feeAmount.Mul(feeAmount, amountIn)
	feeAmount.Div(feeAmount, FEE_BASE)
	amountInEffective.Sub(amountIn, feeAmount)
	if amountInEffective.Sign() <= 0 {
		return 0
	}

	// effective >= spot means positive slippage: no impact
	// compare amountOut/amountInEffective vs spotNum/spotDenom
	lhs.Mul(amountOut, spotDenom)
	rhs.Mul(spotNum, amountInEffective)
	if lhs.Cmp(rhs) >= 0 {
		return 0
	}

	// impact = (rhs - lhs) * 10000 / rhs
	impact.Sub(rhs, lhs)
	impact.Mul(impact, BPS_DENOM)
	impact.Div(impact, rhs)

	if !impact.IsUint64() || impact.Uint64() > 65535 {
		return 65535
	}
	return uint16(impact.Uint64())
}

// priceImpactU64 is the impact calculation on pooled uint256 words for
// operands that fit in 64 bits. The cross products exceed 64 bits, so the
// comparison and the bps ratio stay in uint256. Results match the big.Int
// path exactly.
func priceImpactU64(amountIn, amountOut, spotNum, spotDenom uint64, feeRate uint32) uint16 {
	fee := MulDiv(amountIn, uint64(feeRate), u256FeeBase.Uint64())
	if fee >= amountIn {
		return 0
	}
	effective := amountIn - fee

	lhs := GetU256()
	rhs := GetU256()
	tmp := GetU256()
	defer func() {
		PutU256(lhs)
		PutU256(rhs)
		PutU256(tmp)
	}()

	lhs.SetUint64(amountOut)
	lhs.Mul(lhs, tmp.SetUint64(spotDenom))
	rhs.SetUint64(spotNum)
	rhs.Mul(rhs, tmp.SetUint64(effective))
	if lhs.Cmp(rhs) >= 0 {
		return 0
	}

	// (rhs - lhs) / rhs < 1, so the scaled ratio never exceeds the bps
	// denominator
	tmp.Sub(rhs, lhs)
	tmp.Mul(tmp, u256BpsDenom)
	tmp.Div(tmp, rhs)
	return uint16(tmp.Uint64())
}

// calculatePriceImpactSqrtX96 computes impact for a concentrated pool from
// its pre-trade sqrt price. The spot output-per-input price is
// sqrtPriceX96^2 / 2^192 for zeroForOne, and its inverse otherwise.
func calculatePriceImpactSqrtX96(amountIn, amountOut *big.Int, zeroForOne bool, sqrtPriceX96 *big.Int, feeRate uint32) uint16 {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return 0
	}
	ratioX192 := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	q192 := new(big.Int).Mul(Q96, Q96)
	if zeroForOne {
		return calculatePriceImpact(amountIn, amountOut, ratioX192, q192, feeRate)
	}
	return calculatePriceImpact(amountIn, amountOut, q192, ratioX192, feeRate)
}

// GetPriceImpactWarning returns a user-friendly warning message based on impact
func GetPriceImpactWarning(priceImpactBps uint16) string {
	switch GetPriceImpactSeverity(priceImpactBps) {
	case SeverityLow:
		return "Low price impact"
	case SeverityModerate:
		return "Moderate price impact - consider reducing trade size"
	case SeverityHigh:
		return "High price impact - you may receive significantly less tokens"
	case SeverityExtreme:
		return "EXTREME price impact - this trade will severely impact the market price"
	default:
		return ""
	}
}
