package pricemath

import (
	"fmt"
	"math/big"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// magic multipliers for GetSqrtRatioAtTick, one per bit of |tick|
var tickMagic = func() []*big.Int {
	hexes := []string{
		"fff97272373d413259a46990580e213a",
		"fff2e50f5f656932ef12357cf3c7fdcc",
		"ffe5caca7e10e4e61c3624eaa0941cd0",
		"ffcb9843d60f6159c9db58835c926644",
		"ff973b41fa98c081472e6896dfb254c0",
		"ff2ea16466c96a3843ec78b326b52861",
		"fe5dee046a99a2a811c461f1969c3053",
		"fcbe86c7900a88aedcffc83b479aa3a4",
		"f987a7253ac413176f2b074cf7815e54",
		"f3392b0822b70005940c7a398e4b70f3",
		"e7159475a2c29b7443b29c7fa6e889d9",
		"d097f3bdfd2022b8845ad8f792aa5825",
		"a9f746462d870fdf8a65dc1f90e061e5",
		"70d869a156d2a1b890bb3df62baf32f7",
		"31be135f97d08fd981231505542fcfa6",
		"09aa508b5b7a84e1c677de54f3e99bc9",
		"005d6af8dedb81196699c329225ee604",
		"00002216e584f5fa1ea926041bedfe98",
		"0000000048a170391f7dc42444e8fa2",
	}
	out := make([]*big.Int, len(hexes))
	for i, h := range hexes {
		v, ok := new(big.Int).SetString(h, 16)
		if !ok {
			panic("pricemath: bad tick magic constant " + h)
		}
		out[i] = v
	}
	return out
}()

var (
	sqrtMagicBase, _ = new(big.Int).SetString("fffcb933bd6fad37aa2d162d1a594001", 16)
	maxUint256       = new(big.Int).Sub(new(big.Int).Lsh(one, 256), one)
)

// GetSqrtRatioAtTick returns sqrt(1.0001^tick) as a Q64.96 fixed point.
func GetSqrtRatioAtTick(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("%w: tick %d out of range", ErrInvalidPriceMath, tick)
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(big.Int).Lsh(one, 128)
	if absTick&1 != 0 {
		ratio.Set(sqrtMagicBase)
	}
	for i, magic := range tickMagic {
		if absTick&(1<<(uint(i)+1)) != 0 {
			ratio.Mul(ratio, magic)
			ratio.Rsh(ratio, 128)
		}
	}
	if tick > 0 {
		ratio.Div(maxUint256, ratio)
	}

	// Q128.128 -> Q64.96, rounding up
	rem := new(big.Int).And(ratio, new(big.Int).Sub(Q32, one))
	ratio.Rsh(ratio, 32)
	if rem.Sign() != 0 {
		ratio.Add(ratio, one)
	}
	return ratio, nil
}

// GetTickAtSqrtRatio returns the largest tick whose sqrt ratio is at most
// the given Q64.96 value.
func GetTickAtSqrtRatio(sqrtRatioX96 *big.Int) (int32, error) {
	if sqrtRatioX96 == nil || sqrtRatioX96.Cmp(MinSqrtRatio) < 0 || sqrtRatioX96.Cmp(MaxSqrtRatio) >= 0 {
		return 0, fmt.Errorf("%w: sqrt ratio out of range", ErrInvalidPriceMath)
	}

	// Binary search over the monotone GetSqrtRatioAtTick. Exact and
	// branch-count bounded; no floating point anywhere on this path.
	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := int32((int64(lo) + int64(hi) + 1) / 2)
		ratio, err := GetSqrtRatioAtTick(mid)
		if err != nil {
			return 0, err
		}
		if ratio.Cmp(sqrtRatioX96) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}

// EncodeSqrtRatioX96 computes sqrt(amount1/amount0) as a Q64.96 value.
func EncodeSqrtRatioX96(amount1, amount0 *big.Int) (*big.Int, error) {
	if amount0 == nil || amount1 == nil || amount0.Sign() <= 0 || amount1.Sign() < 0 {
		return nil, fmt.Errorf("%w: non-positive sqrt ratio operand", ErrInvalidPriceMath)
	}
	ratioX192 := new(big.Int).Lsh(amount1, 192)
	ratioX192.Div(ratioX192, amount0)
	return ratioX192.Sqrt(ratioX192), nil
}

// TickToPrice returns the exact price of base in terms of quote at a tick.
func TickToPrice(base, quote domain.Currency, tick int32) (domain.Price, error) {
	sqrtRatioX96, err := GetSqrtRatioAtTick(tick)
	if err != nil {
		return domain.Price{}, err
	}
	ratioX192 := new(big.Int).Mul(sqrtRatioX96, sqrtRatioX96)

	if base.SortsBefore(quote) {
		return domain.NewPrice(base, quote, Q192, ratioX192), nil
	}
	return domain.NewPrice(base, quote, ratioX192, Q192), nil
}

// PriceToClosestTick returns the tick whose price is closest to the given
// price. Round trips exactly: PriceToClosestTick(TickToPrice(t)) == t.
func PriceToClosestTick(price domain.Price) (int32, error) {
	if price.Numerator == nil || price.Denominator == nil ||
		price.Numerator.Sign() <= 0 || price.Denominator.Sign() <= 0 {
		return 0, fmt.Errorf("%w: price must be positive", ErrInvalidPriceMath)
	}

	sorted := price.Base.SortsBefore(price.Quote)

	var sqrtRatioX96 *big.Int
	var err error
	if sorted {
		sqrtRatioX96, err = EncodeSqrtRatioX96(price.Numerator, price.Denominator)
	} else {
		sqrtRatioX96, err = EncodeSqrtRatioX96(price.Denominator, price.Numerator)
	}
	if err != nil {
		return 0, err
	}

	tick, err := GetTickAtSqrtRatio(sqrtRatioX96)
	if err != nil {
		return 0, err
	}

	nextPrice, err := TickToPrice(price.Base, price.Quote, tick+1)
	if err != nil {
		return tick, nil
	}
	if sorted {
		if price.Cmp(nextPrice) >= 0 {
			tick++
		}
	} else {
		if price.Cmp(nextPrice) <= 0 {
			tick++
		}
	}
	return tick, nil
}

// NearestUsableTick rounds a tick to the nearest multiple of tickSpacing,
// clamped so the result stays inside the usable range.
func NearestUsableTick(tick, tickSpacing int32) (int32, error) {
	if tickSpacing <= 0 {
		return 0, fmt.Errorf("%w: tick spacing must be positive", ErrInvalidPriceMath)
	}
	half := tickSpacing / 2
	var rounded int32
	if tick >= 0 {
		rounded = ((tick + half) / tickSpacing) * tickSpacing
	} else {
		rounded = -((-tick + half) / tickSpacing) * tickSpacing
	}
	if rounded < MinTick {
		rounded += tickSpacing
	} else if rounded > MaxTick {
		rounded -= tickSpacing
	}
	return rounded, nil
}
