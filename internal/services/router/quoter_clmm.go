package router

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/pricemath"
)

// clmmPostState is the tick-walk state after a hypothetical concentrated swap.
type clmmPostState struct {
	SqrtPriceX96 *big.Int
	Tick         int32
	Liquidity    *big.Int
}

// quoteConcentrated walks the initialized tick list of a concentrated pool,
// consuming liquidity range by range until the requested amount is satisfied.
// Running out of initialized ticks with amount remaining fails the quote.
func (q *Quoter) quoteConcentrated(pool *domain.Pool, amount *big.Int, zeroForOne bool, exactIn bool) (*domain.SwapQuote, error) {
	data, ok := pool.TypeSpecific.(*domain.ConcentratedData)
	if !ok || data == nil {
		return nil, fmt.Errorf("%w: missing concentrated state", ErrInvalidPool)
	}
	if data.SqrtPriceX96 == nil || data.SqrtPriceX96.Sign() <= 0 || data.Liquidity == nil {
		return nil, fmt.Errorf("%w: missing concentrated state", ErrInvalidPool)
	}

	startSqrtPrice := data.SqrtPriceX96

	state := clmmSwapState{
		amountRemaining: new(big.Int).Set(amount),
		amountOther:     new(big.Int),
		feeTotal:        new(big.Int),
		sqrtPriceX96:    new(big.Int).Set(data.SqrtPriceX96),
		tick:            data.CurrentTick,
		liquidity:       new(big.Int).Set(data.Liquidity),
	}

	for state.amountRemaining.Sign() > 0 {
		nextTick, found := nextInitializedTick(data.Ticks, state.tick, zeroForOne)
		if !found {
			return nil, fmt.Errorf("%w: exhausted initialized ticks", ErrInsufficientLiquidity)
		}

		sqrtPriceNext, err := pricemath.GetSqrtRatioAtTick(nextTick.Index)
		if err != nil {
			return nil, err
		}

		if err := computeSwapStep(&state, sqrtPriceNext, pool.FeeRate, zeroForOne, exactIn); err != nil {
			return nil, err
		}

		if state.sqrtPriceX96.Cmp(sqrtPriceNext) == 0 {
			// crossed the tick; liquidityNet is added going up, removed
			// going down
			net := nextTick.LiquidityNet
			if net == nil {
				net = ZERO
			}
			if zeroForOne {
				state.liquidity.Sub(state.liquidity, net)
			} else {
				state.liquidity.Add(state.liquidity, net)
			}
			if state.liquidity.Sign() < 0 {
				return nil, fmt.Errorf("%w: negative liquidity after crossing tick %d", ErrInvalidPool, nextTick.Index)
			}
			if zeroForOne {
				state.tick = nextTick.Index - 1
			} else {
				state.tick = nextTick.Index
			}
		} else if state.amountRemaining.Sign() > 0 {
			return nil, fmt.Errorf("%w: swap stalled inside range", ErrInsufficientLiquidity)
		}
	}

	var amountIn, amountOut *big.Int
	if exactIn {
		amountIn = new(big.Int).Set(amount)
		amountOut = state.amountOther
	} else {
		amountOut = new(big.Int).Set(amount)
		amountIn = state.amountOther
	}
	if amountOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	finalTick, err := pricemath.GetTickAtSqrtRatio(state.sqrtPriceX96)
	if err == nil {
		state.tick = finalTick
	}

	impact := calculatePriceImpactSqrtX96(amountIn, amountOut, zeroForOne, startSqrtPrice, pool.FeeRate)

	return &domain.SwapQuote{
		Pool:           pool,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		Fee:            state.feeTotal,
		ZeroForOne:     zeroForOne,
		PriceImpactBps: impact,
		PostState: &clmmPostState{
			SqrtPriceX96: state.sqrtPriceX96,
			Tick:         state.tick,
			Liquidity:    state.liquidity,
		},
	}, nil
}

type clmmSwapState struct {
	amountRemaining *big.Int
	amountOther     *big.Int
	feeTotal        *big.Int
	sqrtPriceX96    *big.Int
	tick            int32
	liquidity       *big.Int
}

// nextInitializedTick finds the next tick to walk toward. Going down
// (zeroForOne) it is the nearest tick at or below the current tick; going up
// it is the nearest tick strictly above. Ticks are sorted ascending.
func nextInitializedTick(ticks []domain.Tick, current int32, zeroForOne bool) (domain.Tick, bool) {
	if zeroForOne {
		idx := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > current })
		if idx == 0 {
			return domain.Tick{}, false
		}
		return ticks[idx-1], true
	}
	idx := sort.Search(len(ticks), func(i int) bool { return ticks[i].Index > current })
	if idx == len(ticks) {
		return domain.Tick{}, false
	}
	return ticks[idx], true
}

// computeSwapStep advances the price toward sqrtPriceTarget, consuming as
// much of amountRemaining as the current liquidity range allows. Fees come
// off the input side.
func computeSwapStep(state *clmmSwapState, sqrtPriceTarget *big.Int, feeRate uint32, zeroForOne, exactIn bool) error {
	if state.liquidity.Sign() == 0 {
		// no liquidity in this range, jump straight to the target
		state.sqrtPriceX96.Set(sqrtPriceTarget)
		return nil
	}

	feeRateBig := big.NewInt(int64(feeRate))
	feeComplement := new(big.Int).Sub(FEE_BASE, feeRateBig)

	var amountInMax, amountOutMax *big.Int
	if zeroForOne {
		amountInMax = getAmount0Delta(sqrtPriceTarget, state.sqrtPriceX96, state.liquidity, true)
		amountOutMax = getAmount1Delta(sqrtPriceTarget, state.sqrtPriceX96, state.liquidity, false)
	} else {
		amountInMax = getAmount1Delta(state.sqrtPriceX96, sqrtPriceTarget, state.liquidity, true)
		amountOutMax = getAmount0Delta(state.sqrtPriceX96, sqrtPriceTarget, state.liquidity, false)
	}

	var stepIn, stepOut, stepFee *big.Int
	reachesTarget := false

	if exactIn {
		// net of fee amount available for this step
		available := mulDivBig(state.amountRemaining, feeComplement, FEE_BASE)
		if available.Cmp(amountInMax) >= 0 {
			reachesTarget = true
			stepIn = amountInMax
			stepOut = amountOutMax
			stepFee = mulDivRoundingUp(stepIn, feeRateBig, feeComplement)
			state.sqrtPriceX96.Set(sqrtPriceTarget)
		} else {
			stepIn = available
			next, err := getNextSqrtPriceFromInput(state.sqrtPriceX96, state.liquidity, stepIn, zeroForOne)
			if err != nil {
				return err
			}
			if zeroForOne {
				stepOut = getAmount1Delta(next, state.sqrtPriceX96, state.liquidity, false)
			} else {
				stepOut = getAmount0Delta(state.sqrtPriceX96, next, state.liquidity, false)
			}
			// remainder of the input is the fee
			stepFee = new(big.Int).Sub(state.amountRemaining, stepIn)
			state.sqrtPriceX96.Set(next)
		}
		if reachesTarget {
			consumed := new(big.Int).Add(stepIn, stepFee)
			state.amountRemaining.Sub(state.amountRemaining, consumed)
			if state.amountRemaining.Sign() < 0 {
				state.amountRemaining.SetInt64(0)
			}
		} else {
			state.amountRemaining.SetInt64(0)
		}
		state.amountOther.Add(state.amountOther, stepOut)
	} else {
		if state.amountRemaining.Cmp(amountOutMax) >= 0 {
			reachesTarget = true
			stepOut = amountOutMax
			stepIn = amountInMax
			state.sqrtPriceX96.Set(sqrtPriceTarget)
		} else {
			stepOut = state.amountRemaining
			next, err := getNextSqrtPriceFromOutput(state.sqrtPriceX96, state.liquidity, stepOut, zeroForOne)
			if err != nil {
				return err
			}
			if zeroForOne {
				stepIn = getAmount0Delta(next, state.sqrtPriceX96, state.liquidity, true)
			} else {
				stepIn = getAmount1Delta(state.sqrtPriceX96, next, state.liquidity, true)
			}
			state.sqrtPriceX96.Set(next)
		}
		stepFee = mulDivRoundingUp(stepIn, feeRateBig, feeComplement)
		state.amountRemaining.Sub(state.amountRemaining, stepOut)
		if !reachesTarget {
			state.amountRemaining.SetInt64(0)
		}
		state.amountOther.Add(state.amountOther, stepIn)
		state.amountOther.Add(state.amountOther, stepFee)
	}

	state.feeTotal.Add(state.feeTotal, stepFee)
	return nil
}

// getAmount0Delta computes the token0 amount between two sqrt prices for the
// given liquidity: L * (sqrtB - sqrtA) * Q96 / (sqrtA * sqrtB).
func getAmount0Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	num := new(big.Int).Sub(sqrtB, sqrtA)
	num.Mul(num, liquidity)
	num.Mul(num, Q96)
	denom := new(big.Int).Mul(sqrtA, sqrtB)
	if roundUp {
		out, rem := new(big.Int).DivMod(num, denom, new(big.Int))
		if rem.Sign() != 0 {
			out.Add(out, ONE)
		}
		return out
	}
	return num.Div(num, denom)
}

// getAmount1Delta computes the token1 amount between two sqrt prices:
// L * (sqrtB - sqrtA) / Q96.
func getAmount1Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(big.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		return mulDivRoundingUp(diff, liquidity, Q96)
	}
	return mulDivBig(diff, liquidity, Q96)
}

// getNextSqrtPriceFromInput returns the sqrt price after consuming amountIn.
// zeroForOne pushes the price down, rounding up so the pool never gives out
// more than it received.
func getNextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn *big.Int, zeroForOne bool) (*big.Int, error) {
	if amountIn.Sign() == 0 {
		return new(big.Int).Set(sqrtPrice), nil
	}
	if zeroForOne {
		// next = L * Q96 * sqrtP / (L * Q96 + amountIn * sqrtP), rounded up
		num := new(big.Int).Mul(liquidity, Q96)
		prod := new(big.Int).Mul(amountIn, sqrtPrice)
		denom := new(big.Int).Add(num, prod)
		return mulDivRoundingUp(num, sqrtPrice, denom), nil
	}
	// next = sqrtP + amountIn * Q96 / L, rounded down
	delta := mulDivBig(amountIn, Q96, liquidity)
	return new(big.Int).Add(sqrtPrice, delta), nil
}

// getNextSqrtPriceFromOutput returns the sqrt price after paying out
// amountOut, rounding against the taker.
func getNextSqrtPriceFromOutput(sqrtPrice, liquidity, amountOut *big.Int, zeroForOne bool) (*big.Int, error) {
	if zeroForOne {
		// paying out token1: next = sqrtP - amountOut * Q96 / L, rounded up
		delta := mulDivRoundingUp(amountOut, Q96, liquidity)
		next := new(big.Int).Sub(sqrtPrice, delta)
		if next.Sign() <= 0 {
			return nil, ErrInsufficientLiquidity
		}
		return next, nil
	}
	// paying out token0: next = L * Q96 * sqrtP / (L * Q96 - amountOut * sqrtP)
	num := new(big.Int).Mul(liquidity, Q96)
	prod := new(big.Int).Mul(amountOut, sqrtPrice)
	denom := new(big.Int).Sub(num, prod)
	if denom.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}
	return mulDivRoundingUp(num, sqrtPrice, denom), nil
}
