package router

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/pricemath"
)

// binPostState is the bin-walk state after a hypothetical bin swap.
type binPostState struct {
	ActiveID uint32
	Bins     []domain.Bin
}

// quoteBin walks the discrete bins of a bin-liquidity pool. Selling X moves
// the active id down through bins holding Y; selling Y moves it up through
// bins holding X. Each bin trades at its own fixed price.
func (q *Quoter) quoteBin(pool *domain.Pool, amount *big.Int, zeroForOne bool, exactIn bool) (*domain.SwapQuote, error) {
	data, ok := pool.TypeSpecific.(*domain.BinData)
	if !ok || data == nil || len(data.Bins) == 0 {
		return nil, fmt.Errorf("%w: missing bin state", ErrInvalidPool)
	}

	bins := make([]domain.Bin, len(data.Bins))
	for i, b := range data.Bins {
		bins[i] = domain.Bin{ID: b.ID}
		if b.ReserveX != nil {
			bins[i].ReserveX = new(big.Int).Set(b.ReserveX)
		} else {
			bins[i].ReserveX = new(big.Int)
		}
		if b.ReserveY != nil {
			bins[i].ReserveY = new(big.Int).Set(b.ReserveY)
		} else {
			bins[i].ReserveY = new(big.Int)
		}
	}

	start := sort.Search(len(bins), func(i int) bool { return bins[i].ID >= data.ActiveID })

	feeRate := big.NewInt(int64(pool.FeeRate))
	feeComplement := new(big.Int).Sub(FEE_BASE, feeRate)

	remaining := new(big.Int).Set(amount)
	amountOther := new(big.Int)
	feeTotal := new(big.Int)
	activeID := data.ActiveID

	// bin index iteration order: selling X consumes Y liquidity at and below
	// the active bin; selling Y consumes X liquidity at and above it.
	idx := start
	if zeroForOne && idx == len(bins) {
		idx = len(bins) - 1
	}

	for remaining.Sign() > 0 {
		if idx < 0 || idx >= len(bins) {
			return nil, fmt.Errorf("%w: exhausted bins", ErrInsufficientLiquidity)
		}
		bin := &bins[idx]

		priceX128, err := binPriceX128(bin.ID, data.BinStep)
		if err != nil {
			return nil, err
		}

		var binOut *big.Int
		if zeroForOne {
			binOut = bin.ReserveY
		} else {
			binOut = bin.ReserveX
		}

		if binOut.Sign() > 0 {
			stepIn, stepOut, stepFee := binSwapStep(remaining, binOut, priceX128, zeroForOne, exactIn, feeRate, feeComplement)

			if exactIn {
				remaining.Sub(remaining, stepIn)
				remaining.Sub(remaining, stepFee)
				amountOther.Add(amountOther, stepOut)
			} else {
				remaining.Sub(remaining, stepOut)
				amountOther.Add(amountOther, stepIn)
				amountOther.Add(amountOther, stepFee)
			}
			feeTotal.Add(feeTotal, stepFee)

			if zeroForOne {
				bin.ReserveX.Add(bin.ReserveX, stepIn)
				bin.ReserveY.Sub(bin.ReserveY, stepOut)
			} else {
				bin.ReserveY.Add(bin.ReserveY, stepIn)
				bin.ReserveX.Sub(bin.ReserveX, stepOut)
			}
			if remaining.Sign() < 0 {
				remaining.SetInt64(0)
			}
		}

		if remaining.Sign() == 0 {
			activeID = bin.ID
			break
		}
		if zeroForOne {
			idx--
		} else {
			idx++
		}
	}

	var amountIn, amountOut *big.Int
	if exactIn {
		amountIn = new(big.Int).Set(amount)
		amountOut = amountOther
	} else {
		amountOut = new(big.Int).Set(amount)
		amountIn = amountOther
	}
	if amountOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	spotNum, spotDenom, err := binSpotPrice(data.ActiveID, data.BinStep, zeroForOne)
	if err != nil {
		return nil, err
	}
	impact := calculatePriceImpact(amountIn, amountOut, spotNum, spotDenom, pool.FeeRate)

	return &domain.SwapQuote{
		Pool:           pool,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		Fee:            feeTotal,
		ZeroForOne:     zeroForOne,
		PriceImpactBps: impact,
		PostState:      &binPostState{ActiveID: activeID, Bins: bins},
	}, nil
}

// binSwapStep fills as much of the remaining amount as one bin allows at its
// fixed Y-per-X price. Returns the net input, the output, and the input fee.
func binSwapStep(remaining, binOut, priceX128 *big.Int, zeroForOne, exactIn bool, feeRate, feeComplement *big.Int) (stepIn, stepOut, stepFee *big.Int) {
	// input needed to drain the bin entirely
	var inForBin *big.Int
	if zeroForOne {
		// out = in * price / Q128
		inForBin = mulDivRoundingUp(binOut, Q128, priceX128)
	} else {
		// out = in * Q128 / price
		inForBin = mulDivRoundingUp(binOut, priceX128, Q128)
	}

	if exactIn {
		available := mulDivBig(remaining, feeComplement, FEE_BASE)
		if available.Cmp(inForBin) >= 0 {
			stepIn = inForBin
			stepOut = new(big.Int).Set(binOut)
			stepFee = mulDivRoundingUp(stepIn, feeRate, feeComplement)
		} else {
			stepIn = available
			if zeroForOne {
				stepOut = mulDivBig(stepIn, priceX128, Q128)
			} else {
				stepOut = mulDivBig(stepIn, Q128, priceX128)
			}
			stepFee = new(big.Int).Sub(remaining, stepIn)
		}
		return stepIn, stepOut, stepFee
	}

	if remaining.Cmp(binOut) >= 0 {
		stepOut = new(big.Int).Set(binOut)
		stepIn = inForBin
	} else {
		stepOut = new(big.Int).Set(remaining)
		if zeroForOne {
			stepIn = mulDivRoundingUp(stepOut, Q128, priceX128)
		} else {
			stepIn = mulDivRoundingUp(stepOut, priceX128, Q128)
		}
	}
	stepFee = mulDivRoundingUp(stepIn, feeRate, feeComplement)
	return stepIn, stepOut, stepFee
}

// binPriceX128 converts the float bin price into Q128.128 fixed point so the
// per-bin fills stay in integer math.
func binPriceX128(binID uint32, binStep uint16) (*big.Int, error) {
	price, err := pricemath.PriceFromBinID(binID, binStep)
	if err != nil {
		return nil, err
	}
	f := GetBigFloat()
	defer PutBigFloat(f)
	f.SetPrec(256).SetFloat64(price)
	f.Mul(f, new(big.Float).SetPrec(256).SetInt(Q128))
	out, _ := f.Int(nil)
	if out.Sign() <= 0 {
		return nil, fmt.Errorf("%w: non-positive bin price", ErrInvalidPool)
	}
	return out, nil
}

// binSpotPrice returns the output-per-input spot price at the active bin as
// a rational over Q128.
func binSpotPrice(activeID uint32, binStep uint16, zeroForOne bool) (num, denom *big.Int, err error) {
	priceX128, err := binPriceX128(activeID, binStep)
	if err != nil {
		return nil, nil, err
	}
	if zeroForOne {
		return priceX128, Q128, nil
	}
	return Q128, priceX128, nil
}
