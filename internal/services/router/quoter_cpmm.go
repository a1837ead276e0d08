package router

import (
	"fmt"
	"math/big"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// cpmmPostState is the reserve state after a hypothetical constant-product
// swap.
type cpmmPostState struct {
	Reserve0 *big.Int
	Reserve1 *big.Int
}

// quoteConstantProduct prices a swap against x*y=k reserves with the fee
// taken from the input amount.
func (q *Quoter) quoteConstantProduct(pool *domain.Pool, amount *big.Int, zeroForOne bool, exactIn bool) (*domain.SwapQuote, error) {
	if pool.Reserve0 == nil || pool.Reserve1 == nil || pool.Reserve0.Sign() <= 0 || pool.Reserve1.Sign() <= 0 {
		return nil, fmt.Errorf("%w: empty reserves", ErrInsufficientLiquidity)
	}

	reserveIn, reserveOut := pool.Reserve0, pool.Reserve1
	if !zeroForOne {
		reserveIn, reserveOut = pool.Reserve1, pool.Reserve0
	}

	feeRate := big.NewInt(int64(pool.FeeRate))
	feeComplement := new(big.Int).Sub(FEE_BASE, feeRate)

	var amountIn, amountOut *big.Int
	if exactIn {
		amountIn = amount
		if out, fast := cpmmOutGivenInU64(SafeUint64(amountIn), SafeUint64(reserveIn), SafeUint64(reserveOut), pool.FeeRate); fast {
			amountOut = new(big.Int).SetUint64(out)
		} else {
			// amountInWithFee = amountIn * (FEE_BASE - fee)
			amountInWithFee := new(big.Int).Mul(amountIn, feeComplement)
			num := new(big.Int).Mul(amountInWithFee, reserveOut)
			denom := new(big.Int).Mul(reserveIn, FEE_BASE)
			denom.Add(denom, amountInWithFee)
			amountOut = num.Div(num, denom)
		}
		if amountOut.Sign() <= 0 {
			return nil, ErrInsufficientLiquidity
		}
	} else {
		amountOut = amount
		if amountOut.Cmp(reserveOut) >= 0 {
			return nil, fmt.Errorf("%w: output exceeds reserves", ErrInsufficientLiquidity)
		}
		// amountIn = reserveIn * amountOut * FEE_BASE / ((reserveOut - amountOut) * (FEE_BASE - fee)) + 1
		num := new(big.Int).Mul(reserveIn, amountOut)
		num.Mul(num, FEE_BASE)
		denom := new(big.Int).Sub(reserveOut, amountOut)
		denom.Mul(denom, feeComplement)
		amountIn = num.Div(num, denom)
		amountIn.Add(amountIn, ONE)
	}

	fee := new(big.Int)
	if u := SafeUint64(amountIn); u > 0 {
		fee.SetUint64(MulDiv(u, uint64(pool.FeeRate), FEE_BASE.Uint64()))
	} else {
		fee.Mul(amountIn, feeRate)
		fee.Div(fee, FEE_BASE)
	}

	newReserveIn := new(big.Int).Add(reserveIn, amountIn)
	newReserveOut := new(big.Int).Sub(reserveOut, amountOut)

	post := &cpmmPostState{}
	if zeroForOne {
		post.Reserve0, post.Reserve1 = newReserveIn, newReserveOut
	} else {
		post.Reserve0, post.Reserve1 = newReserveOut, newReserveIn
	}

	// spot output-per-input price is reserveOut/reserveIn
	impact := calculatePriceImpact(amountIn, amountOut, reserveOut, reserveIn, pool.FeeRate)

	return &domain.SwapQuote{
		Pool:           pool,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		Fee:            fee,
		ZeroForOne:     zeroForOne,
		PriceImpactBps: impact,
		PostState:      post,
	}, nil
}

// cpmmOutGivenInU64 runs the exact-in constant-product formula on pooled
// uint256 words when the operands fit in 64 bits. The intermediate products
// exceed 64 bits, so the math stays in uint256; the result matches the
// big.Int path exactly. ok is false when the inputs need the big.Int path.
func cpmmOutGivenInU64(amountIn, reserveIn, reserveOut uint64, feeRate uint32) (amountOut uint64, ok bool) {
	feeBase := u256FeeBase.Uint64()
	if amountIn == 0 || reserveIn == 0 || reserveOut == 0 || uint64(feeRate) >= feeBase {
		return 0, false
	}

	inWithFee := GetU256()
	num := GetU256()
	denom := GetU256()
	tmp := GetU256()
	defer func() {
		PutU256(inWithFee)
		PutU256(num)
		PutU256(denom)
		PutU256(tmp)
	}()

	inWithFee.SetUint64(amountIn)
	inWithFee.Mul(inWithFee, tmp.SetUint64(feeBase-uint64(feeRate)))

	num.Set(inWithFee)
	num.Mul(num, tmp.SetUint64(reserveOut))

	denom.SetUint64(reserveIn)
	denom.Mul(denom, u256FeeBase)
	denom.Add(denom, inWithFee)

	num.Div(num, denom)
	if !num.IsUint64() {
		return 0, false
	}
	return num.Uint64(), true
}
