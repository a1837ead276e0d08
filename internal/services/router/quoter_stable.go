package router

import (
	"fmt"
	"math/big"

	"github.com/hxuan190/quote-engine/internal/domain"
)

const stableMaxIterations = 255

// aPrecision matches the on-chain amplification coefficient scaling.
var aPrecision = big.NewInt(100)

// stablePostState holds the pool balances after a hypothetical stable swap.
type stablePostState struct {
	Balances []*big.Int
}

// quoteStable prices a swap against a StableSwap pool. The D invariant and
// the per-coin solve both use Newton iteration bounded at 255 rounds.
func (q *Quoter) quoteStable(pool *domain.Pool, amount *big.Int, zeroForOne bool, exactIn bool) (*domain.SwapQuote, error) {
	data, ok := pool.TypeSpecific.(*domain.StableData)
	if !ok || data == nil || len(data.Balances) < 2 {
		return nil, fmt.Errorf("%w: missing stable state", ErrInvalidPool)
	}

	iIn, iOut := data.Index0, data.Index1
	if !zeroForOne {
		iIn, iOut = data.Index1, data.Index0
	}
	if iIn < 0 || iIn >= len(data.Balances) || iOut < 0 || iOut >= len(data.Balances) || iIn == iOut {
		return nil, fmt.Errorf("%w: bad stable coin indexes", ErrInvalidPool)
	}
	for _, b := range data.Balances {
		if b == nil || b.Sign() <= 0 {
			return nil, fmt.Errorf("%w: empty stable balance", ErrInsufficientLiquidity)
		}
	}

	amp := new(big.Int).SetUint64(data.Amplifier)
	feeRate := big.NewInt(int64(pool.FeeRate))
	feeComplement := new(big.Int).Sub(FEE_BASE, feeRate)

	var amountIn, amountOut, fee *big.Int
	newBalances := make([]*big.Int, len(data.Balances))
	for i, b := range data.Balances {
		newBalances[i] = new(big.Int).Set(b)
	}

	if exactIn {
		amountIn = amount
		// fee comes off the input before it enters the invariant
		netIn := mulDivBig(amountIn, feeComplement, FEE_BASE)
		fee = new(big.Int).Sub(amountIn, netIn)

		x := new(big.Int).Add(data.Balances[iIn], netIn)
		y, err := getY(amp, data.Balances, iIn, iOut, x)
		if err != nil {
			return nil, err
		}
		amountOut = new(big.Int).Sub(data.Balances[iOut], y)
		// keep one wei in favor of the pool for rounding
		if amountOut.Sign() > 0 {
			amountOut.Sub(amountOut, ONE)
		}
		if amountOut.Sign() <= 0 {
			return nil, ErrInsufficientLiquidity
		}
	} else {
		amountOut = amount
		if amountOut.Cmp(data.Balances[iOut]) >= 0 {
			return nil, fmt.Errorf("%w: output exceeds balance", ErrInsufficientLiquidity)
		}
		y := new(big.Int).Sub(data.Balances[iOut], amountOut)
		x, err := getY(amp, data.Balances, iOut, iIn, y)
		if err != nil {
			return nil, err
		}
		netIn := new(big.Int).Sub(x, data.Balances[iIn])
		netIn.Add(netIn, ONE)
		if netIn.Sign() <= 0 {
			return nil, ErrInsufficientLiquidity
		}
		// gross the input up so the fee comes off it
		amountIn = mulDivRoundingUp(netIn, FEE_BASE, feeComplement)
		fee = new(big.Int).Sub(amountIn, netIn)
	}

	netIn := new(big.Int).Sub(amountIn, fee)
	newBalances[iIn].Add(newBalances[iIn], netIn)
	newBalances[iOut].Sub(newBalances[iOut], amountOut)

	// spot price of a balanced stable pool is 1:1
	impact := calculatePriceImpact(amountIn, amountOut, ONE, ONE, pool.FeeRate)

	return &domain.SwapQuote{
		Pool:           pool,
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		Fee:            fee,
		ZeroForOne:     zeroForOne,
		PriceImpactBps: impact,
		PostState:      &stablePostState{Balances: newBalances},
	}, nil
}

// getD solves the StableSwap invariant for the given balances by Newton
// iteration. Converges when successive estimates differ by at most one.
func getD(amp *big.Int, balances []*big.Int) (*big.Int, error) {
	n := int64(len(balances))
	nBig := big.NewInt(n)

	s := new(big.Int)
	for _, b := range balances {
		s.Add(s, b)
	}
	if s.Sign() == 0 {
		return new(big.Int), nil
	}

	// ann = amp * n, with amp carrying aPrecision
	ann := new(big.Int).Mul(amp, nBig)

	d := new(big.Int).Set(s)
	for i := 0; i < stableMaxIterations; i++ {
		// dP = d^(n+1) / (n^n * prod(balances))
		dP := new(big.Int).Set(d)
		for _, b := range balances {
			denom := new(big.Int).Mul(b, nBig)
			dP = mulDivBig(dP, d, denom)
		}

		dPrev := new(big.Int).Set(d)

		// d = (ann*s/A_PRECISION + dP*n) * d / ((ann-A_PRECISION)*d/A_PRECISION + (n+1)*dP)
		num := new(big.Int).Mul(ann, s)
		num.Div(num, aPrecision)
		num.Add(num, new(big.Int).Mul(dP, nBig))
		num.Mul(num, d)

		denom := new(big.Int).Sub(ann, aPrecision)
		denom.Mul(denom, d)
		denom.Div(denom, aPrecision)
		denom.Add(denom, new(big.Int).Mul(dP, big.NewInt(n+1)))

		d = num.Div(num, denom)

		if withinOne(d, dPrev) {
			return d, nil
		}
	}
	return nil, ErrConvergenceFailure
}

// getY solves for the balance of coin j given a new balance x of coin i,
// holding the invariant D fixed.
func getY(amp *big.Int, balances []*big.Int, i, j int, x *big.Int) (*big.Int, error) {
	d, err := getD(amp, balances)
	if err != nil {
		return nil, err
	}

	n := int64(len(balances))
	nBig := big.NewInt(n)
	ann := new(big.Int).Mul(amp, nBig)

	// c = D^(n+1) / (n^n * prod(x_k, k != j) * ann / A_PRECISION)
	c := new(big.Int).Set(d)
	s := new(big.Int)
	for k := range balances {
		if k == j {
			continue
		}
		var xk *big.Int
		if k == i {
			xk = x
		} else {
			xk = balances[k]
		}
		if xk.Sign() <= 0 {
			return nil, ErrInsufficientLiquidity
		}
		s.Add(s, xk)
		denom := new(big.Int).Mul(xk, nBig)
		c = mulDivBig(c, d, denom)
	}
	c.Mul(c, d)
	c.Mul(c, aPrecision)
	denom := new(big.Int).Mul(ann, nBig)
	c.Div(c, denom)

	// b = s + D*A_PRECISION/ann
	b := new(big.Int).Mul(d, aPrecision)
	b.Div(b, ann)
	b.Add(b, s)

	y := new(big.Int).Set(d)
	for iter := 0; iter < stableMaxIterations; iter++ {
		yPrev := new(big.Int).Set(y)
		// y = (y^2 + c) / (2y + b - D)
		num := new(big.Int).Mul(y, y)
		num.Add(num, c)
		den := new(big.Int).Lsh(y, 1)
		den.Add(den, b)
		den.Sub(den, d)
		if den.Sign() <= 0 {
			return nil, ErrConvergenceFailure
		}
		y = num.Div(num, den)

		if withinOne(y, yPrev) {
			return y, nil
		}
	}
	return nil, ErrConvergenceFailure
}

func withinOne(a, b *big.Int) bool {
	diff := new(big.Int).Sub(a, b)
	diff.Abs(diff)
	return diff.Cmp(ONE) <= 0
}
