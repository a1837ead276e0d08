package router

import (
	"math/big"
	"testing"

	"github.com/zeebo/assert"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/pricemath"
)

// newConcentratedPool builds a pool with a single position spanning
// [-tickRange, tickRange] around tick 0, price 1.0.
func newConcentratedPool(addr byte, tickRange int32, liquidity *big.Int, feeRate uint32) *domain.Pool {
	sqrtPrice, _ := pricemath.GetSqrtRatioAtTick(0)
	p := &domain.Pool{
		Address: testToken(addr).Address,
		ChainID: 1,
		Type:    domain.PoolTypeConcentrated,
		Token0:  testToken(1),
		Token1:  testToken(2),
		FeeRate: feeRate,
		Active:  true,
		TypeSpecific: &domain.ConcentratedData{
			TickSpacing:  60,
			CurrentTick:  0,
			SqrtPriceX96: sqrtPrice,
			Liquidity:    new(big.Int).Set(liquidity),
			Ticks: []domain.Tick{
				{Index: -tickRange, LiquidityNet: new(big.Int).Set(liquidity)},
				{Index: tickRange, LiquidityNet: new(big.Int).Neg(liquidity)},
			},
		},
	}
	p.UpdateFlags()
	return p
}

func TestQuoteConcentratedExactIn(t *testing.T) {
	liquidity := new(big.Int).Mul(e18(1000), big.NewInt(1000))
	pool := newConcentratedPool(3, 600, liquidity, 3000)
	q := NewQuoter()

	amountIn := e18(1)
	quote, err := q.GetQuote(pool, amountIn, true, true)
	assert.NoError(t, err)

	// at price 1.0 with deep liquidity the output trails the input by
	// roughly the fee
	assert.True(t, quote.AmountOut.Cmp(amountIn) < 0)
	min := new(big.Int).Mul(amountIn, big.NewInt(99))
	min.Div(min, HUNDRED)
	assert.True(t, quote.AmountOut.Cmp(min) > 0)

	// price moved down and the pool snapshot is untouched
	post := quote.PostState.(*clmmPostState)
	data := pool.TypeSpecific.(*domain.ConcentratedData)
	assert.True(t, post.SqrtPriceX96.Cmp(data.SqrtPriceX96) < 0)
	startSqrt, _ := pricemath.GetSqrtRatioAtTick(0)
	assert.Equal(t, 0, data.SqrtPriceX96.Cmp(startSqrt))
}

func TestQuoteConcentratedExactOut(t *testing.T) {
	liquidity := new(big.Int).Mul(e18(1000), big.NewInt(1000))
	pool := newConcentratedPool(3, 600, liquidity, 3000)
	q := NewQuoter()

	amountOut := e18(1)
	quote, err := q.GetQuote(pool, amountOut, true, false)
	assert.NoError(t, err)

	assert.Equal(t, 0, quote.AmountOut.Cmp(amountOut))
	assert.True(t, quote.AmountIn.Cmp(amountOut) > 0)
	max := new(big.Int).Mul(amountOut, big.NewInt(101))
	max.Div(max, HUNDRED)
	assert.True(t, quote.AmountIn.Cmp(max) < 0)
}

func TestQuoteConcentratedDirectionUp(t *testing.T) {
	liquidity := new(big.Int).Mul(e18(1000), big.NewInt(1000))
	pool := newConcentratedPool(3, 600, liquidity, 3000)
	q := NewQuoter()

	quote, err := q.GetQuote(pool, e18(1), false, true)
	assert.NoError(t, err)

	post := quote.PostState.(*clmmPostState)
	startSqrt, _ := pricemath.GetSqrtRatioAtTick(0)
	assert.True(t, post.SqrtPriceX96.Cmp(startSqrt) > 0)
}

func TestQuoteConcentratedExhaustsTicks(t *testing.T) {
	// narrow range and thin liquidity: a large trade runs off the end of
	// the initialized ticks
	pool := newConcentratedPool(3, 60, e18(1), 3000)
	q := NewQuoter()

	_, err := q.GetQuote(pool, e18(1000), true, true)
	assert.Error(t, err)
}

func TestQuoteConcentratedMissingState(t *testing.T) {
	pool := newConcentratedPool(3, 600, e18(1), 3000)
	pool.TypeSpecific = nil
	q := NewQuoter()

	_, err := q.GetQuote(pool, e18(1), true, true)
	assert.Error(t, err)
}

func BenchmarkQuoteConcentratedExactIn(b *testing.B) {
	liquidity := new(big.Int).Mul(e18(1000), big.NewInt(1000))
	pool := newConcentratedPool(3, 600, liquidity, 3000)
	q := NewQuoter()
	amountIn := e18(1)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = q.GetQuote(pool, amountIn, true, true)
	}
}
