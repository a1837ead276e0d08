package router

import (
	"context"
	"math/big"
	"testing"

	"github.com/zeebo/assert"

	"github.com/hxuan190/quote-engine/internal/domain"
)

func TestFindBestTradeDirect(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenB, e18(10), domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	assert.Equal(t, 0, trade.Input.Amount.Cmp(e18(10)))
	assert.True(t, trade.Output.Amount.Cmp(e18(9)) > 0)
	assert.Equal(t, 1, len(trade.Splits))
	assert.Equal(t, uint8(100), trade.Splits[0].Percent)
	assert.Equal(t, 1, trade.Splits[0].Route.HopCount())

	// without a gas pricer the adjusted amounts mirror the raw amounts
	assert.False(t, trade.GasAdjusted)
	assert.Equal(t, 0, trade.GasAdjustedOutput.Cmp(trade.Output.Amount))
}

func TestFindBestTradePicksDeepestPool(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	shallow := newCpmmPool(1, tokenA, tokenB, e18(100), e18(100), 2500)
	deep := newCpmmPool(2, tokenA, tokenB, e18(100000), e18(100000), 2500)

	g := newTestGraph(shallow, deep)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenB, e18(10), domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.NotNil(t, trade)
	assert.Equal(t, deep.Address, trade.Splits[0].Hops[0].Pool.Address)
}

func TestFindBestTradeMultiHop(t *testing.T) {
	tokenA, tokenB, tokenC := testToken(1), testToken(2), testToken(3)
	legAC := newCpmmPool(2, tokenA, tokenC, e18(100000), e18(100000), 2500)
	legCB := newCpmmPool(3, tokenB, tokenC, e18(100000), e18(100000), 2500)

	g := newTestGraph(legAC, legCB)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenB, e18(10), domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	route := trade.Splits[0].Route
	assert.Equal(t, 2, route.HopCount())
	assert.Equal(t, 3, len(route.Path))
	assert.Equal(t, tokenC.Address, route.Path[1].Address)

	// two hops of fees: output stays under the single-hop equivalent
	assert.True(t, trade.Output.Amount.Cmp(e18(10)) < 0)
}

func TestFindBestTradeExactOut(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenB, e18(10), domain.TradeTypeExactOutput)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	assert.Equal(t, 0, trade.Output.Amount.Cmp(e18(10)))
	assert.True(t, trade.Input.Amount.Cmp(e18(10)) > 0)
}

func TestFindBestTradeNoRoute(t *testing.T) {
	tokenA, tokenB, tokenD := testToken(1), testToken(2), testToken(9)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenD, e18(10), domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.Nil(t, trade)
}

func TestFindBestTradeSameCurrency(t *testing.T) {
	g := newTestGraph()
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	trade, err := r.FindBestTrade(context.Background(), testToken(1), testToken(1), e18(1), domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.Nil(t, trade)
}

func TestFindBestTradeInvalidAmount(t *testing.T) {
	g := newTestGraph()
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	_, err := r.FindBestTrade(context.Background(), testToken(1), testToken(2), nil, domain.TradeTypeExactInput)
	assert.Error(t, err)
	_, err = r.FindBestTrade(context.Background(), testToken(1), testToken(2), big.NewInt(0), domain.TradeTypeExactInput)
	assert.Error(t, err)
}

func TestFindBestTradeContextCanceled(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.FindBestTrade(ctx, tokenA, tokenB, e18(10), domain.TradeTypeExactInput)
	assert.Equal(t, context.Canceled, err)
}

func TestFindBestTradeSplitsHighImpactTrade(t *testing.T) {
	tokenA, tokenB, tokenC := testToken(1), testToken(2), testToken(3)
	// every route is shallow relative to the trade, so impact clears the
	// split threshold and allocating across routes beats any single one
	direct := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)
	legAC := newCpmmPool(2, tokenA, tokenC, e18(2000), e18(2000), 2500)
	legCB := newCpmmPool(3, tokenB, tokenC, e18(2000), e18(2000), 2500)

	g := newTestGraph(direct, legAC, legCB)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	amount := e18(100)
	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenB, amount, domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	// the split spreads the input across both routes
	assert.True(t, trade.IsSplit())
	totalIn := new(big.Int)
	totalPct := 0
	for _, split := range trade.Splits {
		totalIn.Add(totalIn, split.AmountIn)
		totalPct += int(split.Percent)
	}
	assert.Equal(t, 0, totalIn.Cmp(amount))
	assert.Equal(t, 100, totalPct)

	// and beats sending everything through the direct pool
	soloQuote, err := NewQuoter().GetQuote(direct, amount, true, true)
	assert.NoError(t, err)
	assert.True(t, trade.Output.Amount.Cmp(soloQuote.AmountOut) > 0)
}

func TestFindBestTradeSplitLegsNeverSharePool(t *testing.T) {
	tokenA, tokenB, tokenC, tokenD := testToken(1), testToken(2), testToken(3), testToken(4)
	// both viable paths funnel through the single C-B pool
	legAC := newCpmmPool(1, tokenA, tokenC, e18(2000), e18(2000), 2500)
	legCB := newCpmmPool(2, tokenB, tokenC, e18(2000), e18(2000), 2500)
	legAD := newCpmmPool(3, tokenA, tokenD, e18(2000), e18(2000), 2500)
	legDC := newCpmmPool(4, tokenC, tokenD, e18(2000), e18(2000), 2500)

	g := newTestGraph(legAC, legCB, legAD, legDC)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())

	// large enough to clear the split impact threshold on the best route
	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenB, e18(100), domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	// every pair of candidate routes overlaps on the C-B pool. Splitting
	// across them would quote that pool's liquidity once per leg and
	// overstate the summed output, so the trade must stay a single route.
	assert.False(t, trade.IsSplit())
	assert.Equal(t, 1, len(trade.Splits))
}

type fakeGasPricer struct {
	units uint64
	cost  *big.Int
	ok    bool
}

func (f *fakeGasPricer) EstimateTradeGas(hopTypes []domain.PoolType, splitCount int) uint64 {
	return f.units
}

func (f *fakeGasPricer) CostInCurrency(gasUnits uint64, currency domain.Currency) (*big.Int, bool) {
	if !f.ok {
		return nil, false
	}
	return new(big.Int).Set(f.cost), true
}

func TestFindBestTradeGasAdjustment(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())
	r.SetGasPricer(&fakeGasPricer{units: 210000, cost: e18(1), ok: true})

	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenB, e18(10), domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	assert.True(t, trade.GasAdjusted)
	assert.Equal(t, uint64(210000), trade.GasEstimate)
	want := new(big.Int).Sub(trade.Output.Amount, e18(1))
	assert.Equal(t, 0, trade.GasAdjustedOutput.Cmp(want))
}

func TestFindBestTradeGasUnpriced(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())
	r.SetGasPricer(&fakeGasPricer{units: 210000, ok: false})

	trade, err := r.FindBestTrade(context.Background(), tokenA, tokenB, e18(10), domain.TradeTypeExactInput)
	assert.NoError(t, err)
	assert.NotNil(t, trade)

	// no price reference: the trade comes back un-adjusted, not rejected
	assert.False(t, trade.GasAdjusted)
	assert.Equal(t, 0, trade.GasAdjustedOutput.Cmp(trade.Output.Amount))
}

func BenchmarkFindBestTradeDirect(b *testing.B) {
	tokenA, tokenB := testToken(1), testToken(2)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()
	r := NewRouter(g, NewQuoter())
	ctx := context.Background()
	amount := e18(10)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = r.FindBestTrade(ctx, tokenA, tokenB, amount, domain.TradeTypeExactInput)
	}
}
