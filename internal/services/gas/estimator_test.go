package gas

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"github.com/hxuan190/quote-engine/internal/domain"
)

type fakeProber struct {
	limit uint64
	price *big.Int
	err   error
	calls int
}

func (f *fakeProber) ProbeGasData(ctx context.Context) (uint64, *big.Int, error) {
	f.calls++
	return f.limit, f.price, f.err
}

type fakePriceSource struct {
	price domain.Price
	ok    bool
}

func (f *fakePriceSource) NativePrice(currency domain.Currency) (domain.Price, bool) {
	return f.price, f.ok
}

func gasToken(b byte) domain.Currency {
	return domain.Currency{ChainID: 1, Address: common.BytesToAddress([]byte{b}), Decimals: 18}
}

func hops(types ...domain.PoolType) []domain.PoolType {
	return types
}

func TestEstimateTradeGasShape(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	// base + per-variant hop costs, splits beyond the first add perSplit
	assert.Equal(t, uint64(DefaultBaseGas+DefaultGasHopV2),
		e.EstimateTradeGas(hops(domain.PoolTypeConstantProduct), 1))
	assert.Equal(t, uint64(DefaultBaseGas+2*DefaultGasHopV3+DefaultGasHopStable),
		e.EstimateTradeGas(hops(domain.PoolTypeConcentrated, domain.PoolTypeConcentrated, domain.PoolTypeStable), 1))
	assert.Equal(t, uint64(DefaultBaseGas+DefaultGasHopV2+DefaultGasHopBin+DefaultGasPerSplit),
		e.EstimateTradeGas(hops(domain.PoolTypeConstantProduct, domain.PoolTypeBin), 2))

	// unknown variants fall back to the flat per-hop rate
	assert.Equal(t, uint64(DefaultBaseGas+DefaultGasPerHop),
		e.EstimateTradeGas(hops(domain.PoolType(200)), 1))

	assert.Equal(t, uint64(0), e.EstimateTradeGas(nil, 1))
}

func TestEstimateTradeGasCappedAtLimit(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	// ten stable hops exceed the static ceiling minus the buffer
	route := make([]domain.PoolType, 10)
	for i := range route {
		route[i] = domain.PoolTypeStable
	}
	want := uint64(DefaultStaticMax - DefaultGasBuffer)
	assert.Equal(t, want, e.EstimateTradeGas(route, 3))
}

func TestEffectiveGasLimitOverrideWins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OverrideGasLimit = 500000
	e := NewEstimator(cfg)
	e.SetProber(&fakeProber{limit: 1200000})

	limit, err := e.EffectiveGasLimit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(500000-DefaultGasBuffer), limit)
}

func TestEffectiveGasLimitProbeClampedToStaticMax(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	e.SetProber(&fakeProber{limit: 30000000})

	limit, err := e.EffectiveGasLimit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(DefaultStaticMax-DefaultGasBuffer), limit)
}

func TestEffectiveGasLimitProbeFailureFallsBack(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	e.SetProber(&fakeProber{err: errors.New("node down")})

	limit, err := e.EffectiveGasLimit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, uint64(DefaultStaticMax-DefaultGasBuffer), limit)
}

func TestEffectiveGasLimitBufferError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StaticMaxGas = 40000
	cfg.GasBuffer = 50000
	e := NewEstimator(cfg)

	_, err := e.EffectiveGasLimit(context.Background())
	assert.True(t, errors.Is(err, ErrGasConfig))
	assert.Equal(t, uint64(0), e.EstimateTradeGas(hops(domain.PoolTypeConstantProduct), 1))
}

func TestProbeCacheRespectsTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	e := NewEstimator(DefaultConfig())
	prober := &fakeProber{limit: 900000}
	e.SetProber(prober)
	e.SetClock(func() time.Time { return now })

	_, err := e.EffectiveGasLimit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, prober.calls)

	// within the TTL the cached probe is reused
	now = now.Add(time.Second)
	_, err = e.EffectiveGasLimit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, prober.calls)

	now = now.Add(5 * time.Second)
	_, err = e.EffectiveGasLimit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 2, prober.calls)
}

func TestCostInCurrency(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	e.SetProber(&fakeProber{limit: 900000, price: big.NewInt(20)})

	native := gasToken(1)
	usd := gasToken(2)
	// 3 quote units per wei
	e.SetPriceSource(&fakePriceSource{
		price: domain.NewPrice(native, usd, big.NewInt(1), big.NewInt(3)),
		ok:    true,
	})

	cost, ok := e.CostInCurrency(100000, usd)
	assert.True(t, ok)
	// 100000 units * 20 wei/unit * 3 = 6000000
	assert.Equal(t, 0, cost.Cmp(big.NewInt(6000000)))
}

func TestCostInCurrencySkipsWithoutReferences(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	// no price source at all
	_, ok := e.CostInCurrency(100000, gasToken(2))
	assert.False(t, ok)

	// prober present but the price source has no entry for the currency
	e.SetProber(&fakeProber{limit: 900000, price: big.NewInt(20)})
	e.SetPriceSource(&fakePriceSource{ok: false})
	_, ok = e.CostInCurrency(100000, gasToken(2))
	assert.False(t, ok)

	// gas probe failing also skips adjustment
	e.SetProber(&fakeProber{err: errors.New("node down")})
	e.SetPriceSource(&fakePriceSource{ok: true})
	_, ok = e.CostInCurrency(100000, gasToken(2))
	assert.False(t, ok)

	_, ok = e.CostInCurrency(0, gasToken(2))
	assert.False(t, ok)
}
