package persistence

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"github.com/hxuan190/quote-engine/internal/domain"
)

func testStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(filepath.Join(t.TempDir(), "pools.db"))
	assert.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPoolRoundTripRestoresReadiness(t *testing.T) {
	s := testStorage(t)

	sqrtPrice := new(big.Int).Lsh(big.NewInt(1), 96)
	pool := &domain.Pool{
		Address: common.BytesToAddress([]byte{0xAB}),
		ChainID: 1,
		Type:    domain.PoolTypeConcentrated,
		Token0:  domain.Currency{ChainID: 1, Address: common.BytesToAddress([]byte{1}), Decimals: 18, Symbol: "WETH"},
		Token1:  domain.Currency{ChainID: 1, Address: common.BytesToAddress([]byte{2}), Decimals: 6, Symbol: "USDC"},
		FeeRate: 3000,
		Active:  true,
		TypeSpecific: &domain.ConcentratedData{
			TickSpacing:  60,
			CurrentTick:  12,
			SqrtPriceX96: sqrtPrice,
			Liquidity:    big.NewInt(1000000),
			Ticks: []domain.Tick{
				{Index: -600, LiquidityNet: big.NewInt(1000000)},
				{Index: 600, LiquidityNet: big.NewInt(-1000000)},
			},
		},
	}
	pool.UpdateFlags()

	assert.NoError(t, s.SavePoolBatch([]*domain.Pool{pool}))

	loaded, err := s.LoadAllPools()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(loaded))

	got := loaded[0]
	assert.Equal(t, pool.Address, got.Address)
	assert.Equal(t, domain.PoolTypeConcentrated, got.Type)
	assert.Equal(t, "WETH", got.Token0.Symbol)
	assert.True(t, got.IsReady())

	data := got.TypeSpecific.(*domain.ConcentratedData)
	assert.Equal(t, int32(12), data.CurrentTick)
	assert.Equal(t, 0, data.SqrtPriceX96.Cmp(sqrtPrice))
	assert.Equal(t, 2, len(data.Ticks))
	assert.Equal(t, 0, data.Ticks[1].LiquidityNet.Cmp(big.NewInt(-1000000)))
}

func TestTokenFeesRoundTrip(t *testing.T) {
	s := testStorage(t)

	fees := domain.TokenFees{
		Token:      common.BytesToAddress([]byte{0xCD}),
		BuyFeeBps:  100,
		SellFeeBps: 250,
	}
	assert.NoError(t, s.SaveTokenFees(fees))

	loaded, err := s.LoadAllTokenFees()
	assert.NoError(t, err)
	assert.Equal(t, 1, len(loaded))
	assert.Equal(t, fees, loaded[fees.Token])
}
