package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/services/router"
)

func marketToken(b byte) domain.Currency {
	return domain.Currency{ChainID: 1, Address: common.BytesToAddress([]byte{b}), Decimals: 18}
}

func marketPool(addr byte, token0, token1 domain.Currency) *domain.Pool {
	reserve := new(big.Int).Exp(big.NewInt(10), big.NewInt(21), nil)
	p := &domain.Pool{
		Address:  common.BytesToAddress([]byte{0xE0, addr}),
		ChainID:  1,
		Type:     domain.PoolTypeConstantProduct,
		Token0:   token0,
		Token1:   token1,
		FeeRate:  2500,
		Active:   true,
		Reserve0: new(big.Int).Set(reserve),
		Reserve1: new(big.Int).Set(reserve),
	}
	p.UpdateFlags()
	p.SyncU64Reserves()
	return p
}

func testMarket(t *testing.T, pools ...*domain.Pool) (*Service, *router.Graph) {
	t.Helper()
	g := &router.Graph{}
	assert.NoError(t, g.Configure(nil))
	t.Cleanup(func() { g.Stop() })
	if len(pools) > 0 {
		g.AddPoolsBatch(pools)
	}

	s := NewService(nil)
	s.graph = g
	return s, g
}

func TestRefreshBaseTokensThinGraphUnrestricted(t *testing.T) {
	tokenA, tokenB, tokenC := marketToken(1), marketToken(2), marketToken(3)
	s, g := testMarket(t,
		marketPool(1, tokenA, tokenC),
		marketPool(2, tokenC, tokenB),
	)

	// too few well-connected tokens, so the whitelist stays off
	s.refreshBaseTokens()
	paths := g.FindPaths(tokenA.Address, tokenB.Address, 2)
	assert.Equal(t, 1, len(paths))
}

func TestRefreshBaseTokensRestrictsIntermediates(t *testing.T) {
	tokenA, tokenB, tokenC, tokenD, tokenE :=
		marketToken(1), marketToken(2), marketToken(3), marketToken(4), marketToken(5)

	// A, B, C, D form a dense core; E only bridges A and B
	s, g := testMarket(t,
		marketPool(1, tokenA, tokenB),
		marketPool(2, tokenA, tokenC),
		marketPool(3, tokenA, tokenD),
		marketPool(4, tokenB, tokenC),
		marketPool(5, tokenB, tokenD),
		marketPool(6, tokenC, tokenD),
		marketPool(7, tokenA, tokenE),
		marketPool(8, tokenE, tokenB),
	)

	paths := g.FindPaths(tokenA.Address, tokenB.Address, 2)
	assert.Equal(t, 4, len(paths))

	// after refresh the thinly connected E is no longer an intermediate
	s.refreshBaseTokens()
	paths = g.FindPaths(tokenA.Address, tokenB.Address, 2)
	assert.Equal(t, 3, len(paths))
	for _, path := range paths {
		if len(path) == 3 {
			assert.True(t, path[1] != tokenE.Address)
		}
	}
}

func TestSetBaseTokensManualOverride(t *testing.T) {
	tokenA, tokenB, tokenC, tokenD := marketToken(1), marketToken(2), marketToken(3), marketToken(4)
	s, g := testMarket(t,
		marketPool(1, tokenA, tokenC),
		marketPool(2, tokenC, tokenB),
		marketPool(3, tokenA, tokenD),
		marketPool(4, tokenD, tokenB),
	)

	s.SetBaseTokens([]domain.Currency{tokenC})
	paths := g.FindPaths(tokenA.Address, tokenB.Address, 2)
	assert.Equal(t, 1, len(paths))
	assert.Equal(t, tokenC.Address, paths[0][1])

	// the derived refresh must not clobber a manual list
	s.refreshBaseTokens()
	paths = g.FindPaths(tokenA.Address, tokenB.Address, 2)
	assert.Equal(t, 1, len(paths))
}
