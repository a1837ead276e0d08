package router

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/quote-engine/internal/domain"
)

func testToken(b byte) domain.Currency {
	return domain.Currency{
		ChainID:  1,
		Address:  common.BytesToAddress([]byte{b}),
		Decimals: 18,
	}
}

func e18(n int64) *big.Int {
	out := big.NewInt(n)
	return out.Mul(out, new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func newCpmmPool(addr byte, token0, token1 domain.Currency, reserve0, reserve1 *big.Int, feeRate uint32) *domain.Pool {
	p := &domain.Pool{
		Address:  common.BytesToAddress([]byte{0xF0, addr}),
		ChainID:  1,
		Type:     domain.PoolTypeConstantProduct,
		Token0:   token0,
		Token1:   token1,
		FeeRate:  feeRate,
		Active:   true,
		Reserve0: reserve0,
		Reserve1: reserve1,
	}
	p.UpdateFlags()
	p.SyncU64Reserves()
	return p
}

func newTestGraph(pools ...*domain.Pool) *Graph {
	g := &Graph{}
	_ = g.Configure(nil)
	if len(pools) > 0 {
		g.AddPoolsBatch(pools)
	}
	return g
}
