package router

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeebo/assert"

	"github.com/hxuan190/quote-engine/internal/domain"
)

func TestGraphAddRemovePool(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()

	assert.Equal(t, 1, g.GetPoolCount())
	assert.Equal(t, 1, g.GetReadyPoolCount())
	assert.NotNil(t, g.GetPool(pool.Address))

	direct := g.GetDirectRoutesForPair(tokenA.Address, tokenB.Address)
	assert.Equal(t, 1, len(direct))
	// edges are bidirectional
	direct = g.GetDirectRoutesForPair(tokenB.Address, tokenA.Address)
	assert.Equal(t, 1, len(direct))

	g.RemovePool(pool.Address)
	g.RefreshSnapshot()
	assert.Equal(t, 0, g.GetPoolCount())
	assert.Nil(t, g.GetPool(pool.Address))
	assert.Nil(t, g.GetDirectRoutesForPair(tokenA.Address, tokenB.Address))
}

func TestGraphInactivePoolNotRoutable(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)
	pool.SetActive(false)

	g := newTestGraph(pool)
	defer g.Stop()

	// still tracked, but excluded from routing edges
	assert.Equal(t, 1, g.GetPoolCount())
	assert.Equal(t, 0, g.GetReadyPoolCount())
	assert.Nil(t, g.GetDirectRoutesForPair(tokenA.Address, tokenB.Address))
}

func TestGraphSortsPoolsByLiquidity(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	shallow := newCpmmPool(1, tokenA, tokenB, e18(10), e18(10), 2500)
	deep := newCpmmPool(2, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(shallow, deep)
	defer g.Stop()

	direct := g.GetDirectRoutesForPair(tokenA.Address, tokenB.Address)
	assert.Equal(t, 2, len(direct))
	assert.Equal(t, deep.Address, direct[0].Address)
}

func TestGraphCapsPoolsPerPair(t *testing.T) {
	tokenA, tokenB := testToken(1), testToken(2)
	pools := make([]*domain.Pool, 0, MaxPoolsPerPair+3)
	for i := 0; i < MaxPoolsPerPair+3; i++ {
		pools = append(pools, newCpmmPool(byte(10+i), tokenA, tokenB, e18(int64(100+i)), e18(100), 2500))
	}

	g := newTestGraph(pools...)
	defer g.Stop()

	direct := g.GetDirectRoutesForPair(tokenA.Address, tokenB.Address)
	assert.Equal(t, MaxPoolsPerPair, len(direct))
}

func TestGraphGetPoolByAddress(t *testing.T) {
	pool := newCpmmPool(1, testToken(1), testToken(2), e18(1), e18(1), 2500)
	g := newTestGraph(pool)
	defer g.Stop()

	assert.NotNil(t, g.GetPoolByAddress(pool.Address.Hex()))
	assert.Nil(t, g.GetPoolByAddress("not-an-address"))
	assert.Nil(t, g.GetPoolByAddress(common.BytesToAddress([]byte{0xAA}).Hex()))
}

type fakeFeeSource struct {
	fees map[common.Address]domain.TokenFees
}

func (f *fakeFeeSource) GetTokenFees(token common.Address) (domain.TokenFees, bool) {
	fees, ok := f.fees[token]
	return fees, ok
}

func TestTransferFeeFilterDropsConcentratedPools(t *testing.T) {
	taxed := testToken(1)
	clean := testToken(2)
	source := &fakeFeeSource{fees: map[common.Address]domain.TokenFees{
		taxed.Address: {Token: taxed.Address, BuyFeeBps: 100, SellFeeBps: 100},
	}}
	filter := NewTransferFeeFilter(source)

	concentrated := newConcentratedPool(3, 600, e18(1000), 3000)
	assert.False(t, filter.Allow(concentrated))

	// reserve-settled variants stay routable even with a taxed token
	cpmm := newCpmmPool(1, taxed, clean, e18(1000), e18(1000), 2500)
	assert.True(t, filter.Allow(cpmm))

	// no fee entry means fee-free
	untaxedClmm := newConcentratedPool(4, 600, e18(1000), 3000)
	untaxedClmm.Token0 = testToken(7)
	untaxedClmm.Token1 = testToken(8)
	assert.True(t, filter.Allow(untaxedClmm))
}

func TestGraphPoolFilterShapesSnapshot(t *testing.T) {
	taxed := testToken(1)
	clean := testToken(2)
	clmm := newConcentratedPool(3, 600, e18(1000), 3000)

	g := newTestGraph(clmm)
	defer g.Stop()
	assert.Equal(t, 1, g.GetReadyPoolCount())

	source := &fakeFeeSource{fees: map[common.Address]domain.TokenFees{
		taxed.Address: {Token: taxed.Address, SellFeeBps: 200},
	}}
	g.SetPoolFilter(NewTransferFeeFilter(source))

	assert.Equal(t, 0, g.GetReadyPoolCount())
	assert.Nil(t, g.GetDirectRoutesForPair(taxed.Address, clean.Address))
	// the pool itself is still tracked
	assert.NotNil(t, g.GetPool(clmm.Address))
}

func TestFindPathsDirectAndMultiHop(t *testing.T) {
	tokenA, tokenB, tokenC := testToken(1), testToken(2), testToken(3)
	direct := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)
	legAC := newCpmmPool(2, tokenA, tokenC, e18(1000), e18(1000), 2500)
	legCB := newCpmmPool(3, tokenB, tokenC, e18(1000), e18(1000), 2500)

	g := newTestGraph(direct, legAC, legCB)
	defer g.Stop()

	paths := g.FindPaths(tokenA.Address, tokenB.Address, 3)
	assert.Equal(t, 2, len(paths))

	// shortest first
	assert.Equal(t, 2, len(paths[0]))
	assert.Equal(t, tokenA.Address, paths[0][0])
	assert.Equal(t, tokenB.Address, paths[0][1])

	assert.Equal(t, 3, len(paths[1]))
	assert.Equal(t, tokenC.Address, paths[1][1])
}

func TestFindPathsHopLimit(t *testing.T) {
	tokenA, tokenB, tokenC := testToken(1), testToken(2), testToken(3)
	legAC := newCpmmPool(2, tokenA, tokenC, e18(1000), e18(1000), 2500)
	legCB := newCpmmPool(3, tokenB, tokenC, e18(1000), e18(1000), 2500)

	g := newTestGraph(legAC, legCB)
	defer g.Stop()

	assert.Equal(t, 0, len(g.FindPaths(tokenA.Address, tokenB.Address, 1)))
	assert.Equal(t, 1, len(g.FindPaths(tokenA.Address, tokenB.Address, 2)))
}

func TestFindPathsDisconnected(t *testing.T) {
	tokenA, tokenB, tokenD := testToken(1), testToken(2), testToken(9)
	pool := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)

	g := newTestGraph(pool)
	defer g.Stop()

	assert.Nil(t, g.FindPaths(tokenA.Address, tokenD.Address, 3))
	assert.Nil(t, g.FindPaths(tokenD.Address, tokenA.Address, 3))
	assert.Nil(t, g.FindPaths(tokenA.Address, tokenA.Address, 3))
}

func TestFindPathsBaseTokenRestriction(t *testing.T) {
	tokenA, tokenB, tokenC, tokenD := testToken(1), testToken(2), testToken(3), testToken(4)
	legAC := newCpmmPool(1, tokenA, tokenC, e18(1000), e18(1000), 2500)
	legCB := newCpmmPool(2, tokenB, tokenC, e18(1000), e18(1000), 2500)
	legAD := newCpmmPool(3, tokenA, tokenD, e18(1000), e18(1000), 2500)
	legDB := newCpmmPool(4, tokenB, tokenD, e18(1000), e18(1000), 2500)

	g := newTestGraph(legAC, legCB, legAD, legDB)
	defer g.Stop()

	paths := g.FindPaths(tokenA.Address, tokenB.Address, 2)
	assert.Equal(t, 2, len(paths))

	// with a base set only whitelisted intermediates survive
	g.SetBaseTokens([]common.Address{tokenC.Address})
	paths = g.FindPaths(tokenA.Address, tokenB.Address, 2)
	assert.Equal(t, 1, len(paths))
	assert.Equal(t, tokenC.Address, paths[0][1])

	// clearing the set restores the unrestricted search
	g.SetBaseTokens(nil)
	paths = g.FindPaths(tokenA.Address, tokenB.Address, 2)
	assert.Equal(t, 2, len(paths))
}

func TestTokenDegrees(t *testing.T) {
	tokenA, tokenB, tokenC := testToken(1), testToken(2), testToken(3)
	poolAB := newCpmmPool(1, tokenA, tokenB, e18(1000), e18(1000), 2500)
	poolAC := newCpmmPool(2, tokenA, tokenC, e18(1000), e18(1000), 2500)

	g := newTestGraph(poolAB, poolAC)
	defer g.Stop()

	degrees := g.TokenDegrees()
	assert.Equal(t, 2, degrees[tokenA.Address])
	assert.Equal(t, 1, degrees[tokenB.Address])
	assert.Equal(t, 1, degrees[tokenC.Address])
}
