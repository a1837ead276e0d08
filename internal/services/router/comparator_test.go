package router

import (
	"math/big"
	"testing"

	"github.com/zeebo/assert"

	"github.com/hxuan190/quote-engine/internal/domain"
)

func exactInTrade(out, gasAdjustedOut *big.Int) *domain.Trade {
	return &domain.Trade{
		TradeType:         domain.TradeTypeExactInput,
		Output:            domain.NewCurrencyAmount(testToken(2), out),
		GasAdjustedOutput: gasAdjustedOut,
	}
}

func exactOutTrade(in, gasAdjustedIn *big.Int) *domain.Trade {
	return &domain.Trade{
		TradeType:        domain.TradeTypeExactOutput,
		Input:            domain.NewCurrencyAmount(testToken(1), in),
		GasAdjustedInput: gasAdjustedIn,
	}
}

func TestGetBetterTradeNilHandling(t *testing.T) {
	trade := exactInTrade(e18(1), nil)
	assert.Nil(t, GetBetterTrade(nil, nil))
	assert.Equal(t, trade, GetBetterTrade(nil, trade))
	assert.Equal(t, trade, GetBetterTrade(trade, nil))
}

func TestGetBetterTradeExactIn(t *testing.T) {
	small := exactInTrade(e18(10), nil)
	large := exactInTrade(e18(11), nil)

	assert.Equal(t, large, GetBetterTrade(small, large))
	assert.Equal(t, large, GetBetterTrade(large, small))
}

func TestGetBetterTradeExactInPrefersGasAdjusted(t *testing.T) {
	// higher raw output loses once gas is folded in
	rawWinner := exactInTrade(e18(11), e18(9))
	netWinner := exactInTrade(e18(10), e18(10))

	assert.Equal(t, netWinner, GetBetterTrade(rawWinner, netWinner))
}

func TestGetBetterTradeExactOut(t *testing.T) {
	cheap := exactOutTrade(e18(10), nil)
	dear := exactOutTrade(e18(11), nil)

	assert.Equal(t, cheap, GetBetterTrade(dear, cheap))
	assert.Equal(t, cheap, GetBetterTrade(cheap, dear))
}

func TestGetBetterTradeTieKeepsFirst(t *testing.T) {
	first := exactInTrade(e18(10), nil)
	second := exactInTrade(e18(10), nil)

	// the tied trades compare equal by value, so check which pointer
	// actually came back
	got := GetBetterTrade(first, second)
	assert.True(t, got == first)

	got = GetBetterTrade(second, first)
	assert.True(t, got == second)
}
