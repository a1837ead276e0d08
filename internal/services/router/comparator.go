package router

import (
	"github.com/hxuan190/quote-engine/internal/domain"
)

// GetBetterTrade picks the better of two candidate trades of the same trade
// type. For exact input the larger gas-adjusted output wins; for exact
// output the smaller gas-adjusted input wins. On an exact tie the
// first-seen trade is kept. A nil candidate loses to any non-nil one.
func GetBetterTrade(current, candidate *domain.Trade) *domain.Trade {
	if current == nil {
		return candidate
	}
	if candidate == nil {
		return current
	}

	if current.TradeType == domain.TradeTypeExactInput {
		a := current.GasAdjustedOutput
		b := candidate.GasAdjustedOutput
		if a == nil {
			a = current.Output.Amount
		}
		if b == nil {
			b = candidate.Output.Amount
		}
		if b.Cmp(a) > 0 {
			return candidate
		}
		return current
	}

	a := current.GasAdjustedInput
	b := candidate.GasAdjustedInput
	if a == nil {
		a = current.Input.Amount
	}
	if b == nil {
		b = candidate.Input.Amount
	}
	if b.Cmp(a) < 0 {
		return candidate
	}
	return current
}
