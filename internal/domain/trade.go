package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type TradeType uint8

const (
	TradeTypeExactInput TradeType = iota
	TradeTypeExactOutput
)

func (t TradeType) String() string {
	if t == TradeTypeExactOutput {
		return "ExactOut"
	}
	return "ExactIn"
}

// SwapQuote is the result of quoting a single pool.
type SwapQuote struct {
	Pool           *Pool
	AmountIn       *big.Int
	AmountOut      *big.Int
	Fee            *big.Int
	ZeroForOne     bool
	PriceImpactBps uint16
	// PostState is the pool state after the hypothetical trade. The
	// candidate pool itself is never mutated.
	PostState interface{}
}

// HopQuote is one hop of an executed route quote.
type HopQuote struct {
	Pool           *Pool
	AmountIn       *big.Int
	AmountOut      *big.Int
	FeeAmount      *big.Int
	ZeroForOne     bool
	PriceImpactBps uint16
}

// Route is an ordered token path through specific pools.
type Route struct {
	Pools  []*Pool
	Path   []Currency
	Input  Currency
	Output Currency
}

// HopCount returns the number of pools in the route.
func (r *Route) HopCount() int {
	return len(r.Pools)
}

// RouteQuote is a fully evaluated route carrying one share of the trade.
type RouteQuote struct {
	Route          *Route
	Percent        uint8
	AmountIn       *big.Int
	AmountOut      *big.Int
	Hops           []HopQuote
	TotalFee       *big.Int
	PriceImpactBps uint16
}

// Trade is the final quote outcome: one or more route splits plus gas
// accounting. A nil Trade means no route exists; that is a business
// outcome, not an error.
type Trade struct {
	TradeType      TradeType
	Input          CurrencyAmount
	Output         CurrencyAmount
	Splits         []RouteQuote
	TotalFee       *big.Int
	PriceImpactBps uint16

	// Gas accounting. GasAdjusted reports whether the adjusted amounts
	// include gas; when no native price reference exists the trade is
	// returned un-adjusted with GasAdjusted false.
	GasEstimate       uint64
	GasCostInQuote    *big.Int
	GasAdjustedOutput *big.Int // exact-in: output minus gas cost
	GasAdjustedInput  *big.Int // exact-out: input plus gas cost
	GasAdjusted       bool
}

// IsSplit reports whether the trade routes through more than one path.
func (t *Trade) IsSplit() bool {
	return t != nil && len(t.Splits) > 1
}

// RoutePath returns the token path of the dominant split.
func (t *Trade) RoutePath() []common.Address {
	if t == nil || len(t.Splits) == 0 || t.Splits[0].Route == nil {
		return nil
	}
	path := t.Splits[0].Route.Path
	out := make([]common.Address, len(path))
	for i, c := range path {
		out[i] = c.Canonical()
	}
	return out
}

// TokenFees records measured transfer taxes for a token. Values are in
// basis points of the transferred amount.
type TokenFees struct {
	Token      common.Address
	BuyFeeBps  uint16
	SellFeeBps uint16
}

// HasTransferFee reports whether the token taxes transfers in either
// direction.
func (f TokenFees) HasTransferFee() bool {
	return f.BuyFeeBps > 0 || f.SellFeeBps > 0
}
