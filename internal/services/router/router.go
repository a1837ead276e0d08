package router

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

// MaxSplits is the maximum number of routes to split a trade across
const MaxSplits = 3

// SplitPercentStep is the granularity of split allocations
const SplitPercentStep = 25

// DefaultMaxHops bounds path length for multi-hop search
const DefaultMaxHops = 3

// DefaultSplitImpactThresholdBps gates split search: splitting is only
// attempted when the best single route moves the price more than this.
const DefaultSplitImpactThresholdBps = 100

// GasPricer estimates execution gas for a candidate trade shape and prices
// it in an arbitrary currency. CostInCurrency returns false when no price
// reference exists for the currency.
type GasPricer interface {
	EstimateTradeGas(hopTypes []domain.PoolType, splitCount int) uint64
	CostInCurrency(gasUnits uint64, currency domain.Currency) (*big.Int, bool)
}

type Router struct {
	Graph  *Graph
	Quoter *Quoter
	Gas    GasPricer

	MaxHops                 int
	SplitImpactThresholdBps uint16
}

func NewRouter(graph *Graph, quoter *Quoter) *Router {
	return &Router{
		Graph:                   graph,
		Quoter:                  quoter,
		MaxHops:                 DefaultMaxHops,
		SplitImpactThresholdBps: DefaultSplitImpactThresholdBps,
	}
}

// SetGasPricer installs gas-aware trade comparison. Without one, trades are
// compared on raw amounts and returned with GasAdjusted false.
func (r *Router) SetGasPricer(g GasPricer) {
	r.Gas = g
}

// FindBestTrade searches every viable route between two currencies and
// returns the best trade for the requested type. A nil trade with a nil
// error means no route exists. Context cancellation is returned as the
// context's error.
func (r *Router) FindBestTrade(ctx context.Context, input, output domain.Currency, amount *big.Int, tradeType domain.TradeType) (*domain.Trade, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if input.Equal(output) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	exactIn := tradeType == domain.TradeTypeExactInput
	inAddr, outAddr := input.Canonical(), output.Canonical()

	paths := r.Graph.FindPaths(inAddr, outAddr, r.MaxHops)
	if len(paths) == 0 {
		metrics.NoRouteTotal.Inc()
		return nil, nil
	}

	quotes := make([]*domain.RouteQuote, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rq, err := r.evaluatePath(path, input, output, amount, exactIn)
		if err != nil {
			continue
		}
		quotes = append(quotes, rq)
	}
	if len(quotes) == 0 {
		metrics.NoRouteTotal.Inc()
		return nil, nil
	}

	sortRouteQuotes(quotes, exactIn)

	best := r.assembleTrade([]*domain.RouteQuote{quotes[0]}, input, output, tradeType)
	r.applyGas(best)

	// Splitting only pays off when the single best route moves the price
	if quotes[0].PriceImpactBps > r.SplitImpactThresholdBps && len(quotes) > 1 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if split := r.findBestSplit(ctx, quotes, input, output, amount, tradeType); split != nil {
			metrics.SplitTradesEvaluated.Inc()
			best = GetBetterTrade(best, split)
		}
	}

	return best, nil
}

// evaluatePath quotes every hop of a token path, picking the best pool for
// each hop greedily. Exact input walks forward; exact output walks backward
// so each hop learns how much it must produce.
func (r *Router) evaluatePath(path []common.Address, input, output domain.Currency, amount *big.Int, exactIn bool) (*domain.RouteQuote, error) {
	hopCount := len(path) - 1
	if hopCount < 1 {
		return nil, ErrNoRoute
	}

	hops := make([]domain.HopQuote, hopCount)
	pools := make([]*domain.Pool, hopCount)
	totalFee := new(big.Int)

	if exactIn {
		hopAmount := amount
		for i := 0; i < hopCount; i++ {
			quote, pool, err := r.bestHopQuote(path[i], path[i+1], hopAmount, true)
			if err != nil {
				return nil, err
			}
			pools[i] = pool
			hops[i] = hopQuoteFrom(quote)
			totalFee.Add(totalFee, quote.Fee)
			hopAmount = quote.AmountOut
		}
	} else {
		hopAmount := amount
		for i := hopCount - 1; i >= 0; i-- {
			quote, pool, err := r.bestHopQuote(path[i], path[i+1], hopAmount, false)
			if err != nil {
				return nil, err
			}
			pools[i] = pool
			hops[i] = hopQuoteFrom(quote)
			totalFee.Add(totalFee, quote.Fee)
			hopAmount = quote.AmountIn
		}
	}

	route := &domain.Route{
		Pools:  pools,
		Path:   currenciesForPath(pools, path, input, output),
		Input:  input,
		Output: output,
	}

	return &domain.RouteQuote{
		Route:          route,
		Percent:        100,
		AmountIn:       hops[0].AmountIn,
		AmountOut:      hops[hopCount-1].AmountOut,
		Hops:           hops,
		TotalFee:       totalFee,
		PriceImpactBps: combineHopImpacts(hops),
	}, nil
}

// bestHopQuote quotes all pools connecting one hop and keeps the winner.
func (r *Router) bestHopQuote(from, to common.Address, amount *big.Int, exactIn bool) (*domain.SwapQuote, *domain.Pool, error) {
	pools := r.Graph.GetDirectRoutesForPair(from, to)
	if len(pools) == 0 {
		return nil, nil, ErrNoPoolFound
	}

	var best *domain.SwapQuote
	var bestPool *domain.Pool

	for _, pool := range pools {
		zeroForOne := pool.Token0.Canonical() == from

		quote, err := r.Quoter.GetQuote(pool, amount, zeroForOne, exactIn)
		if err != nil {
			continue
		}

		if best == nil ||
			(exactIn && quote.AmountOut.Cmp(best.AmountOut) > 0) ||
			(!exactIn && quote.AmountIn.Cmp(best.AmountIn) < 0) {
			best = quote
			bestPool = pool
			if quote.PriceImpactBps == 0 {
				break
			}
		}
	}

	if best == nil {
		return nil, nil, ErrNoPoolFound
	}
	return best, bestPool, nil
}

// findBestSplit allocates the trade across up to MaxSplits distinct routes
// in fixed percent steps and keeps the best total. The last allocation takes
// the integer remainder so the shares always sum to the full amount. Legs of
// one allocation never share a pool: every leg is quoted against the same
// pre-trade snapshot, so overlapping legs would draw the same liquidity
// twice and overstate the summed output.
func (r *Router) findBestSplit(ctx context.Context, quotes []*domain.RouteQuote, input, output domain.Currency, amount *big.Int, tradeType domain.TradeType) *domain.Trade {
	exactIn := tradeType == domain.TradeTypeExactInput

	candidates := disjointCandidates(quotes, MaxSplits)
	if len(candidates) < 2 {
		return nil
	}

	var best *domain.Trade
	for _, allocation := range splitAllocations(len(candidates)) {
		if ctx.Err() != nil {
			return best
		}

		splits := make([]*domain.RouteQuote, 0, len(allocation))
		usedPools := make(map[common.Address]struct{}, 4)
		remaining := new(big.Int).Set(amount)
		failed := false

		for i, pct := range allocation {
			var share *big.Int
			if i == len(allocation)-1 {
				share = remaining
			} else {
				share = new(big.Int).Mul(amount, big.NewInt(int64(pct)))
				share.Div(share, HUNDRED)
				remaining = new(big.Int).Sub(remaining, share)
			}
			if share.Sign() <= 0 {
				failed = true
				break
			}

			rq, err := r.evaluatePathForShare(candidates[i], input, output, share, exactIn)
			if err != nil {
				failed = true
				break
			}
			if !claimRoutePools(usedPools, rq) {
				failed = true
				break
			}
			rq.Percent = pct
			splits = append(splits, rq)
		}
		if failed || len(splits) < 2 {
			continue
		}

		trade := r.assembleTrade(splits, input, output, tradeType)
		r.applyGas(trade)
		best = GetBetterTrade(best, trade)
	}

	return best
}

// disjointCandidates greedily keeps the best-ranked routes that share no
// pool, so every split leg draws on separate liquidity.
func disjointCandidates(quotes []*domain.RouteQuote, max int) []*domain.RouteQuote {
	used := make(map[common.Address]struct{})
	out := make([]*domain.RouteQuote, 0, max)
	for _, rq := range quotes {
		if len(out) == max {
			break
		}
		if claimRoutePools(used, rq) {
			out = append(out, rq)
		}
	}
	return out
}

// claimRoutePools reserves the quote's pools in the used set. It returns
// false without claiming anything when any hop runs through a pool an
// earlier leg already claimed.
func claimRoutePools(used map[common.Address]struct{}, rq *domain.RouteQuote) bool {
	for i := range rq.Hops {
		if _, ok := used[rq.Hops[i].Pool.Address]; ok {
			return false
		}
	}
	for i := range rq.Hops {
		used[rq.Hops[i].Pool.Address] = struct{}{}
	}
	return true
}

// evaluatePathForShare re-quotes a known route with a share of the amount.
func (r *Router) evaluatePathForShare(rq *domain.RouteQuote, input, output domain.Currency, share *big.Int, exactIn bool) (*domain.RouteQuote, error) {
	path := make([]common.Address, len(rq.Route.Path))
	for i, c := range rq.Route.Path {
		path[i] = c.Canonical()
	}
	return r.evaluatePath(path, input, output, share, exactIn)
}

// splitAllocations enumerates percent allocations over k routes in
// SplitPercentStep increments, each share nonzero, summing to 100.
func splitAllocations(k int) [][]uint8 {
	var out [][]uint8
	var rec func(prefix []uint8, remaining int, slots int)
	rec = func(prefix []uint8, remaining int, slots int) {
		if slots == 1 {
			if remaining >= SplitPercentStep {
				alloc := make([]uint8, len(prefix)+1)
				copy(alloc, prefix)
				alloc[len(prefix)] = uint8(remaining)
				out = append(out, alloc)
			}
			return
		}
		for pct := SplitPercentStep; pct <= remaining-SplitPercentStep*(slots-1); pct += SplitPercentStep {
			rec(append(prefix, uint8(pct)), remaining-pct, slots-1)
		}
	}
	for slots := 2; slots <= k; slots++ {
		rec(nil, 100, slots)
	}
	return out
}

// assembleTrade sums route splits into a Trade.
func (r *Router) assembleTrade(splits []*domain.RouteQuote, input, output domain.Currency, tradeType domain.TradeType) *domain.Trade {
	totalIn := new(big.Int)
	totalOut := new(big.Int)
	totalFee := new(big.Int)
	weightedImpact := uint64(0)
	weight := uint64(0)

	flat := make([]domain.RouteQuote, len(splits))
	for i, rq := range splits {
		totalIn.Add(totalIn, rq.AmountIn)
		totalOut.Add(totalOut, rq.AmountOut)
		totalFee.Add(totalFee, rq.TotalFee)
		weightedImpact += uint64(rq.PriceImpactBps) * uint64(rq.Percent)
		weight += uint64(rq.Percent)
		flat[i] = *rq
	}
	impact := uint16(0)
	if weight > 0 {
		impact = uint16(weightedImpact / weight)
	}

	return &domain.Trade{
		TradeType:      tradeType,
		Input:          domain.NewCurrencyAmount(input, totalIn),
		Output:         domain.NewCurrencyAmount(output, totalOut),
		Splits:         flat,
		TotalFee:       totalFee,
		PriceImpactBps: impact,
	}
}

// applyGas estimates execution gas for the trade shape and folds it into
// the comparison amounts. Trades stay un-adjusted when no price reference
// covers the relevant currency.
func (r *Router) applyGas(t *domain.Trade) {
	if t == nil {
		return
	}
	t.GasAdjustedOutput = t.Output.Amount
	t.GasAdjustedInput = t.Input.Amount
	t.GasAdjusted = false
	if r.Gas == nil {
		return
	}

	hopTypes := make([]domain.PoolType, 0, 4)
	for i := range t.Splits {
		for j := range t.Splits[i].Hops {
			hopTypes = append(hopTypes, t.Splits[i].Hops[j].Pool.Type)
		}
	}
	t.GasEstimate = r.Gas.EstimateTradeGas(hopTypes, len(t.Splits))
	if t.GasEstimate == 0 {
		return
	}

	if t.TradeType == domain.TradeTypeExactInput {
		cost, ok := r.Gas.CostInCurrency(t.GasEstimate, t.Output.Currency)
		if !ok {
			metrics.GasUnpricedTrades.Inc()
			return
		}
		t.GasCostInQuote = cost
		adjusted := new(big.Int).Sub(t.Output.Amount, cost)
		if adjusted.Sign() < 0 {
			adjusted.SetInt64(0)
		}
		t.GasAdjustedOutput = adjusted
		t.GasAdjusted = true
		return
	}

	cost, ok := r.Gas.CostInCurrency(t.GasEstimate, t.Input.Currency)
	if !ok {
		metrics.GasUnpricedTrades.Inc()
		return
	}
	t.GasCostInQuote = cost
	t.GasAdjustedInput = new(big.Int).Add(t.Input.Amount, cost)
	t.GasAdjusted = true
}

func sortRouteQuotes(quotes []*domain.RouteQuote, exactIn bool) {
	sort.SliceStable(quotes, func(i, j int) bool {
		if exactIn {
			return quotes[i].AmountOut.Cmp(quotes[j].AmountOut) > 0
		}
		return quotes[i].AmountIn.Cmp(quotes[j].AmountIn) < 0
	})
}

func hopQuoteFrom(q *domain.SwapQuote) domain.HopQuote {
	return domain.HopQuote{
		Pool:           q.Pool,
		AmountIn:       q.AmountIn,
		AmountOut:      q.AmountOut,
		FeeAmount:      q.Fee,
		ZeroForOne:     q.ZeroForOne,
		PriceImpactBps: q.PriceImpactBps,
	}
}

// combineHopImpacts compounds per-hop impacts. For small values in bps the
// sum is an accurate approximation of the compounded impact.
func combineHopImpacts(hops []domain.HopQuote) uint16 {
	total := uint32(0)
	for i := range hops {
		total += uint32(hops[i].PriceImpactBps)
	}
	if total > 65535 {
		return 65535
	}
	return uint16(total)
}

// currenciesForPath rebuilds currency metadata for intermediate hops from
// the pools chosen for each hop. Endpoints keep the caller's currencies so
// native coins survive the round trip.
func currenciesForPath(pools []*domain.Pool, path []common.Address, input, output domain.Currency) []domain.Currency {
	out := make([]domain.Currency, len(path))
	out[0] = input
	out[len(path)-1] = output
	for i := 1; i < len(path)-1; i++ {
		p := pools[i-1]
		if p.Token0.Canonical() == path[i] {
			out[i] = p.Token0
		} else {
			out[i] = p.Token1
		}
	}
	return out
}
