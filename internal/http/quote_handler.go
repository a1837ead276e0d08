package http

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	icommon "github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/http/httputil"
	"github.com/hxuan190/quote-engine/internal/services/router"
)

// bigIntPool reuses big.Int allocations for slippage calculations.
var bigIntPool = sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

type QuoteHandler struct {
	engineSvc *engine.Service
}

func NewQuoteHandler(engineSvc *engine.Service) *QuoteHandler {
	return &QuoteHandler{engineSvc: engineSvc}
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

// QuoteRequest represents the parameters for requesting a swap quote.
type QuoteRequest struct {
	// Input token address. Use 0xEeee...EEeE for the chain's native coin.
	InputToken string `form:"inputToken" binding:"required"`

	// Output token address.
	OutputToken string `form:"outputToken" binding:"required"`

	// Amount in smallest token units.
	Amount string `form:"amount" binding:"required"`

	// Swap mode determines how the amount is interpreted:
	// - "ExactIn": Amount is the exact input, output is estimated
	// - "ExactOut": Amount is the exact output desired, input is estimated
	SwapMode string `form:"swapMode" binding:"required"`

	// Slippage tolerance in basis points (1 bps = 0.01%). Default: 50.
	SlippageBps uint16 `form:"slippageBps"`
}

// RouteInfo describes a single hop of one route split.
type RouteInfo struct {
	PoolAddress string `json:"poolAddress"`
	PoolType    string `json:"poolType"`

	// Percentage of the trade routed through this split (100 for single route).
	Percent uint8 `json:"percent"`

	InputToken  string `json:"inputToken"`
	OutputToken string `json:"outputToken"`
}

// QuoteResponse contains the calculated swap quote with routing information.
type QuoteResponse struct {
	InputToken  string `json:"inputToken"`
	OutputToken string `json:"outputToken"`

	// Actual amounts in smallest token units. For ExactIn, amountIn echoes
	// the request; for ExactOut, amountOut does.
	AmountIn  string `json:"amountIn"`
	AmountOut string `json:"amountOut"`

	// Average execution price as amountOut/amountIn in raw base units.
	ExecutionPrice string `json:"executionPrice"`

	PriceImpactBps      uint16 `json:"priceImpactBps"`
	PriceImpactPercent  string `json:"priceImpactPercent"`
	PriceImpactSeverity string `json:"priceImpactSeverity"`
	PriceImpactWarning  string `json:"priceImpactWarning,omitempty"`

	// Total pool fees paid across all hops, in input-token units.
	FeeAmount string `json:"feeAmount"`

	Routes    []RouteInfo `json:"routes"`
	RoutePath []string    `json:"routePath"`
	HopCount  int         `json:"hopCount"`
	Splits    int         `json:"splits"`

	// Minimum output (ExactIn) or maximum input (ExactOut) after slippage.
	OtherAmountThreshold string `json:"otherAmountThreshold"`

	// Gas accounting. gasAdjusted is false when no native price reference
	// was available, in which case the amounts above exclude gas.
	GasEstimate    uint64 `json:"gasEstimate"`
	GasCostInQuote string `json:"gasCostInQuote,omitempty"`
	GasAdjusted    bool   `json:"gasAdjusted"`
}

type parsedQuoteRequest struct {
	req         *QuoteRequest
	input       domain.Currency
	output      domain.Currency
	amount      *big.Int
	exactIn     bool
	slippageBps uint16
}

func (h *QuoteHandler) parseQuoteRequest(c *gin.Context) (*parsedQuoteRequest, bool) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.BadRequest(c, "invalid query parameters: "+err.Error())
		return nil, false
	}

	input, err := h.resolveCurrency(req.InputToken)
	if err != nil {
		httputil.BadRequest(c, "invalid inputToken address")
		return nil, false
	}

	output, err := h.resolveCurrency(req.OutputToken)
	if err != nil {
		httputil.BadRequest(c, "invalid outputToken address")
		return nil, false
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		httputil.BadRequest(c, "invalid amount: must be a positive integer")
		return nil, false
	}

	var exactIn bool
	switch req.SwapMode {
	case "ExactIn":
		exactIn = true
	case "ExactOut":
		exactIn = false
	default:
		httputil.BadRequest(c, "invalid swapMode: must be ExactIn or ExactOut")
		return nil, false
	}

	slippageBps := req.SlippageBps
	if slippageBps == 0 {
		slippageBps = 50
	}

	return &parsedQuoteRequest{
		req:         &req,
		input:       input,
		output:      output,
		amount:      amount,
		exactIn:     exactIn,
		slippageBps: slippageBps,
	}, true
}

// resolveCurrency maps a request address to a routable currency. The native
// sentinel address resolves to the chain's wrapped token.
func (h *QuoteHandler) resolveCurrency(addressStr string) (domain.Currency, error) {
	if !common.IsHexAddress(addressStr) {
		return domain.Currency{}, fmt.Errorf("not a hex address: %s", addressStr)
	}
	addr := common.HexToAddress(addressStr)
	chainID := h.engineSvc.ChainID()

	if addr == icommon.NativeTokenAddress {
		wrapped := h.engineSvc.WrappedNative()
		if wrapped == (common.Address{}) {
			return domain.Currency{}, fmt.Errorf("no wrapped native token configured for chain %d", chainID)
		}
		return domain.Currency{
			ChainID:  chainID,
			Address:  addr,
			IsNative: true,
			Wrapped:  wrapped,
		}, nil
	}

	return domain.Currency{ChainID: chainID, Address: addr}, nil
}

func (h *QuoteHandler) buildQuoteResponse(req *QuoteRequest, trade *domain.Trade, slippageBps uint16, exactIn bool) QuoteResponse {
	// Two pooled big.Ints: one multiplier and one result. Kept separate so
	// a big.Int method never receives the same pointer as src and dst.
	otherAmountThreshold := bigIntPool.Get().(*big.Int)
	defer bigIntPool.Put(otherAmountThreshold)

	temp := bigIntPool.Get().(*big.Int)
	defer bigIntPool.Put(temp)

	if exactIn {
		temp.SetInt64(int64(icommon.BpsDenominator - int(slippageBps)))
		otherAmountThreshold.Mul(trade.Output.Amount, temp)
		temp.SetInt64(icommon.BpsDenominator)
		otherAmountThreshold.Div(otherAmountThreshold, temp)
	} else {
		// Max input = amountIn * 10000 / (10000 - slippageBps). Dividing by
		// (1 - slippage) matches on-chain router threshold math.
		divisor := int64(icommon.BpsDenominator) - int64(slippageBps)
		if divisor > 0 {
			temp.SetInt64(icommon.BpsDenominator)
			otherAmountThreshold.Mul(trade.Input.Amount, temp)
			temp.SetInt64(divisor)
			otherAmountThreshold.Div(otherAmountThreshold, temp)
		} else {
			// slippage >= 100% is degenerate, fall back to the raw input
			otherAmountThreshold.Set(trade.Input.Amount)
		}
	}

	// Capture the string before the big.Int goes back to the pool.
	otherAmountThresholdStr := otherAmountThreshold.String()

	executionPrice := "0"
	if trade.Input.Amount.Sign() > 0 {
		in := decimal.NewFromBigInt(trade.Input.Amount, 0)
		out := decimal.NewFromBigInt(trade.Output.Amount, 0)
		executionPrice = out.DivRound(in, 18).String()
	}

	priceImpactPercent := float64(trade.PriceImpactBps) / 100.0
	priceImpactPercentStr := fmt.Sprintf("%.2f%%", priceImpactPercent)

	severity := router.GetPriceImpactSeverity(trade.PriceImpactBps)
	warning := router.GetPriceImpactWarning(trade.PriceImpactBps)

	var routes []RouteInfo
	maxHops := 0
	for _, split := range trade.Splits {
		if split.Route == nil {
			continue
		}
		if n := split.Route.HopCount(); n > maxHops {
			maxHops = n
		}
		for _, hop := range split.Hops {
			if hop.Pool == nil {
				continue
			}
			var hopIn, hopOut common.Address
			if hop.ZeroForOne {
				hopIn = hop.Pool.Token0.Canonical()
				hopOut = hop.Pool.Token1.Canonical()
			} else {
				hopIn = hop.Pool.Token1.Canonical()
				hopOut = hop.Pool.Token0.Canonical()
			}
			routes = append(routes, RouteInfo{
				PoolAddress: hop.Pool.Address.Hex(),
				PoolType:    hop.Pool.Type.String(),
				Percent:     split.Percent,
				InputToken:  hopIn.Hex(),
				OutputToken: hopOut.Hex(),
			})
		}
	}

	var routePath []string
	for _, addr := range trade.RoutePath() {
		routePath = append(routePath, addr.Hex())
	}

	feeAmount := "0"
	if trade.TotalFee != nil {
		feeAmount = trade.TotalFee.String()
	}
	gasCost := ""
	if trade.GasCostInQuote != nil {
		gasCost = trade.GasCostInQuote.String()
	}

	return QuoteResponse{
		InputToken:           req.InputToken,
		OutputToken:          req.OutputToken,
		AmountIn:             trade.Input.Amount.String(),
		AmountOut:            trade.Output.Amount.String(),
		ExecutionPrice:       executionPrice,
		PriceImpactBps:       trade.PriceImpactBps,
		PriceImpactPercent:   priceImpactPercentStr,
		PriceImpactSeverity:  string(severity),
		PriceImpactWarning:   warning,
		FeeAmount:            feeAmount,
		Routes:               routes,
		RoutePath:            routePath,
		HopCount:             maxHops,
		Splits:               len(trade.Splits),
		OtherAmountThreshold: otherAmountThresholdStr,
		GasEstimate:          trade.GasEstimate,
		GasCostInQuote:       gasCost,
		GasAdjusted:          trade.GasAdjusted,
	}
}

func (h *QuoteHandler) getQuote(c *gin.Context) {
	parsed, ok := h.parseQuoteRequest(c)
	if !ok {
		return
	}

	tradeType := domain.TradeTypeExactInput
	if !parsed.exactIn {
		tradeType = domain.TradeTypeExactOutput
	}

	trade, err := h.engineSvc.GetQuote(c.Request.Context(), parsed.input, parsed.output, parsed.amount, tradeType)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			httputil.HandleError(c, icommon.HTTPErrorUnavailable("quote timed out"))
			return
		}
		httputil.HandleError(c, icommon.HTTPErrorBadRequest("quote failed: "+err.Error()))
		return
	}
	if trade == nil {
		httputil.HandleError(c, icommon.HTTPErrorNotFound("no route found"))
		return
	}

	httputil.Success(c, h.buildQuoteResponse(parsed.req, trade, parsed.slippageBps, parsed.exactIn))
}
