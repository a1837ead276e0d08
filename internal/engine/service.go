package engine

import (
	"context"
	"math/big"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/quote-engine/internal/adapters/blockchain"
	"github.com/hxuan190/quote-engine/internal/adapters/persistence"
	icommon "github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
	"github.com/hxuan190/quote-engine/internal/services"
	"github.com/hxuan190/quote-engine/internal/services/gas"
	"github.com/hxuan190/quote-engine/internal/services/market"
	"github.com/hxuan190/quote-engine/internal/services/router"
)

const ENGINE_SERVICE = "engine-service"

// Error aliases for callers that only import the engine package
var (
	ErrNoPoolFound           = router.ErrNoPoolFound
	ErrNoRoute               = router.ErrNoRoute
	ErrInvalidPool           = router.ErrInvalidPool
	ErrInvalidAmount         = router.ErrInvalidAmount
	ErrInsufficientLiquidity = router.ErrInsufficientLiquidity
)

type Service struct {
	container.BaseDIInstance
	logger *services.ServiceLogger

	chain  *blockchain.Client
	graph  *router.Graph
	router *router.Router
	cache  *router.QuoteCache

	marketSvc *market.Service
	gasSvc    *gas.Estimator

	chainCfg  *config.ChainConfig
	engineCfg *config.EngineConfig

	stopPersist chan struct{}
}

func (svc *Service) ID() string {
	return ENGINE_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = services.NewServiceLogger(svc)
	svc.chainCfg = c.GetConfig(config.CHAIN_CONFIG_KEY).(*config.ChainConfig)
	svc.engineCfg = c.GetConfig(config.ENGINE_CONFIG_KEY).(*config.EngineConfig)

	svc.graph = c.Instance(router.ROUTER_GRAPH_SERVICE).(*router.Graph)
	svc.marketSvc = c.Instance(market.MARKET_SERVICE).(*market.Service)
	svc.gasSvc = c.Instance(gas.GAS_ESTIMATOR_SERVICE).(*gas.Estimator)

	svc.router = router.NewRouter(svc.graph, router.NewQuoter())
	if svc.engineCfg.MaxHops > 0 {
		svc.router.MaxHops = svc.engineCfg.MaxHops
	}
	if svc.engineCfg.SplitImpactThresholdBps > 0 {
		svc.router.SplitImpactThresholdBps = uint16(svc.engineCfg.SplitImpactThresholdBps)
	}
	svc.router.SetGasPricer(svc.gasSvc)
	svc.gasSvc.SetPriceSource(svc.marketSvc)

	cacheTTL := time.Duration(svc.engineCfg.QuoteCacheTTLMs) * time.Millisecond
	if cacheTTL <= 0 {
		cacheTTL = 300 * time.Millisecond
	}
	svc.cache = router.NewQuoteCacheWithClock(time.Now, cacheTTL)

	svc.stopPersist = make(chan struct{})
	return nil
}

func (svc *Service) Start() error {
	retry := icommon.RetryPolicy{
		MaxAttempts: svc.chainCfg.RetryAttempts,
		BaseDelay:   time.Duration(svc.chainCfg.RetryBaseDelay) * time.Millisecond,
	}
	if retry.MaxAttempts <= 0 {
		retry = icommon.DefaultRetryPolicy()
	}

	chain, err := blockchain.Dial(context.Background(), svc.chainCfg.RPCUrl, retry)
	if err != nil {
		// quoting still works from persisted pools; gas stays un-adjusted
		svc.logger.Warn().Err(err).Msg("[engineService] RPC unavailable, starting without live chain data")
	} else {
		svc.chain = chain
		svc.gasSvc.SetProber(chain)
		svc.marketSvc.SetFeeProber(chain)
	}

	if svc.engineCfg.PersistenceEnabled {
		go svc.persistLoop()
	}
	return nil
}

func (svc *Service) Stop() error {
	close(svc.stopPersist)
	svc.cache.Stop()
	if svc.chain != nil {
		svc.chain.Close()
	}
	return nil
}

func (svc *Service) persistLoop() {
	interval := time.Duration(svc.engineCfg.PersistInterval) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-svc.stopPersist:
			return
		case <-ticker.C:
			if err := svc.marketSvc.PersistAll(); err != nil {
				log.Error().Err(err).Msg("[engineService] periodic persist failed")
			}
		}
	}
}

// GetQuote finds the best trade for the request, serving repeated requests
// from the short-lived cache. A nil trade with nil error means no route.
func (svc *Service) GetQuote(ctx context.Context, input, output domain.Currency, amount *big.Int, tradeType domain.TradeType) (*domain.Trade, error) {
	start := time.Now()
	exactIn := tradeType == domain.TradeTypeExactInput

	inAddr, outAddr := input.Canonical(), output.Canonical()
	if cached := svc.cache.Get(inAddr, outAddr, amount, exactIn); cached != nil {
		metrics.QuoteCacheHits.Inc()
		metrics.QuoteRequests.WithLabelValues(tradeType.String(), "cached").Inc()
		return cached, nil
	}
	metrics.QuoteCacheMisses.Inc()

	trade, err := svc.router.FindBestTrade(ctx, input, output, amount, tradeType)
	elapsed := time.Since(start)
	metrics.QuoteDuration.WithLabelValues(tradeType.String()).Observe(elapsed.Seconds())

	switch {
	case err != nil:
		metrics.QuoteRequests.WithLabelValues(tradeType.String(), "error").Inc()
		return nil, err
	case trade == nil:
		metrics.QuoteRequests.WithLabelValues(tradeType.String(), "no_route").Inc()
		return nil, nil
	default:
		metrics.QuoteRequests.WithLabelValues(tradeType.String(), "ok").Inc()
		severity := router.GetPriceImpactSeverity(trade.PriceImpactBps)
		metrics.PriceImpact.WithLabelValues(string(severity)).Observe(float64(trade.PriceImpactBps))
		svc.cache.Set(inAddr, outAddr, amount, exactIn, trade)
		return trade, nil
	}
}

func (svc *Service) GetGraph() *router.Graph {
	return svc.graph
}

func (svc *Service) GetMarket() *market.Service {
	return svc.marketSvc
}

func (svc *Service) GetGasEstimator() *gas.Estimator {
	return svc.gasSvc
}

func (svc *Service) ChainID() uint64 {
	return svc.chainCfg.ChainID
}

// WrappedNative resolves the wrapped native token address, preferring the
// configured override over the built-in per-chain table.
func (svc *Service) WrappedNative() ethcommon.Address {
	if svc.chainCfg.WrappedNative != "" && ethcommon.IsHexAddress(svc.chainCfg.WrappedNative) {
		return ethcommon.HexToAddress(svc.chainCfg.WrappedNative)
	}
	return icommon.WrappedNativeByChain[svc.chainCfg.ChainID]
}

func (svc *Service) GetPoolByAddress(address string) *domain.Pool {
	return svc.graph.GetPoolByAddress(address)
}

func (svc *Service) GetStats() (total, ready int) {
	return svc.graph.GetPoolCount(), svc.graph.GetReadyPoolCount()
}

// NewStorage opens the engine's pool store at the configured path.
func NewStorage(cfg *config.EngineConfig) (*persistence.Storage, error) {
	if !cfg.PersistenceEnabled {
		return nil, nil
	}
	return persistence.NewStorage(cfg.DBPath)
}
