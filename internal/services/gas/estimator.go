package gas

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/quote-engine/internal/config"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

// Default gas accounting when probing fails
const (
	DefaultBaseGas     = 120000  // fixed overhead of a swap transaction
	DefaultGasPerHop   = 90000   // hop cost for pool variants without a table entry
	DefaultGasPerSplit = 60000   // marginal cost of one extra route split
	DefaultStaticMax   = 1400000 // hard ceiling regardless of probe results
	DefaultGasBuffer   = 50000   // safety margin subtracted from the limit

	// Per-variant hop costs. Concentrated pools walk ticks and stable
	// pools run the invariant solver on-chain, so both cost more than a
	// reserve-pair swap.
	DefaultGasHopV2     = 75000
	DefaultGasHopV3     = 110000
	DefaultGasHopStable = 140000
	DefaultGasHopBin    = 95000

	probeTTL = 3 * time.Second
)

var (
	ErrGasConfig     = errors.New("gas limit configuration leaves no usable gas")
	ErrProbeFailed   = errors.New("gas probe failed")
	ErrNoNativePrice = errors.New("no native price reference")
)

const GAS_ESTIMATOR_SERVICE = "gas.Estimator"

// Prober reports live chain gas data in one batched read. The call may
// fail when the node is unreachable; the estimator falls back to static
// configuration.
type Prober interface {
	ProbeGasData(ctx context.Context) (gasLimit uint64, gasPrice *big.Int, err error)
}

// NativePriceSource prices the chain's native coin in an arbitrary currency.
// The returned Price quotes one wei of native coin in the target currency's
// base units.
type NativePriceSource interface {
	NativePrice(currency domain.Currency) (domain.Price, bool)
}

// Config tunes the estimator. OverrideGasLimit of zero means unset.
// GasPerHop covers pool variants missing from HopGasByPoolType.
type Config struct {
	BaseGas          uint64
	GasPerHop        uint64
	GasPerSplit      uint64
	StaticMaxGas     uint64
	GasBuffer        uint64
	OverrideGasLimit uint64
	ProbeTTL         time.Duration

	HopGasByPoolType map[domain.PoolType]uint64
}

func DefaultConfig() Config {
	return Config{
		BaseGas:          DefaultBaseGas,
		GasPerHop:        DefaultGasPerHop,
		GasPerSplit:      DefaultGasPerSplit,
		StaticMaxGas:     DefaultStaticMax,
		GasBuffer:        DefaultGasBuffer,
		ProbeTTL:         probeTTL,
		HopGasByPoolType: defaultHopGasTable(),
	}
}

func defaultHopGasTable() map[domain.PoolType]uint64 {
	return map[domain.PoolType]uint64{
		domain.PoolTypeConstantProduct: DefaultGasHopV2,
		domain.PoolTypeConcentrated:    DefaultGasHopV3,
		domain.PoolTypeStable:          DefaultGasHopStable,
		domain.PoolTypeBin:             DefaultGasHopBin,
	}
}

type probeCache struct {
	gasLimit  uint64
	gasPrice  *big.Int
	fetchedAt time.Time
	haveLimit bool
	havePrice bool
}

// Estimator derives per-trade gas estimates and prices them in quote
// currencies. Probe results are cached for a short TTL; the clock is
// injectable so expiry is testable.
type Estimator struct {
	container *container.DIContainer

	cfg    Config
	prober Prober
	prices NativePriceSource
	now    func() time.Time

	mu    sync.Mutex
	cache probeCache
}

func NewEstimator(cfg Config) *Estimator {
	if cfg.ProbeTTL <= 0 {
		cfg.ProbeTTL = probeTTL
	}
	return &Estimator{cfg: cfg, now: time.Now}
}

func (e *Estimator) ID() string {
	return GAS_ESTIMATOR_SERVICE
}

func (e *Estimator) Configure(c container.IContainer) error {
	if e.now == nil {
		e.now = time.Now
	}
	if e.cfg.StaticMaxGas == 0 {
		if gc, ok := c.GetConfig(config.GAS_CONFIG_KEY).(*config.GasConfig); ok && gc != nil {
			e.cfg = configFromEnv(gc)
		} else {
			e.cfg = DefaultConfig()
		}
	}
	_, err := e.effectiveGasLimit(context.Background())
	return err
}

func configFromEnv(gc *config.GasConfig) Config {
	cfg := Config{
		BaseGas:          uint64(gc.BaseGas),
		GasPerHop:        uint64(gc.GasPerHop),
		GasPerSplit:      uint64(gc.GasPerSplit),
		StaticMaxGas:     uint64(gc.StaticMaxGas),
		GasBuffer:        uint64(gc.GasBuffer),
		OverrideGasLimit: uint64(gc.OverrideGasLimit),
		ProbeTTL:         time.Duration(gc.ProbeTTLMs) * time.Millisecond,
		HopGasByPoolType: map[domain.PoolType]uint64{
			domain.PoolTypeConstantProduct: uint64(gc.GasPerHopV2),
			domain.PoolTypeConcentrated:    uint64(gc.GasPerHopV3),
			domain.PoolTypeStable:          uint64(gc.GasPerHopStable),
			domain.PoolTypeBin:             uint64(gc.GasPerHopBin),
		},
	}
	if cfg.ProbeTTL <= 0 {
		cfg.ProbeTTL = probeTTL
	}
	return cfg
}

func (e *Estimator) Start() error { return nil }
func (e *Estimator) Stop() error  { return nil }

// SetProber installs the on-chain probe. Without one the static ceiling is
// used.
func (e *Estimator) SetProber(p Prober) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prober = p
	e.cache = probeCache{}
}

// SetPriceSource installs the native price reference used by CostInCurrency.
func (e *Estimator) SetPriceSource(s NativePriceSource) {
	e.prices = s
}

// SetClock replaces the wall clock, resetting cached probe data.
func (e *Estimator) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
	e.cache = probeCache{}
}

func (e *Estimator) hopGas(pt domain.PoolType) uint64 {
	if g, ok := e.cfg.HopGasByPoolType[pt]; ok && g > 0 {
		return g
	}
	return e.cfg.GasPerHop
}

// EstimateTradeGas returns the gas units a trade of the given shape should
// consume, capped at the effective limit. A zero return means the trade
// cannot fit.
func (e *Estimator) EstimateTradeGas(hopTypes []domain.PoolType, splitCount int) uint64 {
	if len(hopTypes) == 0 {
		return 0
	}
	extraSplits := splitCount - 1
	if extraSplits < 0 {
		extraSplits = 0
	}
	units := e.cfg.BaseGas + uint64(extraSplits)*e.cfg.GasPerSplit
	for _, pt := range hopTypes {
		units += e.hopGas(pt)
	}

	limit, err := e.effectiveGasLimit(context.Background())
	if err != nil {
		return 0
	}
	if units > limit {
		units = limit
	}
	metrics.GasEstimateUnits.Observe(float64(units))
	return units
}

// effectiveGasLimit resolves override, probe and static ceiling in that
// order, then subtracts the safety buffer. A non-positive result is a
// configuration error.
func (e *Estimator) effectiveGasLimit(ctx context.Context) (uint64, error) {
	limit := e.cfg.StaticMaxGas

	if e.cfg.OverrideGasLimit > 0 {
		limit = e.cfg.OverrideGasLimit
	} else if probed, ok := e.probedGasLimit(ctx); ok {
		limit = probed
	}

	if limit > e.cfg.StaticMaxGas {
		limit = e.cfg.StaticMaxGas
	}
	if limit <= e.cfg.GasBuffer {
		return 0, ErrGasConfig
	}
	return limit - e.cfg.GasBuffer, nil
}

// EffectiveGasLimit is the exported view of the resolved limit.
func (e *Estimator) EffectiveGasLimit(ctx context.Context) (uint64, error) {
	return e.effectiveGasLimit(ctx)
}

// refreshProbe fetches limit and price together when the cached batch has
// expired. Must be called with mu held.
func (e *Estimator) refreshProbe(ctx context.Context) {
	if e.prober == nil {
		return
	}
	if (e.cache.haveLimit || e.cache.havePrice) && e.now().Sub(e.cache.fetchedAt) < e.cfg.ProbeTTL {
		return
	}

	limit, price, err := e.prober.ProbeGasData(ctx)
	if err != nil {
		metrics.GasProbeFailures.Inc()
		e.cache = probeCache{}
		return
	}
	e.cache = probeCache{
		gasLimit:  limit,
		gasPrice:  price,
		fetchedAt: e.now(),
		haveLimit: limit > 0,
		havePrice: price != nil && price.Sign() > 0,
	}
}

func (e *Estimator) probedGasLimit(ctx context.Context) (uint64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refreshProbe(ctx)
	return e.cache.gasLimit, e.cache.haveLimit
}

func (e *Estimator) probedGasPrice(ctx context.Context) (*big.Int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.refreshProbe(ctx)
	return e.cache.gasPrice, e.cache.havePrice
}

// CostInCurrency converts a gas estimate into the given currency through
// the native price reference. Returns false when no gas price or price
// reference is available so callers can skip gas adjustment.
func (e *Estimator) CostInCurrency(gasUnits uint64, currency domain.Currency) (*big.Int, bool) {
	if gasUnits == 0 || e.prices == nil {
		return nil, false
	}

	gasPrice, ok := e.probedGasPrice(context.Background())
	if !ok {
		return nil, false
	}

	price, ok := e.prices.NativePrice(currency)
	if !ok {
		return nil, false
	}

	weiCost := new(big.Int).Mul(new(big.Int).SetUint64(gasUnits), gasPrice)
	return price.QuoteAmount(weiCost), true
}
