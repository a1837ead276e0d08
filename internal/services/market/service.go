package market

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/quote-engine/internal/adapters/persistence"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
	"github.com/hxuan190/quote-engine/internal/services/router"
)

const MARKET_SERVICE = "market.Service"

// Base-token derivation. Tokens connected to at least minBaseTokenDegree
// counterparties are candidates; the whitelist only activates once enough
// qualify, so thin graphs keep an unrestricted search.
const (
	baseTokenRefreshInterval = time.Minute
	maxBaseTokens            = 8
	minBaseTokenDegree       = 3
	minBaseTokenCandidates   = 4
)

// FeeProber detects transfer taxes for a token on chain.
type FeeProber interface {
	DetectTransferFee(ctx context.Context, token common.Address) (domain.TokenFees, error)
}

// Service owns the pool inventory: it feeds the routing graph, persists
// snapshots for warm starts, tracks fee-on-transfer tokens and keeps the
// native price references used for gas accounting.
type Service struct {
	container *container.DIContainer

	graph   *router.Graph
	storage *persistence.Storage
	fees    *TokenFeeRegistry
	prober  FeeProber

	mu           sync.RWMutex
	baseTokens   []domain.Currency
	nativePrices map[common.Address]domain.Price

	stopRefresh chan struct{}
}

func NewService(storage *persistence.Storage) *Service {
	return &Service{
		storage:      storage,
		fees:         NewTokenFeeRegistry(),
		nativePrices: make(map[common.Address]domain.Price),
	}
}

func (s *Service) ID() string {
	return MARKET_SERVICE
}

func (s *Service) Configure(c container.IContainer) error {
	s.graph = c.Instance(router.ROUTER_GRAPH_SERVICE).(*router.Graph)
	s.graph.SetPoolFilter(router.NewTransferFeeFilter(s.fees))
	return nil
}

func (s *Service) Start() error {
	if err := s.WarmStart(); err != nil {
		return err
	}
	s.stopRefresh = make(chan struct{})
	go s.baseTokenRefresher()
	return nil
}

func (s *Service) Stop() error {
	if s.stopRefresh != nil {
		close(s.stopRefresh)
	}
	return s.PersistAll()
}

// baseTokenRefresher re-derives the preferred intermediate set on a fixed
// interval; each refresh replaces an immutable snapshot in the graph.
func (s *Service) baseTokenRefresher() {
	ticker := time.NewTicker(baseTokenRefreshInterval)
	defer ticker.Stop()

	s.refreshBaseTokens()
	for {
		select {
		case <-s.stopRefresh:
			return
		case <-ticker.C:
			s.refreshBaseTokens()
		}
	}
}

// refreshBaseTokens ranks tokens by pool connectivity and installs the top
// slice as multi-hop intermediates. A manually configured list wins.
func (s *Service) refreshBaseTokens() {
	s.mu.RLock()
	manual := len(s.baseTokens) > 0
	s.mu.RUnlock()
	if manual {
		return
	}

	type tokenDegree struct {
		token  common.Address
		degree int
	}
	var ranked []tokenDegree
	for token, degree := range s.graph.TokenDegrees() {
		if degree >= minBaseTokenDegree {
			ranked = append(ranked, tokenDegree{token, degree})
		}
	}
	if len(ranked) < minBaseTokenCandidates {
		s.graph.SetBaseTokens(nil)
		return
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].degree != ranked[j].degree {
			return ranked[i].degree > ranked[j].degree
		}
		return ranked[i].token.Cmp(ranked[j].token) < 0
	})
	if len(ranked) > maxBaseTokens {
		ranked = ranked[:maxBaseTokens]
	}

	addrs := make([]common.Address, len(ranked))
	for i, r := range ranked {
		addrs[i] = r.token
	}
	s.graph.SetBaseTokens(addrs)
	log.Debug().Int("count", len(addrs)).Msg("[marketService] base token set refreshed")
}

// SetFeeProber installs the on-chain transfer-fee probe.
func (s *Service) SetFeeProber(p FeeProber) {
	s.prober = p
}

// Fees exposes the registry for routing filters and handlers.
func (s *Service) Fees() *TokenFeeRegistry {
	return s.fees
}

// WarmStart restores pools and token fees from the local store so quoting
// is available before live updates arrive.
func (s *Service) WarmStart() error {
	if s.storage == nil {
		return nil
	}

	pools, err := s.storage.LoadAllPools()
	if err != nil {
		return err
	}
	if len(pools) > 0 {
		s.graph.AddPoolsBatch(pools)
	}

	fees, err := s.storage.LoadAllTokenFees()
	if err != nil {
		return err
	}
	for _, f := range fees {
		s.fees.Set(f)
	}

	log.Info().
		Int("pools", len(pools)).
		Int("tokenFees", len(fees)).
		Msg("[marketService] warm start complete")
	return nil
}

// PersistAll snapshots the current pool inventory to the local store.
func (s *Service) PersistAll() error {
	if s.storage == nil {
		return nil
	}
	pools := s.graph.GetAllPools()
	if err := s.storage.SavePoolBatch(pools); err != nil {
		return err
	}

	var firstErr error
	s.fees.Range(func(f domain.TokenFees) bool {
		if err := s.storage.SaveTokenFees(f); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})
	return firstErr
}

// UpsertPool validates and installs a pool update into the graph.
func (s *Service) UpsertPool(pool *domain.Pool) error {
	if pool == nil {
		return router.ErrInvalidPool
	}
	pool.UpdateFlags()
	pool.SyncU64Reserves()
	s.graph.AddPool(pool)
	metrics.PoolUpdates.Inc()
	return nil
}

// RemovePool drops a pool from the graph.
func (s *Service) RemovePool(address common.Address) {
	s.graph.RemovePool(address)
}

// ProbeTokenFees runs the on-chain fee probe for a token and records the
// result. Safe to call repeatedly; the latest result wins.
func (s *Service) ProbeTokenFees(ctx context.Context, token common.Address) (domain.TokenFees, error) {
	if s.prober == nil {
		fees, _ := s.fees.GetTokenFees(token)
		return fees, nil
	}
	fees, err := s.prober.DetectTransferFee(ctx, token)
	if err != nil {
		return domain.TokenFees{Token: token}, err
	}
	s.fees.Set(fees)
	if fees.HasTransferFee() {
		s.graph.MarkDirty()
	}
	return fees, nil
}

// SetBaseTokens replaces the preferred intermediate token list, overriding
// the connectivity-derived one.
func (s *Service) SetBaseTokens(tokens []domain.Currency) {
	s.mu.Lock()
	s.baseTokens = tokens
	s.mu.Unlock()

	if s.graph == nil {
		return
	}
	addrs := make([]common.Address, 0, len(tokens))
	for _, t := range tokens {
		addrs = append(addrs, t.Canonical())
	}
	s.graph.SetBaseTokens(addrs)
}

// BaseTokens returns the preferred intermediate tokens for routing.
func (s *Service) BaseTokens() []domain.Currency {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Currency, len(s.baseTokens))
	copy(out, s.baseTokens)
	return out
}

// SetNativePrice records the price of one wei of native coin in the given
// currency's base units.
func (s *Service) SetNativePrice(currency domain.Currency, price domain.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nativePrices[currency.Canonical()] = price
}

// NativePrice implements the gas estimator's price source. The boolean is
// false when no reference exists for the currency; callers then skip gas
// adjustment.
func (s *Service) NativePrice(currency domain.Currency) (domain.Price, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	price, ok := s.nativePrices[currency.Canonical()]
	return price, ok
}
