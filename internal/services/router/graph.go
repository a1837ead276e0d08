package router

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

// MaxPoolsPerPair limits pools per token pair for faster routing
const MaxPoolsPerPair = 5

type adjMap = map[common.Address]map[common.Address][]*domain.Pool
type poolsMap = map[common.Address]*domain.Pool

// PoolFilter decides whether a pool may participate in routing. Returning
// false drops the pool from every snapshot edge.
type PoolFilter interface {
	Allow(pool *domain.Pool) bool
}

// graphSnapshot holds immutable snapshot of graph data for lock-free reads
type graphSnapshot struct {
	adj   adjMap
	pools poolsMap
}

const (
	ROUTER_GRAPH_SERVICE = "router.Graph"
)

// Graph represents the token routing graph with lock-free reads
type Graph struct {
	container *container.DIContainer

	mu sync.Mutex // Only for writes

	// Atomic snapshots for lock-free reads
	snapshot atomic.Value // *graphSnapshot

	// Mutable state (protected by mu)
	adj   adjMap
	pools poolsMap

	// Atomic counters
	poolCount      atomic.Int64
	readyPoolCount atomic.Int64

	// Lazy snapshot rebuild
	snapshotDirty atomic.Bool
	stopRefresher chan struct{}

	// Optional routing filter, falls back to pool.IsReady() alone
	filter PoolFilter

	// Preferred multi-hop intermediates; empty means unrestricted
	baseTokens atomic.Value // map[common.Address]struct{}
}

func (g *Graph) ID() string {
	return ROUTER_GRAPH_SERVICE
}

func (g *Graph) Configure(c container.IContainer) error {
	g.adj = make(adjMap)
	g.pools = make(poolsMap)
	g.stopRefresher = make(chan struct{})

	g.rebuildSnapshot()
	go g.snapshotRefresher()
	return nil
}

func (g *Graph) Start() error {
	return nil
}

func (g *Graph) Stop() error {
	close(g.stopRefresher)
	return nil
}

// SetPoolFilter installs a routing filter and rebuilds the snapshot so the
// change is visible to readers immediately.
func (g *Graph) SetPoolFilter(filter PoolFilter) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.filter = filter
	g.rebuildSnapshot()
}

func (g *Graph) isRoutable(pool *domain.Pool) bool {
	if !pool.IsReady() {
		return false
	}
	if g.filter != nil {
		return g.filter.Allow(pool)
	}
	return true
}

// snapshotRefresher periodically rebuilds the snapshot if dirty
func (g *Graph) snapshotRefresher() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopRefresher:
			return
		case <-ticker.C:
			if g.snapshotDirty.CompareAndSwap(true, false) {
				g.mu.Lock()
				g.rebuildSnapshot()
				g.mu.Unlock()
			}
		}
	}
}

// rebuildSnapshot creates a new immutable snapshot with pre-filtered
// routable pools. Must be called with mu held.
func (g *Graph) rebuildSnapshot() {
	metrics.GraphSnapshotRebuilds.Inc()

	newPools := make(poolsMap, len(g.pools))
	readyCount := int64(0)

	for addr, pool := range g.pools {
		newPools[addr] = pool
		if g.isRoutable(pool) {
			readyCount++
		}
	}

	// Adjacency holds only routable pools, sorted by liquidity and capped
	newAdj := make(adjMap, len(g.adj))
	for tokenA, neighbors := range g.adj {
		newNeighbors := make(map[common.Address][]*domain.Pool, len(neighbors))
		for tokenB, pools := range neighbors {
			routable := make([]*domain.Pool, 0, len(pools))
			for _, p := range pools {
				if g.isRoutable(p) {
					routable = append(routable, p)
				}
			}
			if len(routable) == 0 {
				continue
			}
			sortPoolsByOutputLiquidity(routable, tokenA)
			if len(routable) > MaxPoolsPerPair {
				routable = routable[:MaxPoolsPerPair]
			}
			newNeighbors[tokenB] = routable
		}
		if len(newNeighbors) > 0 {
			newAdj[tokenA] = newNeighbors
		}
	}

	g.snapshot.Store(&graphSnapshot{adj: newAdj, pools: newPools})
	g.poolCount.Store(int64(len(g.pools)))
	g.readyPoolCount.Store(readyCount)
	metrics.PoolCount.Set(float64(len(g.pools)))
	metrics.ReadyPoolCount.Set(float64(readyCount))
}

// sortPoolsByOutputLiquidity sorts pools by output reserve (descending).
// Uses uint64 shadow fields to avoid big.Int comparison overhead.
func sortPoolsByOutputLiquidity(pools []*domain.Pool, inputToken common.Address) {
	if len(pools) <= 1 {
		return
	}
	sort.Slice(pools, func(i, j int) bool {
		return getOutputReserveU64(pools[i], inputToken) > getOutputReserveU64(pools[j], inputToken)
	})
}

func getOutputReserveU64(pool *domain.Pool, inputToken common.Address) uint64 {
	if pool.Token0.Address == inputToken {
		return pool.Reserve1U64
	}
	return pool.Reserve0U64
}

func (g *Graph) getSnapshot() *graphSnapshot {
	return g.snapshot.Load().(*graphSnapshot)
}

// AddPool adds or replaces a pool with lazy snapshot rebuild
func (g *Graph) AddPool(pool *domain.Pool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.addPoolLocked(pool)
	g.snapshotDirty.Store(true)
}

func (g *Graph) addPoolLocked(pool *domain.Pool) {
	tokenA := pool.Token0.Address
	tokenB := pool.Token1.Address

	if _, exists := g.pools[pool.Address]; exists {
		g.pools[pool.Address] = pool
		g.replaceEdge(tokenA, tokenB, pool)
		g.replaceEdge(tokenB, tokenA, pool)
		return
	}

	g.pools[pool.Address] = pool

	if _, ok := g.adj[tokenA]; !ok {
		g.adj[tokenA] = make(map[common.Address][]*domain.Pool)
	}
	g.adj[tokenA][tokenB] = append(g.adj[tokenA][tokenB], pool)

	if _, ok := g.adj[tokenB]; !ok {
		g.adj[tokenB] = make(map[common.Address][]*domain.Pool)
	}
	g.adj[tokenB][tokenA] = append(g.adj[tokenB][tokenA], pool)
}

func (g *Graph) replaceEdge(from, to common.Address, pool *domain.Pool) {
	if neighbors, ok := g.adj[from]; ok {
		for i, p := range neighbors[to] {
			if p.Address == pool.Address {
				neighbors[to][i] = pool
				return
			}
		}
	}
}

// AddPoolsBatch adds multiple pools with a single snapshot rebuild
func (g *Graph) AddPoolsBatch(pools []*domain.Pool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, pool := range pools {
		g.addPoolLocked(pool)
	}
	g.snapshotDirty.Store(false)
	g.rebuildSnapshot()
}

// RemovePool removes a pool from the graph with lazy snapshot rebuild
func (g *Graph) RemovePool(poolAddress common.Address) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pool, exists := g.pools[poolAddress]
	if !exists {
		return
	}

	delete(g.pools, poolAddress)
	g.removeEdge(pool.Token0.Address, pool.Token1.Address, poolAddress)
	g.removeEdge(pool.Token1.Address, pool.Token0.Address, poolAddress)
	g.snapshotDirty.Store(true)
}

func (g *Graph) removeEdge(from, to, poolAddress common.Address) {
	if neighbors, ok := g.adj[from]; ok {
		if pools, ok := neighbors[to]; ok {
			newPools := make([]*domain.Pool, 0, len(pools))
			for _, p := range pools {
				if p.Address != poolAddress {
					newPools = append(newPools, p)
				}
			}
			if len(newPools) == 0 {
				delete(neighbors, to)
			} else {
				neighbors[to] = newPools
			}
		}
		if len(neighbors) == 0 {
			delete(g.adj, from)
		}
	}
}

// RefreshSnapshot rebuilds the snapshot - call after modifying pool state
func (g *Graph) RefreshSnapshot() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.snapshotDirty.Store(false)
	g.rebuildSnapshot()
}

// MarkDirty marks the snapshot as needing rebuild
func (g *Graph) MarkDirty() {
	g.snapshotDirty.Store(true)
}

// GetPool returns a pool by address (lock-free read from snapshot)
func (g *Graph) GetPool(address common.Address) *domain.Pool {
	snap := g.getSnapshot()
	return snap.pools[address]
}

// GetPoolMutable returns a pool from mutable state (with lock). Use when the
// latest pool data may not be in the snapshot yet.
func (g *Graph) GetPoolMutable(address common.Address) *domain.Pool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pools[address]
}

// GetPoolByAddress returns a pool by address string (lock-free read)
func (g *Graph) GetPoolByAddress(addressStr string) *domain.Pool {
	if !common.IsHexAddress(addressStr) {
		return nil
	}
	snap := g.getSnapshot()
	return snap.pools[common.HexToAddress(addressStr)]
}

// GetPoolCount returns total pool count (lock-free)
func (g *Graph) GetPoolCount() int {
	return int(g.poolCount.Load())
}

// GetReadyPoolCount returns routable pool count (lock-free)
func (g *Graph) GetReadyPoolCount() int {
	return int(g.readyPoolCount.Load())
}

// GetAllPools returns all pools (lock-free read)
func (g *Graph) GetAllPools() []*domain.Pool {
	snap := g.getSnapshot()
	pools := make([]*domain.Pool, 0, len(snap.pools))
	for _, p := range snap.pools {
		pools = append(pools, p)
	}
	return pools
}

// GetDirectRoutesForPair returns routable pools connecting two tokens
// directly (lock-free read). Pools are pre-filtered during snapshot creation.
func (g *Graph) GetDirectRoutesForPair(tokenA, tokenB common.Address) []*domain.Pool {
	snap := g.getSnapshot()
	if neighbors, ok := snap.adj[tokenA]; ok {
		if pools, ok := neighbors[tokenB]; ok {
			return pools
		}
	}
	return nil
}

// SetBaseTokens installs the preferred intermediate set for multi-hop
// search. An empty set leaves the search unrestricted.
func (g *Graph) SetBaseTokens(tokens []common.Address) {
	set := make(map[common.Address]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	g.baseTokens.Store(set)
}

func (g *Graph) baseTokenSet() map[common.Address]struct{} {
	set, _ := g.baseTokens.Load().(map[common.Address]struct{})
	return set
}

// TokenDegrees returns the number of distinct counterparty tokens per
// token in the routable snapshot.
func (g *Graph) TokenDegrees() map[common.Address]int {
	snap := g.getSnapshot()
	out := make(map[common.Address]int, len(snap.adj))
	for token, neighbors := range snap.adj {
		out[token] = len(neighbors)
	}
	return out
}

// Neighbors returns the tokens directly reachable from the given token.
func (g *Graph) Neighbors(token common.Address) []common.Address {
	snap := g.getSnapshot()
	neighbors, ok := snap.adj[token]
	if !ok {
		return nil
	}
	out := make([]common.Address, 0, len(neighbors))
	for addr := range neighbors {
		out = append(out, addr)
	}
	return out
}
