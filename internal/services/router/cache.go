package router

import (
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

const (
	quoteCacheTTL     = 300 * time.Millisecond // pools update every few hundred ms
	quoteCacheMaxSize = 1024                   // Power of 2 for efficient modulo
	quoteCacheShards  = 16                     // Number of shards for reduced lock contention
)

// FNV-1a constants for zero-allocation hashing
const (
	fnvOffset64 = 14695981039346656037
	fnvPrime64  = 1099511628211
)

// cacheEntry represents a cached trade in contiguous memory
type cacheEntry struct {
	key    uint64
	trade  *domain.Trade
	expiry int64  // Unix nano for faster comparison
	used   uint32 // Clock bit for eviction
}

// cacheShard is a single shard of the cache
type cacheShard struct {
	mu      sync.RWMutex
	entries []cacheEntry
	size    int
	hand    int // Clock hand for eviction
}

// QuoteCache implements a sharded clock-based cache with TTL for trades.
// Uses array-based storage for better cache locality. The clock is
// injectable so expiry is testable.
type QuoteCache struct {
	shards   [quoteCacheShards]cacheShard
	now      func() time.Time
	ttl      time.Duration
	stopChan chan struct{}
}

func NewQuoteCache() *QuoteCache {
	return NewQuoteCacheWithClock(time.Now, quoteCacheTTL)
}

func NewQuoteCacheWithClock(now func() time.Time, ttl time.Duration) *QuoteCache {
	qc := &QuoteCache{
		now:      now,
		ttl:      ttl,
		stopChan: make(chan struct{}),
	}
	entriesPerShard := quoteCacheMaxSize / quoteCacheShards
	for i := 0; i < quoteCacheShards; i++ {
		qc.shards[i].entries = make([]cacheEntry, entriesPerShard)
	}
	go qc.cleanupLoop()
	return qc
}

// Stop stops the cleanup goroutine
func (qc *QuoteCache) Stop() {
	close(qc.stopChan)
}

// makeKeyInline generates a fast cache key using inline FNV-1a (zero allocation)
func makeKeyInline(inputToken, outputToken common.Address, amount *big.Int, exactIn bool) uint64 {
	h := uint64(fnvOffset64)

	for _, b := range inputToken {
		h ^= uint64(b)
		h *= fnvPrime64
	}
	for _, b := range outputToken {
		h ^= uint64(b)
		h *= fnvPrime64
	}

	// Hash amount as uint64 if it fits, otherwise hash bytes
	if amount != nil && amount.IsUint64() {
		amountU64 := amount.Uint64()
		for i := 0; i < 8; i++ {
			h ^= (amountU64 >> (i * 8)) & 0xFF
			h *= fnvPrime64
		}
	} else if amount != nil {
		for _, b := range amount.Bytes() {
			h ^= uint64(b)
			h *= fnvPrime64
		}
	}

	if exactIn {
		h ^= 1
	}
	h *= fnvPrime64

	return h
}

// getShard returns the shard for a given key
func (qc *QuoteCache) getShard(key uint64) *cacheShard {
	return &qc.shards[key%quoteCacheShards]
}

func (qc *QuoteCache) Get(inputToken, outputToken common.Address, amount *big.Int, exactIn bool) *domain.Trade {
	key := makeKeyInline(inputToken, outputToken, amount, exactIn)
	now := qc.now().UnixNano()

	shard := qc.getShard(key)
	shard.mu.RLock()

	// Linear search in shard (good cache locality for small arrays)
	for i := 0; i < shard.size; i++ {
		entry := &shard.entries[i]
		if entry.key == key && now <= entry.expiry {
			atomic.StoreUint32(&entry.used, 1)
			trade := entry.trade
			shard.mu.RUnlock()
			return trade
		}
	}

	shard.mu.RUnlock()
	return nil
}

func (qc *QuoteCache) Set(inputToken, outputToken common.Address, amount *big.Int, exactIn bool, trade *domain.Trade) {
	key := makeKeyInline(inputToken, outputToken, amount, exactIn)
	expiry := qc.now().Add(qc.ttl).UnixNano()

	shard := qc.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	// Update in place if the key is already present
	for i := 0; i < shard.size; i++ {
		entry := &shard.entries[i]
		if entry.key == key {
			entry.trade = trade
			entry.expiry = expiry
			atomic.StoreUint32(&entry.used, 1)
			return
		}
	}

	entriesPerShard := len(shard.entries)

	if shard.size < entriesPerShard {
		entry := &shard.entries[shard.size]
		entry.key = key
		entry.trade = trade
		entry.expiry = expiry
		entry.used = 1
		shard.size++
		return
	}

	// Clock eviction: find an entry to evict
	for attempts := 0; attempts < entriesPerShard*2; attempts++ {
		entry := &shard.entries[shard.hand]
		shard.hand = (shard.hand + 1) % entriesPerShard

		now := qc.now().UnixNano()
		if atomic.LoadUint32(&entry.used) == 0 || now > entry.expiry {
			entry.key = key
			entry.trade = trade
			entry.expiry = expiry
			entry.used = 1
			return
		}

		// Clear used bit (second chance)
		atomic.StoreUint32(&entry.used, 0)
	}

	// Fallback: overwrite at current hand position
	entry := &shard.entries[shard.hand]
	entry.key = key
	entry.trade = trade
	entry.expiry = expiry
	entry.used = 1
	shard.hand = (shard.hand + 1) % entriesPerShard
}

// evictExpired marks expired entries as unused so Set reclaims them
func (qc *QuoteCache) evictExpired() {
	now := qc.now().UnixNano()

	for i := 0; i < quoteCacheShards; i++ {
		shard := &qc.shards[i]
		shard.mu.Lock()
		for j := 0; j < shard.size; j++ {
			entry := &shard.entries[j]
			if now > entry.expiry {
				atomic.StoreUint32(&entry.used, 0)
			}
		}
		shard.mu.Unlock()
	}
}

// Size returns current cache size across all shards
func (qc *QuoteCache) Size() int {
	total := 0
	for i := 0; i < quoteCacheShards; i++ {
		shard := &qc.shards[i]
		shard.mu.RLock()
		total += shard.size
		shard.mu.RUnlock()
	}
	return total
}

func (qc *QuoteCache) cleanupLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-qc.stopChan:
			return
		case <-ticker.C:
			qc.evictExpired()
			metrics.QuoteCacheSize.Set(float64(qc.Size()))
		}
	}
}
