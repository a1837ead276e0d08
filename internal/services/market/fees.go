package market

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/quote-engine/internal/domain"
)

const numShards = 16

// TokenFeeRegistry is a sharded map of transfer-fee metadata keyed by token
// address. Sharding keeps lock contention low while fee probes and quote
// requests read concurrently.
type TokenFeeRegistry struct {
	shards [numShards]feeShard
}

type feeShard struct {
	mu   sync.RWMutex
	fees map[common.Address]domain.TokenFees
}

func NewTokenFeeRegistry() *TokenFeeRegistry {
	r := &TokenFeeRegistry{}
	for i := 0; i < numShards; i++ {
		r.shards[i].fees = make(map[common.Address]domain.TokenFees)
	}
	return r
}

func (r *TokenFeeRegistry) getShard(key common.Address) *feeShard {
	return &r.shards[key[0]%numShards]
}

// GetTokenFees retrieves fee metadata for a token.
func (r *TokenFeeRegistry) GetTokenFees(token common.Address) (domain.TokenFees, bool) {
	shard := r.getShard(token)
	shard.mu.RLock()
	fees, ok := shard.fees[token]
	shard.mu.RUnlock()
	return fees, ok
}

// Set stores fee metadata for a token.
func (r *TokenFeeRegistry) Set(fees domain.TokenFees) {
	shard := r.getShard(fees.Token)
	shard.mu.Lock()
	shard.fees[fees.Token] = fees
	shard.mu.Unlock()
}

// Delete removes fee metadata for a token.
func (r *TokenFeeRegistry) Delete(token common.Address) {
	shard := r.getShard(token)
	shard.mu.Lock()
	delete(shard.fees, token)
	shard.mu.Unlock()
}

// Len returns total count across all shards.
func (r *TokenFeeRegistry) Len() int {
	total := 0
	for i := 0; i < numShards; i++ {
		r.shards[i].mu.RLock()
		total += len(r.shards[i].fees)
		r.shards[i].mu.RUnlock()
	}
	return total
}

// Range iterates over all entries (acquires locks per shard).
func (r *TokenFeeRegistry) Range(f func(fees domain.TokenFees) bool) {
	for i := 0; i < numShards; i++ {
		r.shards[i].mu.RLock()
		for _, v := range r.shards[i].fees {
			if !f(v) {
				r.shards[i].mu.RUnlock()
				return
			}
		}
		r.shards[i].mu.RUnlock()
	}
}
