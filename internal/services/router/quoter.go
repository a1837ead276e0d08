package router

import (
	"fmt"
	"math/big"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// QuoterFunc is a function that can quote a pool
type QuoterFunc func(pool *domain.Pool, amount *big.Int, zeroForOne bool, exactIn bool) (*domain.SwapQuote, error)

// Quoter dispatches quote requests to the variant-specific math. Quoting
// reads the pool snapshot and returns post-trade state separately; the
// candidate pool is never mutated.
type Quoter struct{}

func NewQuoter() *Quoter {
	return &Quoter{}
}

// GetQuote quotes a single pool for the given direction and trade mode.
func (q *Quoter) GetQuote(pool *domain.Pool, amount *big.Int, zeroForOne bool, exactIn bool) (*domain.SwapQuote, error) {
	if pool == nil {
		return nil, ErrInvalidPool
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	switch pool.Type {
	case domain.PoolTypeConstantProduct:
		return q.quoteConstantProduct(pool, amount, zeroForOne, exactIn)
	case domain.PoolTypeConcentrated:
		return q.quoteConcentrated(pool, amount, zeroForOne, exactIn)
	case domain.PoolTypeStable:
		return q.quoteStable(pool, amount, zeroForOne, exactIn)
	case domain.PoolTypeBin:
		return q.quoteBin(pool, amount, zeroForOne, exactIn)
	default:
		return nil, fmt.Errorf("%w: unknown pool type %d", ErrInvalidPool, pool.Type)
	}
}
