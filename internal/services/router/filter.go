package router

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/hxuan190/quote-engine/internal/domain"
)

// TokenFeeSource reports transfer-fee metadata for tokens. Tokens without an
// entry are treated as fee-free.
type TokenFeeSource interface {
	GetTokenFees(token common.Address) (domain.TokenFees, bool)
}

// TransferFeeFilter drops concentrated pools that touch fee-on-transfer
// tokens. Concentrated quoting assumes the full input reaches the pool, so a
// token that skims a transfer fee makes those quotes overstate output. The
// other pool variants settle against measured reserves and stay routable.
type TransferFeeFilter struct {
	fees TokenFeeSource
}

func NewTransferFeeFilter(fees TokenFeeSource) *TransferFeeFilter {
	return &TransferFeeFilter{fees: fees}
}

func (f *TransferFeeFilter) Allow(pool *domain.Pool) bool {
	if pool.Type != domain.PoolTypeConcentrated {
		return true
	}
	if f.fees == nil {
		return true
	}
	return !f.tokenHasFee(pool.Token0.Address) && !f.tokenHasFee(pool.Token1.Address)
}

func (f *TransferFeeFilter) tokenHasFee(token common.Address) bool {
	fees, ok := f.fees.GetTokenFees(token)
	if !ok {
		return false
	}
	return fees.HasTransferFee()
}
