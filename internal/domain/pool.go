package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type PoolRegistry map[common.Address]*Pool

type PoolType uint8

const (
	PoolTypeConstantProduct PoolType = iota
	PoolTypeConcentrated
	PoolTypeStable
	PoolTypeBin
)

func (p PoolType) String() string {
	switch p {
	case PoolTypeConstantProduct:
		return "V2"
	case PoolTypeConcentrated:
		return "V3"
	case PoolTypeStable:
		return "Stable"
	case PoolTypeBin:
		return "Bin"
	default:
		return "UNKNOWN"
	}
}

type PoolFlags uint64

const (
	FlagActive       PoolFlags = 1 << 0
	FlagReady        PoolFlags = 1 << 1
	FlagConstantProd PoolFlags = 1 << 2
	FlagConcentrated PoolFlags = 1 << 3
	FlagStable       PoolFlags = 1 << 4
	FlagBin          PoolFlags = 1 << 5
	FlagLowFee       PoolFlags = 1 << 6
)

const FlagReadyMask = FlagActive | FlagReady

// Pool is a snapshot of one liquidity pool. Token0 sorts before Token1 by
// canonical address. Quoting never mutates a Pool; post-trade state is
// returned separately.
type Pool struct {
	Address          common.Address `json:"address"`
	ChainID          uint64         `json:"chainId"`
	Type             PoolType       `json:"type"`
	Token0           Currency       `json:"token0"`
	Token1           Currency       `json:"token1"`
	FeeRate          uint32         `json:"feeRate"` // millionths of input
	Active           bool           `json:"active"`
	LastUpdatedBlock uint64         `json:"lastUpdatedBlock"`
	Reserve0         *big.Int       `json:"reserve0"`
	Reserve1         *big.Int       `json:"reserve1"`
	TypeSpecific     interface{}    `json:"-"`
	Flags            PoolFlags      `json:"-"`

	// uint64 shadow fields for zero-allocation liquidity ranking
	Reserve0U64 uint64 `json:"-"`
	Reserve1U64 uint64 `json:"-"`
}

func (p *Pool) IsReady() bool {
	return p.Flags&FlagReadyMask == FlagReadyMask
}

// Involves reports whether the pool touches the given currency.
func (p *Pool) Involves(c Currency) bool {
	return p.Token0.Equal(c) || p.Token1.Equal(c)
}

// OtherToken returns the counterpart of c in the pool.
func (p *Pool) OtherToken(c Currency) Currency {
	if p.Token0.Equal(c) {
		return p.Token1
	}
	return p.Token0
}

func (p *Pool) UpdateFlags() {
	p.Flags = 0
	if p.Active {
		p.Flags |= FlagActive
	}
	if p.hasVariantData() {
		p.Flags |= FlagReady
	}
	switch p.Type {
	case PoolTypeConstantProduct:
		p.Flags |= FlagConstantProd
	case PoolTypeConcentrated:
		p.Flags |= FlagConcentrated
	case PoolTypeStable:
		p.Flags |= FlagStable
	case PoolTypeBin:
		p.Flags |= FlagBin
	}
	if p.FeeRate < 500 {
		p.Flags |= FlagLowFee
	}
}

func (p *Pool) hasVariantData() bool {
	switch p.Type {
	case PoolTypeConstantProduct:
		return p.Reserve0 != nil && p.Reserve0.Sign() > 0 && p.Reserve1 != nil && p.Reserve1.Sign() > 0
	case PoolTypeConcentrated:
		d, ok := p.TypeSpecific.(*ConcentratedData)
		return ok && d != nil && d.SqrtPriceX96 != nil && d.SqrtPriceX96.Sign() > 0
	case PoolTypeStable:
		d, ok := p.TypeSpecific.(*StableData)
		return ok && d != nil && len(d.Balances) >= 2
	case PoolTypeBin:
		d, ok := p.TypeSpecific.(*BinData)
		return ok && d != nil && len(d.Bins) > 0
	default:
		return false
	}
}

func (p *Pool) SetActive(active bool) {
	p.Active = active
	if active {
		p.Flags |= FlagActive
	} else {
		p.Flags &^= FlagActive
	}
}

func (p *Pool) UpdateReserves(reserve0, reserve1 *big.Int) {
	p.Reserve0 = reserve0
	p.Reserve1 = reserve1
	p.SyncU64Reserves()
}

// SyncU64Reserves refreshes the uint64 shadow fields, clamping oversized
// reserves to max uint64. Call after loading a pool from persistence.
func (p *Pool) SyncU64Reserves() {
	p.Reserve0U64 = clampU64(p.Reserve0)
	p.Reserve1U64 = clampU64(p.Reserve1)
}

func clampU64(v *big.Int) uint64 {
	if v == nil {
		return 0
	}
	if v.IsUint64() {
		return v.Uint64()
	}
	return ^uint64(0)
}

// Tick is one initialized tick of a concentrated-liquidity pool.
type Tick struct {
	Index        int32    `json:"index"`
	LiquidityNet *big.Int `json:"liquidityNet"`
}

// ConcentratedData holds the tick-level state of a concentrated pool.
// Ticks are sorted ascending by index.
type ConcentratedData struct {
	TickSpacing  int32    `json:"tickSpacing"`
	CurrentTick  int32    `json:"currentTick"`
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96"`
	Liquidity    *big.Int `json:"liquidity"`
	Ticks        []Tick   `json:"ticks,omitempty"`
}

// Bin is one price bin of a discretized-liquidity pool.
type Bin struct {
	ID       uint32   `json:"id"`
	ReserveX *big.Int `json:"reserveX"`
	ReserveY *big.Int `json:"reserveY"`
}

// BinData holds the bin-level state of a discretized-liquidity pool.
// Bins are sorted ascending by ID.
type BinData struct {
	ActiveID uint32 `json:"activeId"`
	BinStep  uint16 `json:"binStep"`
	Bins     []Bin  `json:"bins,omitempty"`
}

// StableData holds the invariant state of a stable-swap pool. Index0/Index1
// map the pool's Token0/Token1 into Balances for pools with more than two
// coins.
type StableData struct {
	Balances  []*big.Int `json:"balances"`
	Amplifier uint64     `json:"amplifier"`
	Index0    int        `json:"index0"`
	Index1    int        `json:"index1"`
}
