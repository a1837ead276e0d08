package persistence

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/metrics"
)

const (
	PoolsBucket     = "pools"
	TokenFeesBucket = "tokenFees"

	DefaultDBPath = "./data/quote-engine.db"
)

type StoredCurrency struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	Symbol   string `json:"symbol,omitempty"`
	IsNative bool   `json:"isNative,omitempty"`
	Wrapped  string `json:"wrapped,omitempty"`
}

type StoredPool struct {
	Address          string         `json:"address"`
	ChainID          uint64         `json:"chainId"`
	Type             uint8          `json:"type"`
	Token0           StoredCurrency `json:"token0"`
	Token1           StoredCurrency `json:"token1"`
	FeeRate          uint32         `json:"feeRate"`
	Active           bool           `json:"active"`
	LastUpdatedBlock uint64         `json:"lastUpdatedBlock"`
	Reserve0         string         `json:"reserve0"`
	Reserve1         string         `json:"reserve1"`

	Concentrated *StoredConcentratedData `json:"concentrated,omitempty"`
	Stable       *StoredStableData       `json:"stable,omitempty"`
	Bin          *StoredBinData          `json:"bin,omitempty"`
}

type StoredTick struct {
	Index        int32  `json:"index"`
	LiquidityNet string `json:"liquidityNet"`
}

type StoredConcentratedData struct {
	TickSpacing  int32        `json:"tickSpacing"`
	CurrentTick  int32        `json:"currentTick"`
	SqrtPriceX96 string       `json:"sqrtPriceX96"`
	Liquidity    string       `json:"liquidity"`
	Ticks        []StoredTick `json:"ticks,omitempty"`
}

type StoredStableData struct {
	Balances  []string `json:"balances"`
	Amplifier uint64   `json:"amplifier"`
	Index0    int      `json:"index0"`
	Index1    int      `json:"index1"`
}

type StoredBin struct {
	ID       uint32 `json:"id"`
	ReserveX string `json:"reserveX"`
	ReserveY string `json:"reserveY"`
}

type StoredBinData struct {
	ActiveID uint32      `json:"activeId"`
	BinStep  uint16      `json:"binStep"`
	Bins     []StoredBin `json:"bins,omitempty"`
}

type StoredTokenFees struct {
	Token      string `json:"token"`
	BuyFeeBps  uint16 `json:"buyFeeBps"`
	SellFeeBps uint16 `json:"sellFeeBps"`
}

type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[quoteStorage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) SavePool(pool *domain.Pool) error {
	stored := poolToStored(pool)
	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal pool: %w", err)
	}

	metrics.PoolsPersisted.Inc()
	return s.db.Set(PoolsBucket, []byte(pool.Address.Hex()), data)
}

func (s *Storage) SavePoolBatch(pools []*domain.Pool) error {
	if len(pools) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for _, pool := range pools {
		stored := poolToStored(pool)
		data, err := sonic.Marshal(stored)
		if err != nil {
			return fmt.Errorf("failed to marshal pool %s: %w", pool.Address.Hex(), err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(PoolsBucket),
			Key:    []byte(pool.Address.Hex()),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add pool %s to batch: %w", pool.Address.Hex(), err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(pools)).Msg("[quoteStorage] FAILED to execute batch")
		return err
	}

	metrics.PoolsPersisted.Add(float64(len(pools)))
	log.Info().Int("count", len(pools)).Msg("[quoteStorage] saved pool batch")
	return nil
}

func (s *Storage) LoadAllPools() ([]*domain.Pool, error) {
	data, err := s.db.List(PoolsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	pools := make([]*domain.Pool, 0, len(data))
	unmarshalFailed := 0
	conversionFailed := 0

	for address, value := range data {
		var stored StoredPool
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("address", address).Err(err).Msg("[quoteStorage] failed to unmarshal pool, skipping")
			unmarshalFailed++
			continue
		}

		pool, err := storedToPool(&stored)
		if err != nil {
			log.Error().Str("address", address).Err(err).Msg("[quoteStorage] failed to convert stored pool, skipping")
			conversionFailed++
			continue
		}

		pools = append(pools, pool)
	}

	if unmarshalFailed > 0 || conversionFailed > 0 {
		log.Error().
			Int("total_in_db", len(data)).
			Int("loaded", len(pools)).
			Int("unmarshal_failed", unmarshalFailed).
			Int("conversion_failed", conversionFailed).
			Msg("[quoteStorage] pool loading completed with errors")
	} else {
		log.Info().
			Int("total_in_db", len(data)).
			Int("loaded", len(pools)).
			Msg("[quoteStorage] pool loading completed successfully")
	}

	metrics.PoolsRestored.Set(float64(len(pools)))
	return pools, nil
}

func (s *Storage) SaveTokenFees(fees domain.TokenFees) error {
	stored := StoredTokenFees{
		Token:      fees.Token.Hex(),
		BuyFeeBps:  fees.BuyFeeBps,
		SellFeeBps: fees.SellFeeBps,
	}
	data, err := sonic.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal token fees: %w", err)
	}

	return s.db.Set(TokenFeesBucket, []byte(fees.Token.Hex()), data)
}

func (s *Storage) LoadAllTokenFees() (map[common.Address]domain.TokenFees, error) {
	data, err := s.db.List(TokenFeesBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list token fees: %w", err)
	}

	fees := make(map[common.Address]domain.TokenFees, len(data))
	for address, value := range data {
		var stored StoredTokenFees
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Warn().Str("address", address).Err(err).Msg("[quoteStorage] failed to unmarshal token fees, skipping")
			continue
		}
		if !common.IsHexAddress(stored.Token) {
			log.Warn().Str("address", stored.Token).Msg("[quoteStorage] invalid token address in fees, skipping")
			continue
		}
		token := common.HexToAddress(stored.Token)
		fees[token] = domain.TokenFees{
			Token:      token,
			BuyFeeBps:  stored.BuyFeeBps,
			SellFeeBps: stored.SellFeeBps,
		}
	}

	return fees, nil
}

func (s *Storage) GetPoolCount() (int, error) {
	data, err := s.db.List(PoolsBucket)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func poolToStored(pool *domain.Pool) *StoredPool {
	stored := &StoredPool{
		Address:          pool.Address.Hex(),
		ChainID:          pool.ChainID,
		Type:             uint8(pool.Type),
		Token0:           currencyToStored(pool.Token0),
		Token1:           currencyToStored(pool.Token1),
		FeeRate:          pool.FeeRate,
		Active:           pool.Active,
		LastUpdatedBlock: pool.LastUpdatedBlock,
		Reserve0:         bigString(pool.Reserve0),
		Reserve1:         bigString(pool.Reserve1),
	}

	switch pool.Type {
	case domain.PoolTypeConcentrated:
		if d, ok := pool.TypeSpecific.(*domain.ConcentratedData); ok && d != nil {
			ticks := make([]StoredTick, len(d.Ticks))
			for i, t := range d.Ticks {
				ticks[i] = StoredTick{Index: t.Index, LiquidityNet: bigString(t.LiquidityNet)}
			}
			stored.Concentrated = &StoredConcentratedData{
				TickSpacing:  d.TickSpacing,
				CurrentTick:  d.CurrentTick,
				SqrtPriceX96: bigString(d.SqrtPriceX96),
				Liquidity:    bigString(d.Liquidity),
				Ticks:        ticks,
			}
		}
	case domain.PoolTypeStable:
		if d, ok := pool.TypeSpecific.(*domain.StableData); ok && d != nil {
			balances := make([]string, len(d.Balances))
			for i, b := range d.Balances {
				balances[i] = bigString(b)
			}
			stored.Stable = &StoredStableData{
				Balances:  balances,
				Amplifier: d.Amplifier,
				Index0:    d.Index0,
				Index1:    d.Index1,
			}
		}
	case domain.PoolTypeBin:
		if d, ok := pool.TypeSpecific.(*domain.BinData); ok && d != nil {
			bins := make([]StoredBin, len(d.Bins))
			for i, b := range d.Bins {
				bins[i] = StoredBin{ID: b.ID, ReserveX: bigString(b.ReserveX), ReserveY: bigString(b.ReserveY)}
			}
			stored.Bin = &StoredBinData{
				ActiveID: d.ActiveID,
				BinStep:  d.BinStep,
				Bins:     bins,
			}
		}
	}

	return stored
}

func storedToPool(stored *StoredPool) (*domain.Pool, error) {
	if !common.IsHexAddress(stored.Address) {
		return nil, fmt.Errorf("invalid address %q", stored.Address)
	}

	token0, err := storedToCurrency(stored.Token0)
	if err != nil {
		return nil, fmt.Errorf("invalid token0: %w", err)
	}
	token1, err := storedToCurrency(stored.Token1)
	if err != nil {
		return nil, fmt.Errorf("invalid token1: %w", err)
	}

	pool := &domain.Pool{
		Address:          common.HexToAddress(stored.Address),
		ChainID:          stored.ChainID,
		Type:             domain.PoolType(stored.Type),
		Token0:           token0,
		Token1:           token1,
		FeeRate:          stored.FeeRate,
		Active:           stored.Active,
		LastUpdatedBlock: stored.LastUpdatedBlock,
		Reserve0:         parseBig(stored.Reserve0),
		Reserve1:         parseBig(stored.Reserve1),
	}

	switch pool.Type {
	case domain.PoolTypeConcentrated:
		if stored.Concentrated != nil {
			d := stored.Concentrated
			ticks := make([]domain.Tick, len(d.Ticks))
			for i, t := range d.Ticks {
				ticks[i] = domain.Tick{Index: t.Index, LiquidityNet: parseBig(t.LiquidityNet)}
			}
			pool.TypeSpecific = &domain.ConcentratedData{
				TickSpacing:  d.TickSpacing,
				CurrentTick:  d.CurrentTick,
				SqrtPriceX96: parseBig(d.SqrtPriceX96),
				Liquidity:    parseBig(d.Liquidity),
				Ticks:        ticks,
			}
		}
	case domain.PoolTypeStable:
		if stored.Stable != nil {
			d := stored.Stable
			balances := make([]*big.Int, len(d.Balances))
			for i, b := range d.Balances {
				balances[i] = parseBig(b)
			}
			pool.TypeSpecific = &domain.StableData{
				Balances:  balances,
				Amplifier: d.Amplifier,
				Index0:    d.Index0,
				Index1:    d.Index1,
			}
		}
	case domain.PoolTypeBin:
		if stored.Bin != nil {
			d := stored.Bin
			bins := make([]domain.Bin, len(d.Bins))
			for i, b := range d.Bins {
				bins[i] = domain.Bin{ID: b.ID, ReserveX: parseBig(b.ReserveX), ReserveY: parseBig(b.ReserveY)}
			}
			pool.TypeSpecific = &domain.BinData{
				ActiveID: d.ActiveID,
				BinStep:  d.BinStep,
				Bins:     bins,
			}
		}
	}

	pool.UpdateFlags()
	pool.SyncU64Reserves()
	return pool, nil
}

func currencyToStored(c domain.Currency) StoredCurrency {
	wrapped := ""
	if c.Wrapped != (common.Address{}) {
		wrapped = c.Wrapped.Hex()
	}
	return StoredCurrency{
		ChainID:  c.ChainID,
		Address:  c.Address.Hex(),
		Decimals: c.Decimals,
		Symbol:   c.Symbol,
		IsNative: c.IsNative,
		Wrapped:  wrapped,
	}
}

func storedToCurrency(s StoredCurrency) (domain.Currency, error) {
	if !common.IsHexAddress(s.Address) {
		return domain.Currency{}, fmt.Errorf("invalid currency address %q", s.Address)
	}
	c := domain.Currency{
		ChainID:  s.ChainID,
		Address:  common.HexToAddress(s.Address),
		Decimals: s.Decimals,
		Symbol:   s.Symbol,
		IsNative: s.IsNative,
	}
	if s.Wrapped != "" && common.IsHexAddress(s.Wrapped) {
		c.Wrapped = common.HexToAddress(s.Wrapped)
	}
	return c, nil
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) *big.Int {
	v := new(big.Int)
	v.SetString(s, 10)
	return v
}
