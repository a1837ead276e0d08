package http

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	icommon "github.com/hxuan190/quote-engine/internal/common"
	"github.com/hxuan190/quote-engine/internal/domain"
	"github.com/hxuan190/quote-engine/internal/engine"
	"github.com/hxuan190/quote-engine/internal/http/httputil"
)

type PoolHandler struct {
	engineSvc *engine.Service
}

func NewPoolHandler(engineSvc *engine.Service) *PoolHandler {
	return &PoolHandler{engineSvc: engineSvc}
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/stats", h.getStats)
	pub.GET("/list", h.listPools)
	pub.GET("/:address", h.getPool)

	admin.POST("", h.upsertPool)
	admin.DELETE("/:address", h.removePool)
	admin.POST("/fees/:token", h.probeTokenFees)
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

// PoolStatsResponse contains aggregated statistics about tracked pools.
type PoolStatsResponse struct {
	// Total number of pools in the graph, routable or not.
	PoolCount int `json:"pool_count"`

	// Number of pools currently eligible for routing.
	ReadyPoolCount int `json:"ready_pool_count"`
}

func (h *PoolHandler) getStats(c *gin.Context) {
	total, ready := h.engineSvc.GetStats()
	httputil.Success(c, PoolStatsResponse{
		PoolCount:      total,
		ReadyPoolCount: ready,
	})
}

// PoolInfo contains basic information about a liquidity pool.
type PoolInfo struct {
	Address string `json:"address"`

	// Pool variant: "V2", "V3", "Stable" or "Bin".
	Type string `json:"type"`

	Token0 string `json:"token0"`
	Token1 string `json:"token1"`
	Active bool   `json:"active"`
}

// PoolListResponse contains a paginated list of pools.
type PoolListResponse struct {
	Pools []PoolInfo `json:"pools"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Pages int        `json:"pages"`
}

func (h *PoolHandler) listPools(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	allPools := h.engineSvc.GetGraph().GetAllPools()
	total := len(allPools)

	pages := (total + limit - 1) / limit
	offset := (page - 1) * limit
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	pools := make([]PoolInfo, 0, end-offset)
	for _, pool := range allPools[offset:end] {
		pools = append(pools, PoolInfo{
			Address: pool.Address.Hex(),
			Type:    pool.Type.String(),
			Token0:  pool.Token0.Address.Hex(),
			Token1:  pool.Token1.Address.Hex(),
			Active:  pool.Active,
		})
	}

	httputil.Success(c, PoolListResponse{
		Pools: pools,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	})
}

// PoolDetailResponse contains the full state of a specific pool.
type PoolDetailResponse struct {
	Address string `json:"address"`
	Type    string `json:"type"`
	ChainID uint64 `json:"chain_id"`

	Token0 string `json:"token0"`
	Token1 string `json:"token1"`

	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1"`

	// Fee rate in millionths of the input amount (3000 = 0.3%).
	FeeRate uint32 `json:"fee_rate"`

	Active           bool   `json:"active"`
	LastUpdatedBlock uint64 `json:"last_updated_block"`
}

func (h *PoolHandler) getPool(c *gin.Context) {
	address := c.Param("address")
	pool := h.engineSvc.GetPoolByAddress(address)

	if pool == nil {
		httputil.HandleError(c, icommon.HTTPErrorNotFound("pool not found"))
		return
	}

	reserve0, reserve1 := "0", "0"
	if pool.Reserve0 != nil {
		reserve0 = pool.Reserve0.String()
	}
	if pool.Reserve1 != nil {
		reserve1 = pool.Reserve1.String()
	}

	httputil.Success(c, PoolDetailResponse{
		Address:          pool.Address.Hex(),
		Type:             pool.Type.String(),
		ChainID:          pool.ChainID,
		Token0:           pool.Token0.Address.Hex(),
		Token1:           pool.Token1.Address.Hex(),
		Reserve0:         reserve0,
		Reserve1:         reserve1,
		FeeRate:          pool.FeeRate,
		Active:           pool.Active,
		LastUpdatedBlock: pool.LastUpdatedBlock,
	})
}

func (h *PoolHandler) upsertPool(c *gin.Context) {
	var pool domain.Pool
	if err := c.ShouldBindJSON(&pool); err != nil {
		httputil.BadRequest(c, "invalid pool payload: "+err.Error())
		return
	}
	if pool.Address == (common.Address{}) {
		httputil.BadRequest(c, "pool address is required")
		return
	}

	if err := h.engineSvc.GetMarket().UpsertPool(&pool); err != nil {
		httputil.BadRequest(c, "pool rejected: "+err.Error())
		return
	}
	httputil.Success(c, gin.H{"address": pool.Address.Hex()})
}

func (h *PoolHandler) removePool(c *gin.Context) {
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		httputil.BadRequest(c, "invalid pool address")
		return
	}
	h.engineSvc.GetMarket().RemovePool(common.HexToAddress(address))
	httputil.Success(c, gin.H{"removed": address})
}

func (h *PoolHandler) probeTokenFees(c *gin.Context) {
	token := c.Param("token")
	if !common.IsHexAddress(token) {
		httputil.BadRequest(c, "invalid token address")
		return
	}

	fees, err := h.engineSvc.GetMarket().ProbeTokenFees(c.Request.Context(), common.HexToAddress(token))
	if err != nil {
		httputil.HandleError(c, icommon.HTTPErrorUnavailable("fee probe failed: "+err.Error()))
		return
	}
	httputil.Success(c, gin.H{
		"token":      fees.Token.Hex(),
		"buyFeeBps":  fees.BuyFeeBps,
		"sellFeeBps": fees.SellFeeBps,
	})
}
