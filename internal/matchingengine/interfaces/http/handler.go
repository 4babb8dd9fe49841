// Package http 撮合引擎 HTTP 接口
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tokenexchange/internal/matchingengine/application"
	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/response"
)

// MatchingHandler 撮合 HTTP 处理器
type MatchingHandler struct {
	svc *application.MatchingService
}

// NewMatchingHandler 创建 HTTP 处理器实例
func NewMatchingHandler(svc *application.MatchingService) *MatchingHandler {
	return &MatchingHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *MatchingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/exchange")
	{
		api.POST("/orderbooks", h.OpenOrderBook)
		api.GET("/orderbooks", h.ListOrderBooks)
		api.GET("/orderbooks/:instrument", h.GetOrderBook)
		api.GET("/orderbooks/:instrument/depth", h.GetMarketDepth)
		api.GET("/orderbooks/:instrument/trades", h.ListTrades)

		api.POST("/orders/limit", h.CreateLimitOrder)
		api.POST("/orders/market", h.CreateMarketOrder)
		api.GET("/orders", h.ListMyOrders)
		api.GET("/orders/:instrument/:id", h.GetOrder)
		api.DELETE("/orders/:instrument/:id", h.CancelOrder)

		api.POST("/matches", h.MatchOrders)
		api.GET("/trades/:id", h.GetTrade)

		// 基础路径：仅限价单
		api.POST("/basic/orders", h.CreateBasicOrder)
		api.POST("/basic/trades", h.ExecuteTrade)
	}
}

type openOrderBookRequest struct {
	Instrument string `json:"instrument" binding:"required"`
}

type basicOrderRequest struct {
	Instrument string `json:"instrument" binding:"required"`
	Side       string `json:"side" binding:"required"`
	Amount     uint64 `json:"amount"`
	Price      uint64 `json:"price"`
}

func (h *MatchingHandler) OpenOrderBook(c *gin.Context) {
	var req openOrderBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	book, err := h.svc.OpenOrderBook(c.Request.Context(), req.Instrument)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, book)
}

func (h *MatchingHandler) ListOrderBooks(c *gin.Context) {
	books, err := h.svc.ListOrderBooks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, books)
}

func (h *MatchingHandler) GetOrderBook(c *gin.Context) {
	book, err := h.svc.GetOrderBook(c.Request.Context(), c.Param("instrument"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, book)
}

// GetMarketDepth levels 默认 20
func (h *MatchingHandler) GetMarketDepth(c *gin.Context) {
	levels, _ := strconv.Atoi(c.DefaultQuery("levels", "20"))
	depth, err := h.svc.GetMarketDepth(c.Request.Context(), c.Param("instrument"), levels)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, depth)
}

func (h *MatchingHandler) ListTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	trades, err := h.svc.ListTrades(c.Request.Context(), c.Param("instrument"), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, trades)
}

// CreateLimitOrder 限价下单，下单人取自 X-User-ID
func (h *MatchingHandler) CreateLimitOrder(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req application.CreateLimitOrderCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	req.Owner = owner
	res, err := h.svc.CreateLimitOrder(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MatchingHandler) CreateMarketOrder(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req application.CreateMarketOrderCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	req.Owner = owner
	res, err := h.svc.CreateMarketOrder(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MatchingHandler) CreateBasicOrder(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	var req basicOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		response.Error(c, err)
		return
	}

	var res *application.CreateOrderResult
	if side == domain.SideSell {
		res, err = h.svc.CreateSellOrder(c.Request.Context(), owner, req.Instrument, req.Amount, req.Price)
	} else {
		res, err = h.svc.CreateBuyOrder(c.Request.Context(), owner, req.Instrument, req.Amount, req.Price)
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MatchingHandler) ListMyOrders(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	orders, total, err := h.svc.ListOrdersByOwner(c.Request.Context(), owner, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"orders": orders, "total": total})
}

func (h *MatchingHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	order, err := h.svc.GetOrder(c.Request.Context(), c.Param("instrument"), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, order)
}

// CancelOrder 撤单，只有下单人可以撤销
func (h *MatchingHandler) CancelOrder(c *gin.Context) {
	owner, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := h.svc.CancelOrder(c.Request.Context(), application.CancelOrderCommand{
		Caller:     owner,
		Instrument: c.Param("instrument"),
		OrderID:    id,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

func (h *MatchingHandler) MatchOrders(c *gin.Context) {
	var req application.MatchOrdersCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	trade, err := h.svc.MatchOrders(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, trade)
}

func (h *MatchingHandler) ExecuteTrade(c *gin.Context) {
	var req application.MatchOrdersCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	trade, err := h.svc.ExecuteTrade(c.Request.Context(), req.Instrument, req.SellOrderID, req.BuyOrderID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, trade)
}

func (h *MatchingHandler) GetTrade(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	trade, err := h.svc.GetTrade(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, trade)
}

func caller(c *gin.Context) (string, bool) {
	id := contextx.GetUserID(c.Request.Context())
	if id == "" {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "missing caller identity", "")
		return "", false
	}
	return id, true
}

func pathID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid id", err.Error())
		return 0, false
	}
	return id, true
}
