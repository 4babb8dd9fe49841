// Package http 持仓与组合 HTTP 接口
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tokenexchange/internal/portfolio/application"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/response"
)

// PortfolioHandler 持仓 HTTP 处理器
type PortfolioHandler struct {
	svc *application.PortfolioService
}

// NewPortfolioHandler 创建 HTTP 处理器实例
func NewPortfolioHandler(svc *application.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{svc: svc}
}

// RegisterRoutes 注册路由。用户身份均取自 X-User-ID
func (h *PortfolioHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/portfolio")
	{
		api.GET("", h.GetPortfolio)
		api.POST("/refresh", h.RefreshPortfolio)
		api.GET("/holdings", h.ListHoldings)
		api.GET("/holdings/:instrument", h.GetHolding)
		api.POST("/holdings/acquire", h.AcquireHolding)
		api.POST("/holdings/dispose", h.DisposeHolding)
		api.POST("/marks", h.MarkToMarket)
	}
}

type markRequest struct {
	Instrument string `json:"instrument" binding:"required"`
	Price      uint64 `json:"price"`
}

func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.svc.GetPortfolio(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

func (h *PortfolioHandler) RefreshPortfolio(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	p, err := h.svc.RefreshPortfolio(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, p)
}

func (h *PortfolioHandler) ListHoldings(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	holdings, err := h.svc.ListHoldings(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, holdings)
}

func (h *PortfolioHandler) GetHolding(c *gin.Context) {
	user, ok := caller(c)
	if !ok {
		return
	}
	holding, err := h.svc.GetHolding(c.Request.Context(), user, c.Param("instrument"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, holding)
}

// AcquireHolding 手工登记买入，例如发行或场外转入
func (h *PortfolioHandler) AcquireHolding(c *gin.Context) {
	h.position(c, h.svc.AcquireHolding)
}

func (h *PortfolioHandler) DisposeHolding(c *gin.Context) {
	h.position(c, h.svc.DisposeHolding)
}

func (h *PortfolioHandler) position(c *gin.Context, fn func(context.Context, application.PositionCommand) (*application.HoldingDTO, error)) {
	user, ok := caller(c)
	if !ok {
		return
	}
	var req application.PositionCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	req.User = user
	holding, err := fn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, holding)
}

func (h *PortfolioHandler) MarkToMarket(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	n, err := h.svc.MarkToMarket(c.Request.Context(), req.Instrument, req.Price)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"instrument": req.Instrument, "price": req.Price, "holdings": n})
}

func caller(c *gin.Context) (string, bool) {
	id := contextx.GetUserID(c.Request.Context())
	if id == "" {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "missing caller identity", "")
		return "", false
	}
	return id, true
}
