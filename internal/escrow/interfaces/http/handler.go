// Package http 托管 HTTP 接口
package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tokenexchange/internal/escrow/application"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/response"
)

// EscrowHandler 托管 HTTP 处理器
type EscrowHandler struct {
	svc *application.EscrowService
}

// NewEscrowHandler 创建 HTTP 处理器实例
func NewEscrowHandler(svc *application.EscrowService) *EscrowHandler {
	return &EscrowHandler{svc: svc}
}

// RegisterRoutes 注册路由
func (h *EscrowHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/escrows")
	{
		api.POST("", h.CreateEscrow)
		api.GET("", h.ListMyEscrows)
		api.GET("/:id", h.GetEscrow)
		api.POST("/:id/release", h.ReleaseEscrow)
		api.POST("/:id/cancel", h.CancelEscrow)
	}
}

// CreateEscrow 付款方取自 X-User-ID
func (h *EscrowHandler) CreateEscrow(c *gin.Context) {
	payer, ok := caller(c)
	if !ok {
		return
	}
	var req application.CreateEscrowCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	req.Payer = payer
	escrow, err := h.svc.CreateEscrow(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, escrow)
}

func (h *EscrowHandler) ListMyEscrows(c *gin.Context) {
	party, ok := caller(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	escrows, total, err := h.svc.ListEscrowsByParty(c.Request.Context(), party, limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"escrows": escrows, "total": total})
}

func (h *EscrowHandler) GetEscrow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	escrow, err := h.svc.GetEscrow(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, escrow)
}

func (h *EscrowHandler) ReleaseEscrow(c *gin.Context) {
	h.transition(c, h.svc.ReleaseEscrow)
}

func (h *EscrowHandler) CancelEscrow(c *gin.Context) {
	h.transition(c, h.svc.CancelEscrow)
}

func (h *EscrowHandler) transition(c *gin.Context, fn func(ctx context.Context, caller string, id uint64) (*application.EscrowDTO, error)) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	escrow, err := fn(c.Request.Context(), who, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, escrow)
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
