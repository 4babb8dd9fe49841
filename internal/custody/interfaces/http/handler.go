package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/tokenexchange/internal/custody/application"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"github.com/wyfcoding/tokenexchange/pkg/response"
)

// CustodyHandler 账本 HTTP 接口
type CustodyHandler struct {
	svc           *application.CustodyService
	allowDeposits bool
}

// NewCustodyHandler allowDeposits 为 false 时不注册入金路由
func NewCustodyHandler(svc *application.CustodyService, allowDeposits bool) *CustodyHandler {
	return &CustodyHandler{svc: svc, allowDeposits: allowDeposits}
}

func (h *CustodyHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api/v1/custody")
	{
		if h.allowDeposits {
			api.POST("/deposits", h.Deposit)
		}
		api.POST("/transfers", h.Transfer)
		api.GET("/balances/:account", h.Balance)
	}
}

// Deposit 入金，仅在 exchange.allow_deposits 打开时注册
func (h *CustodyHandler) Deposit(c *gin.Context) {
	var req application.DepositCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	bal, err := h.svc.Deposit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bal)
}

// Transfer 调用方向他人转账
func (h *CustodyHandler) Transfer(c *gin.Context) {
	caller := contextx.GetUserID(c.Request.Context())
	if caller == "" {
		response.ErrorWithStatus(c, http.StatusUnauthorized, "missing caller identity", "")
		return
	}
	var req application.TransferCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request data", err.Error())
		return
	}
	req.From = caller
	if err := h.svc.Transfer(c.Request.Context(), req); err != nil {
		logger.Warn(c.Request.Context(), "transfer rejected", "to", req.To, "error", err)
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"asset": req.Asset, "to": req.To, "amount": req.Amount})
}

// Balance 查询余额
func (h *CustodyHandler) Balance(c *gin.Context) {
	asset := c.Query("asset")
	if asset == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "asset parameter is required", "")
		return
	}
	bal, err := h.svc.Balance(c.Request.Context(), asset, c.Param("account"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, bal)
}
