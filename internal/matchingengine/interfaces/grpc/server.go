// Package grpc 撮合引擎 gRPC 接口，消息体为 google.protobuf.Struct
package grpc

import (
	"context"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/application"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/grpcx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName 服务全名
const ServiceName = "exchange.v1.MatchingService"

// Handler gRPC 处理器
type Handler struct {
	service *application.MatchingService
}

// NewHandler 创建 gRPC 处理器实例
func NewHandler(service *application.MatchingService) *Handler {
	return &Handler{service: service}
}

// Register 注册到 gRPC 服务器
func (h *Handler) Register(r grpc.ServiceRegistrar) {
	grpcx.Register(r, grpcx.NewServiceDesc(ServiceName,
		grpcx.Method{Name: "OpenOrderBook", Call: h.OpenOrderBook},
		grpcx.Method{Name: "CreateLimitOrder", Call: h.CreateLimitOrder},
		grpcx.Method{Name: "CreateMarketOrder", Call: h.CreateMarketOrder},
		grpcx.Method{Name: "MatchOrders", Call: h.MatchOrders},
		grpcx.Method{Name: "ExecuteTrade", Call: h.ExecuteTrade},
		grpcx.Method{Name: "CancelOrder", Call: h.CancelOrder},
		grpcx.Method{Name: "GetOrder", Call: h.GetOrder},
		grpcx.Method{Name: "GetOrderBook", Call: h.GetOrderBook},
		grpcx.Method{Name: "GetMarketDepth", Call: h.GetMarketDepth},
		grpcx.Method{Name: "GetTrade", Call: h.GetTrade},
	))
}

func (h *Handler) OpenOrderBook(ctx context.Context, req *grpcx.Request) (any, error) {
	return h.service.OpenOrderBook(ctx, req.String("instrument"))
}

func (h *Handler) CreateLimitOrder(ctx context.Context, req *grpcx.Request) (any, error) {
	owner, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := req.Uint("amount")
	if err != nil {
		return nil, err
	}
	price, err := req.Uint("price")
	if err != nil {
		return nil, err
	}
	return h.service.CreateLimitOrder(ctx, application.CreateLimitOrderCommand{
		Owner:      owner,
		Instrument: req.String("instrument"),
		Side:       req.String("side"),
		Amount:     amount,
		Price:      price,
	})
}

func (h *Handler) CreateMarketOrder(ctx context.Context, req *grpcx.Request) (any, error) {
	owner, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := req.Uint("amount")
	if err != nil {
		return nil, err
	}
	return h.service.CreateMarketOrder(ctx, application.CreateMarketOrderCommand{
		Owner:      owner,
		Instrument: req.String("instrument"),
		Side:       req.String("side"),
		Amount:     amount,
	})
}

func (h *Handler) MatchOrders(ctx context.Context, req *grpcx.Request) (any, error) {
	cmd, err := matchCommand(req)
	if err != nil {
		return nil, err
	}
	return h.service.MatchOrders(ctx, cmd)
}

func (h *Handler) ExecuteTrade(ctx context.Context, req *grpcx.Request) (any, error) {
	cmd, err := matchCommand(req)
	if err != nil {
		return nil, err
	}
	return h.service.ExecuteTrade(ctx, cmd.Instrument, cmd.SellOrderID, cmd.BuyOrderID, cmd.Amount)
}

func (h *Handler) CancelOrder(ctx context.Context, req *grpcx.Request) (any, error) {
	owner, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := req.Uint("order_id")
	if err != nil {
		return nil, err
	}
	return h.service.CancelOrder(ctx, application.CancelOrderCommand{Caller: owner, Instrument: req.String("instrument"), OrderID: id})
}

func (h *Handler) GetOrder(ctx context.Context, req *grpcx.Request) (any, error) {
	id, err := req.Uint("order_id")
	if err != nil {
		return nil, err
	}
	return h.service.GetOrder(ctx, req.String("instrument"), id)
}

func (h *Handler) GetOrderBook(ctx context.Context, req *grpcx.Request) (any, error) {
	return h.service.GetOrderBook(ctx, req.String("instrument"))
}

func (h *Handler) GetMarketDepth(ctx context.Context, req *grpcx.Request) (any, error) {
	return h.service.GetMarketDepth(ctx, req.String("instrument"), req.Int("levels", 20))
}

func (h *Handler) GetTrade(ctx context.Context, req *grpcx.Request) (any, error) {
	id, err := req.Uint("trade_id")
	if err != nil {
		return nil, err
	}
	return h.service.GetTrade(ctx, id)
}

func matchCommand(req *grpcx.Request) (application.MatchOrdersCommand, error) {
	cmd := application.MatchOrdersCommand{Instrument: req.String("instrument")}
	var err error
	if cmd.BuyOrderID, err = req.Uint("buy_order_id"); err != nil {
		return cmd, err
	}
	if cmd.SellOrderID, err = req.Uint("sell_order_id"); err != nil {
		return cmd, err
	}
	cmd.Amount, err = req.Uint("amount")
	return cmd, err
}

// caller 调用方身份由拦截器从 x-user-id 元数据写入 context
func caller(ctx context.Context) (string, error) {
	uid := contextx.GetUserID(ctx)
	if uid == "" {
		return "", status.Error(codes.Unauthenticated, "missing caller identity")
	}
	return uid, nil
}
