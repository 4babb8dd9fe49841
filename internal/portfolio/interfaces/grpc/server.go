// Package grpc 持仓与组合 gRPC 接口
package grpc

import (
	"context"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/application"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/grpcx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName 服务全名
const ServiceName = "exchange.v1.PortfolioService"

// Handler gRPC 处理器
type Handler struct {
	service *application.PortfolioService
}

// NewHandler 创建 gRPC 处理器实例
func NewHandler(service *application.PortfolioService) *Handler {
	return &Handler{service: service}
}

// Register 注册到 gRPC 服务器
func (h *Handler) Register(r grpc.ServiceRegistrar) {
	grpcx.Register(r, grpcx.NewServiceDesc(ServiceName,
		grpcx.Method{Name: "AcquireHolding", Call: h.AcquireHolding},
		grpcx.Method{Name: "DisposeHolding", Call: h.DisposeHolding},
		grpcx.Method{Name: "MarkToMarket", Call: h.MarkToMarket},
		grpcx.Method{Name: "RefreshPortfolio", Call: h.RefreshPortfolio},
		grpcx.Method{Name: "GetHolding", Call: h.GetHolding},
		grpcx.Method{Name: "ListHoldings", Call: h.ListHoldings},
		grpcx.Method{Name: "GetPortfolio", Call: h.GetPortfolio},
	))
}

func (h *Handler) AcquireHolding(ctx context.Context, req *grpcx.Request) (any, error) {
	cmd, err := position(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.service.AcquireHolding(ctx, cmd)
}

func (h *Handler) DisposeHolding(ctx context.Context, req *grpcx.Request) (any, error) {
	cmd, err := position(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.service.DisposeHolding(ctx, cmd)
}

func (h *Handler) MarkToMarket(ctx context.Context, req *grpcx.Request) (any, error) {
	instrument, err := req.MustField("instrument")
	if err != nil {
		return nil, err
	}
	price, err := req.Uint("price")
	if err != nil {
		return nil, err
	}
	n, err := h.service.MarkToMarket(ctx, instrument, price)
	if err != nil {
		return nil, err
	}
	return map[string]any{"instrument": instrument, "price": price, "holdings": n}, nil
}

func (h *Handler) RefreshPortfolio(ctx context.Context, _ *grpcx.Request) (any, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return h.service.RefreshPortfolio(ctx, user)
}

func (h *Handler) GetHolding(ctx context.Context, req *grpcx.Request) (any, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return h.service.GetHolding(ctx, user, req.String("instrument"))
}

func (h *Handler) ListHoldings(ctx context.Context, _ *grpcx.Request) (any, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	holdings, err := h.service.ListHoldings(ctx, user)
	if err != nil {
		return nil, err
	}
	return map[string]any{"holdings": holdings}, nil
}

func (h *Handler) GetPortfolio(ctx context.Context, _ *grpcx.Request) (any, error) {
	user, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	return h.service.GetPortfolio(ctx, user)
}

func position(ctx context.Context, req *grpcx.Request) (application.PositionCommand, error) {
	user, err := caller(ctx)
	if err != nil {
		return application.PositionCommand{}, err
	}
	amount, err := req.Uint("amount")
	if err != nil {
		return application.PositionCommand{}, err
	}
	price, err := req.Uint("price")
	if err != nil {
		return application.PositionCommand{}, err
	}
	return application.PositionCommand{User: user, Instrument: req.String("instrument"), Amount: amount, Price: price}, nil
}

func caller(ctx context.Context) (string, error) {
	uid := contextx.GetUserID(ctx)
	if uid == "" {
		return "", status.Error(codes.Unauthenticated, "missing caller identity")
	}
	return uid, nil
}
