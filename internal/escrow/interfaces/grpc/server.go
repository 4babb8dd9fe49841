// Package grpc 托管 gRPC 接口
package grpc

import (
	"context"

	"github.com/wyfcoding/tokenexchange/internal/escrow/application"
	"github.com/wyfcoding/tokenexchange/pkg/contextx"
	"github.com/wyfcoding/tokenexchange/pkg/grpcx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName 服务全名
const ServiceName = "exchange.v1.EscrowService"

// Handler gRPC 处理器
type Handler struct {
	service *application.EscrowService
}

// NewHandler 创建 gRPC 处理器实例
func NewHandler(service *application.EscrowService) *Handler {
	return &Handler{service: service}
}

// Register 注册到 gRPC 服务器
func (h *Handler) Register(r grpc.ServiceRegistrar) {
	grpcx.Register(r, grpcx.NewServiceDesc(ServiceName,
		grpcx.Method{Name: "CreateEscrow", Call: h.CreateEscrow},
		grpcx.Method{Name: "ReleaseEscrow", Call: h.ReleaseEscrow},
		grpcx.Method{Name: "CancelEscrow", Call: h.CancelEscrow},
		grpcx.Method{Name: "GetEscrow", Call: h.GetEscrow},
		grpcx.Method{Name: "ListEscrows", Call: h.ListEscrows},
	))
}

func (h *Handler) CreateEscrow(ctx context.Context, req *grpcx.Request) (any, error) {
	payer, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	amount, err := req.Uint("amount")
	if err != nil {
		return nil, err
	}
	cmd := application.CreateEscrowCommand{
		Payer:      payer,
		Instrument: req.String("instrument"),
		Recipient:  req.String("recipient"),
		Amount:     amount,
	}
	if req.Has("trade_id") {
		tradeID, err := req.Uint("trade_id")
		if err != nil {
			return nil, err
		}
		cmd.TradeID = &tradeID
	}
	return h.service.CreateEscrow(ctx, cmd)
}

func (h *Handler) ReleaseEscrow(ctx context.Context, req *grpcx.Request) (any, error) {
	who, id, err := callerAndID(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.service.ReleaseEscrow(ctx, who, id)
}

func (h *Handler) CancelEscrow(ctx context.Context, req *grpcx.Request) (any, error) {
	who, id, err := callerAndID(ctx, req)
	if err != nil {
		return nil, err
	}
	return h.service.CancelEscrow(ctx, who, id)
}

func (h *Handler) GetEscrow(ctx context.Context, req *grpcx.Request) (any, error) {
	id, err := req.Uint("escrow_id")
	if err != nil {
		return nil, err
	}
	return h.service.GetEscrow(ctx, id)
}

func (h *Handler) ListEscrows(ctx context.Context, req *grpcx.Request) (any, error) {
	party, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	escrows, total, err := h.service.ListEscrowsByParty(ctx, party, req.Int("limit", 50), req.Int("offset", 0))
	if err != nil {
		return nil, err
	}
	return map[string]any{"escrows": escrows, "total": total}, nil
}

func callerAndID(ctx context.Context, req *grpcx.Request) (string, uint64, error) {
	who, err := caller(ctx)
	if err != nil {
		return "", 0, err
	}
	id, err := req.Uint("escrow_id")
	return who, id, err
}

func caller(ctx context.Context) (string, error) {
	uid := contextx.GetUserID(ctx)
	if uid == "" {
		return "", status.Error(codes.Unauthenticated, "missing caller identity")
	}
	return uid, nil
}
