// Package application 撮合引擎用例：下单、撮合、撤单与查询
package application

import (
	"context"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
)

// MatchingService 撮合服务门面，整合命令和查询服务
type MatchingService struct {
	Command *MatchingCommandService
	Query   *MatchingQueryService
}

// NewMatchingService 构造函数
func NewMatchingService(deps Deps) *MatchingService {
	return &MatchingService{
		Command: NewMatchingCommandService(deps),
		Query:   NewMatchingQueryService(deps.Orders, deps.Books, deps.Trades, deps.DepthCache, deps.Tx),
	}
}

// --- Command (Writes) ---

// OpenOrderBook 开设订单簿
func (s *MatchingService) OpenOrderBook(ctx context.Context, instrument string) (*OrderBookDTO, error) {
	return s.Command.OpenOrderBook(ctx, instrument)
}

// CreateLimitOrder 限价下单
func (s *MatchingService) CreateLimitOrder(ctx context.Context, cmd CreateLimitOrderCommand) (*CreateOrderResult, error) {
	return s.Command.CreateLimitOrder(ctx, cmd)
}

// CreateMarketOrder 市价下单
func (s *MatchingService) CreateMarketOrder(ctx context.Context, cmd CreateMarketOrderCommand) (*CreateOrderResult, error) {
	return s.Command.CreateMarketOrder(ctx, cmd)
}

// CreateSellOrder 基础路径卖单
func (s *MatchingService) CreateSellOrder(ctx context.Context, owner, instrument string, amount, price uint64) (*CreateOrderResult, error) {
	return s.Command.CreateSellOrder(ctx, owner, instrument, amount, price)
}

// CreateBuyOrder 基础路径买单
func (s *MatchingService) CreateBuyOrder(ctx context.Context, owner, instrument string, amount, price uint64) (*CreateOrderResult, error) {
	return s.Command.CreateBuyOrder(ctx, owner, instrument, amount, price)
}

// MatchOrders 撮合
func (s *MatchingService) MatchOrders(ctx context.Context, cmd MatchOrdersCommand) (*TradeDTO, error) {
	return s.Command.MatchOrders(ctx, cmd)
}

// ExecuteTrade 基础路径成交
func (s *MatchingService) ExecuteTrade(ctx context.Context, instrument string, sellOrderID, buyOrderID, amount uint64) (*TradeDTO, error) {
	return s.Command.ExecuteTrade(ctx, instrument, sellOrderID, buyOrderID, amount)
}

// CancelOrder 撤单
func (s *MatchingService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (*CancelOrderResult, error) {
	return s.Command.CancelOrder(ctx, cmd)
}

// --- Query (Reads) ---

// GetOrder 获取订单
func (s *MatchingService) GetOrder(ctx context.Context, instrument string, id uint64) (*OrderDTO, error) {
	return s.Query.GetOrder(ctx, instrument, id)
}

// ListOrdersByOwner 用户订单列表
func (s *MatchingService) ListOrdersByOwner(ctx context.Context, owner string, limit, offset int) ([]*OrderDTO, int64, error) {
	return s.Query.ListOrdersByOwner(ctx, owner, limit, offset)
}

// GetOrderBook 订单簿概要
func (s *MatchingService) GetOrderBook(ctx context.Context, instrument string) (*OrderBookDTO, error) {
	return s.Query.GetOrderBook(ctx, instrument)
}

// ListOrderBooks 所有订单簿
func (s *MatchingService) ListOrderBooks(ctx context.Context) ([]*OrderBookDTO, error) {
	return s.Query.ListOrderBooks(ctx)
}

// GetMarketDepth 深度
func (s *MatchingService) GetMarketDepth(ctx context.Context, instrument string, levels int) (*domain.MarketDepth, error) {
	return s.Query.GetMarketDepth(ctx, instrument, levels)
}

// GetTrade 获取成交
func (s *MatchingService) GetTrade(ctx context.Context, id uint64) (*TradeDTO, error) {
	return s.Query.GetTrade(ctx, id)
}

// ListTrades 最近成交
func (s *MatchingService) ListTrades(ctx context.Context, instrument string, limit int) ([]*TradeDTO, error) {
	return s.Query.ListTrades(ctx, instrument, limit)
}
