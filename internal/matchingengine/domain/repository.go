package domain

import (
	"context"
	"time"
)

// OrderRepository 订单仓储接口，订单以 (标的, 订单号) 定位
type OrderRepository interface {
	// Save 保存或更新订单
	Save(ctx context.Context, order *Order) error
	// Get 获取订单，不存在时返回 ErrOrderNotFound
	Get(ctx context.Context, instrument string, id uint64) (*Order, error)
	// GetForUpdate 在事务内获取并锁定订单
	GetForUpdate(ctx context.Context, instrument string, id uint64) (*Order, error)
	// ListByOwner 用户订单，按创建时间倒序
	ListByOwner(ctx context.Context, owner string, limit, offset int) ([]*Order, int64, error)
	// ListOpenLimit 标的下仍在挂单的限价单
	ListOpenLimit(ctx context.Context, instrument string) ([]*Order, error)
}

// OrderBookRepository 订单簿仓储接口
type OrderBookRepository interface {
	// Create 新建订单簿，已存在时返回 false
	Create(ctx context.Context, book *OrderBook) (bool, error)
	Get(ctx context.Context, instrument string) (*OrderBook, error)
	GetForUpdate(ctx context.Context, instrument string) (*OrderBook, error)
	Save(ctx context.Context, book *OrderBook) error
	List(ctx context.Context) ([]*OrderBook, error)
}

// TradeRepository 成交记录仓储接口
type TradeRepository interface {
	Save(ctx context.Context, trade *Trade) error
	Get(ctx context.Context, id uint64) (*Trade, error)
	// ListByInstrument 按成交时间倒序
	ListByInstrument(ctx context.Context, instrument string, limit int) ([]*Trade, error)
}

// PriceLevel 深度档位
type PriceLevel struct {
	Price    uint64 `json:"price"`
	Quantity uint64 `json:"quantity"`
	Count    int    `json:"count"`
}

// MarketDepth 买卖盘深度
type MarketDepth struct {
	Instrument string       `json:"instrument"`
	Bids       []PriceLevel `json:"bids"`
	Asks       []PriceLevel `json:"asks"`
	Timestamp  time.Time    `json:"timestamp"`
}

// DepthCache 深度快照缓存
type DepthCache interface {
	Get(ctx context.Context, instrument string, levels int) (*MarketDepth, bool, error)
	Set(ctx context.Context, depth *MarketDepth, levels int) error
	Invalidate(ctx context.Context, instrument string) error
}
