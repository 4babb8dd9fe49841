package domain

import "context"

// EventPublisher 事件发布者接口。发布与业务写入处于同一事务
type EventPublisher interface {
	// PublishOrderCreated 发布订单创建事件
	PublishOrderCreated(ctx context.Context, event OrderCreatedEvent) error

	// PublishOrderCancelled 发布订单撤销事件
	PublishOrderCancelled(ctx context.Context, event OrderCancelledEvent) error

	// PublishTradeExecuted 发布成交事件
	PublishTradeExecuted(ctx context.Context, event TradeExecutedEvent) error

	// PublishOrderBookOpened 发布订单簿开设事件
	PublishOrderBookOpened(ctx context.Context, event OrderBookOpenedEvent) error
}
