// Package messaging 撮合事件写入事务性发件箱
package messaging

import (
	"context"
	"strconv"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
)

// OutboxEventPublisher 实现 EventPublisher 接口，使用 Outbox 模式
type OutboxEventPublisher struct {
	outbox outbox.Publisher
}

// NewOutboxEventPublisher 创建新的 OutboxEventPublisher 实例
func NewOutboxEventPublisher(p outbox.Publisher) *OutboxEventPublisher {
	return &OutboxEventPublisher{outbox: p}
}

// PublishOrderCreated 发布订单创建事件
func (p *OutboxEventPublisher) PublishOrderCreated(ctx context.Context, event domain.OrderCreatedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicOrderCreated, orderKey(event.Instrument, event.OrderID), event)
}

// PublishOrderCancelled 发布订单撤销事件
func (p *OutboxEventPublisher) PublishOrderCancelled(ctx context.Context, event domain.OrderCancelledEvent) error {
	return p.outbox.Publish(ctx, domain.TopicOrderCancelled, orderKey(event.Instrument, event.OrderID), event)
}

// PublishTradeExecuted 发布成交事件，按标的分区以保证同一标的的成交有序
func (p *OutboxEventPublisher) PublishTradeExecuted(ctx context.Context, event domain.TradeExecutedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicTradeExecuted, event.Instrument, event)
}

// PublishOrderBookOpened 发布订单簿开设事件
func (p *OutboxEventPublisher) PublishOrderBookOpened(ctx context.Context, event domain.OrderBookOpenedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicOrderBookOpened, event.Instrument, event)
}

func orderKey(instrument string, id uint64) string {
	return instrument + ":" + strconv.FormatUint(id, 10)
}
