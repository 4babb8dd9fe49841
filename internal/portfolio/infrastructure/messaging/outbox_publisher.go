// Package messaging 持仓事件写入事务性发件箱
package messaging

import (
	"context"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/domain"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
)

// OutboxEventPublisher 持仓事件发布，按用户分区
type OutboxEventPublisher struct {
	outbox outbox.Publisher
}

// NewOutboxEventPublisher 创建 OutboxEventPublisher
func NewOutboxEventPublisher(p outbox.Publisher) *OutboxEventPublisher {
	return &OutboxEventPublisher{outbox: p}
}

func (p *OutboxEventPublisher) PublishHoldingUpdated(ctx context.Context, event domain.HoldingUpdatedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicHoldingUpdated, event.User, event)
}

func (p *OutboxEventPublisher) PublishPortfolioCreated(ctx context.Context, event domain.PortfolioCreatedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicPortfolioCreated, event.User, event)
}

func (p *OutboxEventPublisher) PublishPortfolioUpdated(ctx context.Context, event domain.PortfolioUpdatedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicPortfolioUpdated, event.User, event)
}
