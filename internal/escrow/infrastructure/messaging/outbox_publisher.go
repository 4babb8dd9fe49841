// Package messaging 托管事件写入事务性发件箱
package messaging

import (
	"context"
	"strconv"

	"github.com/wyfcoding/tokenexchange/internal/escrow/domain"
	"github.com/wyfcoding/tokenexchange/pkg/outbox"
)

// OutboxEventPublisher 托管事件发布，消息键为托管单号
type OutboxEventPublisher struct {
	outbox outbox.Publisher
}

// NewOutboxEventPublisher 创建 OutboxEventPublisher
func NewOutboxEventPublisher(p outbox.Publisher) *OutboxEventPublisher {
	return &OutboxEventPublisher{outbox: p}
}

func (p *OutboxEventPublisher) PublishEscrowCreated(ctx context.Context, event domain.EscrowCreatedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicEscrowCreated, strconv.FormatUint(event.EscrowID, 10), event)
}

func (p *OutboxEventPublisher) PublishEscrowReleased(ctx context.Context, event domain.EscrowClosedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicEscrowReleased, strconv.FormatUint(event.EscrowID, 10), event)
}

func (p *OutboxEventPublisher) PublishEscrowCancelled(ctx context.Context, event domain.EscrowClosedEvent) error {
	return p.outbox.Publish(ctx, domain.TopicEscrowCancelled, strconv.FormatUint(event.EscrowID, 10), event)
}
