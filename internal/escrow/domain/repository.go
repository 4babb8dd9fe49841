package domain

import "context"

// EscrowRepository 托管单仓储
type EscrowRepository interface {
	Save(ctx context.Context, e *Escrow) error
	Get(ctx context.Context, id uint64) (*Escrow, error)
	// GetForUpdate 事务内加锁读取
	GetForUpdate(ctx context.Context, id uint64) (*Escrow, error)
	// ListByParty 列出作为付款方或收款方参与的托管单，按创建时间倒序
	ListByParty(ctx context.Context, party string, limit, offset int) ([]*Escrow, int64, error)
}

// EventPublisher 托管事件发布
type EventPublisher interface {
	PublishEscrowCreated(ctx context.Context, event EscrowCreatedEvent) error
	PublishEscrowReleased(ctx context.Context, event EscrowClosedEvent) error
	PublishEscrowCancelled(ctx context.Context, event EscrowClosedEvent) error
}
