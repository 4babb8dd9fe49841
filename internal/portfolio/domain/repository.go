package domain

import "context"

// HoldingRepository 持仓仓储，主键 (user, instrument)
type HoldingRepository interface {
	Save(ctx context.Context, h *Holding) error
	Get(ctx context.Context, user, instrument string) (*Holding, error)
	GetForUpdate(ctx context.Context, user, instrument string) (*Holding, error)
	// ListByUser 按标的排序
	ListByUser(ctx context.Context, user string) ([]*Holding, error)
	// ListByInstrument 按用户排序
	ListByInstrument(ctx context.Context, instrument string) ([]*Holding, error)
}

// PortfolioRepository 组合仓储
type PortfolioRepository interface {
	Save(ctx context.Context, p *Portfolio) error
	Get(ctx context.Context, user string) (*Portfolio, error)
	GetForUpdate(ctx context.Context, user string) (*Portfolio, error)
}

// AppliedTradeRepository 记录已投影的成交，保证重复投递幂等
type AppliedTradeRepository interface {
	// MarkApplied 首次登记返回 true，已登记返回 false
	MarkApplied(ctx context.Context, key string) (bool, error)
}

// EventPublisher 持仓事件发布
type EventPublisher interface {
	PublishHoldingUpdated(ctx context.Context, event HoldingUpdatedEvent) error
	PublishPortfolioCreated(ctx context.Context, event PortfolioCreatedEvent) error
	PublishPortfolioUpdated(ctx context.Context, event PortfolioUpdatedEvent) error
}
