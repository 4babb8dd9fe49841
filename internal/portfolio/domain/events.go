package domain

import "time"

const (
	TopicHoldingUpdated   = "exchange.holding.updated"
	TopicPortfolioCreated = "exchange.portfolio.created"
	TopicPortfolioUpdated = "exchange.portfolio.updated"
)

// HoldingUpdatedEvent 持仓变更事件
type HoldingUpdatedEvent struct {
	User          string    `json:"user"`
	Instrument    string    `json:"instrument"`
	Op            string    `json:"op"`
	Amount        uint64    `json:"amount"`
	AveragePrice  uint64    `json:"average_price"`
	TotalInvested uint64    `json:"total_invested"`
	CurrentValue  uint64    `json:"current_value"`
	ProfitLoss    int64     `json:"profit_loss"`
	OccurredOn    time.Time `json:"occurred_on"`
}

// NewHoldingUpdatedEvent 由持仓构造事件
func NewHoldingUpdatedEvent(h *Holding, op string) HoldingUpdatedEvent {
	return HoldingUpdatedEvent{
		User:          h.User,
		Instrument:    h.Instrument,
		Op:            op,
		Amount:        h.Amount,
		AveragePrice:  h.AveragePrice,
		TotalInvested: h.TotalInvested,
		CurrentValue:  h.CurrentValue,
		ProfitLoss:    h.ProfitLoss,
		OccurredOn:    h.LastUpdated,
	}
}

// PortfolioCreatedEvent 组合创建事件
type PortfolioCreatedEvent struct {
	User       string    `json:"user"`
	OccurredOn time.Time `json:"occurred_on"`
}

// PortfolioUpdatedEvent 组合汇总更新事件
type PortfolioUpdatedEvent struct {
	User            string    `json:"user"`
	TotalHoldings   uint64    `json:"total_holdings"`
	TotalValue      uint64    `json:"total_value"`
	TotalInvested   uint64    `json:"total_invested"`
	TotalProfitLoss int64     `json:"total_profit_loss"`
	HoldingsCount   uint64    `json:"holdings_count"`
	OccurredOn      time.Time `json:"occurred_on"`
}

// NewPortfolioUpdatedEvent 由组合构造事件
func NewPortfolioUpdatedEvent(p *Portfolio) PortfolioUpdatedEvent {
	return PortfolioUpdatedEvent{
		User:            p.User,
		TotalHoldings:   p.TotalHoldings,
		TotalValue:      p.TotalValue,
		TotalInvested:   p.TotalInvested,
		TotalProfitLoss: p.TotalProfitLoss,
		HoldingsCount:   p.HoldingsCount,
		OccurredOn:      p.LastUpdated,
	}
}
