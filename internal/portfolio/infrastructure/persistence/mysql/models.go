package mysql

import (
	"time"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/domain"
)

// HoldingModel 持仓表，主键 (user_id, instrument)
type HoldingModel struct {
	UserID        string    `gorm:"column:user_id;type:varchar(128);primaryKey;comment:用户"`
	Instrument    string    `gorm:"column:instrument;type:varchar(32);primaryKey;index;comment:标的代码"`
	Amount        uint64    `gorm:"column:amount;type:bigint unsigned;not null;comment:持有数量"`
	AveragePrice  uint64    `gorm:"column:average_price;type:bigint unsigned;not null;comment:加权平均成本价"`
	TotalInvested uint64    `gorm:"column:total_invested;type:bigint unsigned;not null;comment:剩余成本"`
	CurrentValue  uint64    `gorm:"column:current_value;type:bigint unsigned;not null;comment:市值"`
	ProfitLoss    int64     `gorm:"column:profit_loss;type:bigint;not null;comment:浮动盈亏"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	LastUpdated   time.Time `gorm:"column:last_updated"`
}

// TableName 指定表名
func (HoldingModel) TableName() string {
	return "holdings"
}

// PortfolioModel 组合汇总表
type PortfolioModel struct {
	UserID          string    `gorm:"column:user_id;type:varchar(128);primaryKey"`
	TotalHoldings   uint64    `gorm:"column:total_holdings;type:bigint unsigned;not null"`
	TotalValue      uint64    `gorm:"column:total_value;type:bigint unsigned;not null"`
	TotalInvested   uint64    `gorm:"column:total_invested;type:bigint unsigned;not null"`
	TotalProfitLoss int64     `gorm:"column:total_profit_loss;type:bigint;not null"`
	HoldingsCount   uint64    `gorm:"column:holdings_count;type:bigint unsigned;not null"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	LastUpdated     time.Time `gorm:"column:last_updated"`
}

// TableName 指定表名
func (PortfolioModel) TableName() string {
	return "portfolios"
}

// AppliedTradeModel 已投影成交登记，键为 instrument:trade_id
type AppliedTradeModel struct {
	TradeKey  string    `gorm:"column:trade_key;type:varchar(64);primaryKey"`
	AppliedAt time.Time `gorm:"column:applied_at"`
}

// TableName 指定表名
func (AppliedTradeModel) TableName() string {
	return "portfolio_applied_trades"
}

func toHoldingModel(h *domain.Holding) *HoldingModel {
	return &HoldingModel{
		UserID:        h.User,
		Instrument:    h.Instrument,
		Amount:        h.Amount,
		AveragePrice:  h.AveragePrice,
		TotalInvested: h.TotalInvested,
		CurrentValue:  h.CurrentValue,
		ProfitLoss:    h.ProfitLoss,
		CreatedAt:     h.CreatedAt,
		LastUpdated:   h.LastUpdated,
	}
}

func toHolding(m *HoldingModel) *domain.Holding {
	return &domain.Holding{
		User:          m.UserID,
		Instrument:    m.Instrument,
		Amount:        m.Amount,
		AveragePrice:  m.AveragePrice,
		TotalInvested: m.TotalInvested,
		CurrentValue:  m.CurrentValue,
		ProfitLoss:    m.ProfitLoss,
		CreatedAt:     m.CreatedAt,
		LastUpdated:   m.LastUpdated,
	}
}

func toPortfolioModel(p *domain.Portfolio) *PortfolioModel {
	return &PortfolioModel{
		UserID:          p.User,
		TotalHoldings:   p.TotalHoldings,
		TotalValue:      p.TotalValue,
		TotalInvested:   p.TotalInvested,
		TotalProfitLoss: p.TotalProfitLoss,
		HoldingsCount:   p.HoldingsCount,
		CreatedAt:       p.CreatedAt,
		LastUpdated:     p.LastUpdated,
	}
}

func toPortfolio(m *PortfolioModel) *domain.Portfolio {
	return &domain.Portfolio{
		User:            m.UserID,
		TotalHoldings:   m.TotalHoldings,
		TotalValue:      m.TotalValue,
		TotalInvested:   m.TotalInvested,
		TotalProfitLoss: m.TotalProfitLoss,
		HoldingsCount:   m.HoldingsCount,
		CreatedAt:       m.CreatedAt,
		LastUpdated:     m.LastUpdated,
	}
}
