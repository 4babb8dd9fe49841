package application

import (
	"time"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/domain"
)

// PositionCommand 买入或卖出持仓
type PositionCommand struct {
	User       string `json:"-"`
	Instrument string `json:"instrument" binding:"required"`
	Amount     uint64 `json:"amount"`
	Price      uint64 `json:"price"`
}

// TradeFill 一笔成交对双方持仓的影响
type TradeFill struct {
	Instrument string `json:"instrument"`
	TradeID    uint64 `json:"trade_id"`
	Buyer      string `json:"buyer"`
	Seller     string `json:"seller"`
	Amount     uint64 `json:"amount"`
	Price      uint64 `json:"price"`
}

// HoldingDTO 持仓
type HoldingDTO struct {
	User          string    `json:"user"`
	Instrument    string    `json:"instrument"`
	Amount        uint64    `json:"amount"`
	AveragePrice  uint64    `json:"average_price"`
	TotalInvested uint64    `json:"total_invested"`
	CurrentValue  uint64    `json:"current_value"`
	ProfitLoss    int64     `json:"profit_loss"`
	LastUpdated   time.Time `json:"last_updated"`
}

// PortfolioDTO 组合汇总。ReturnRate 为十进制字符串
type PortfolioDTO struct {
	User            string    `json:"user"`
	TotalHoldings   uint64    `json:"total_holdings"`
	TotalValue      uint64    `json:"total_value"`
	TotalInvested   uint64    `json:"total_invested"`
	TotalProfitLoss int64     `json:"total_profit_loss"`
	HoldingsCount   uint64    `json:"holdings_count"`
	ReturnRate      string    `json:"return_rate"`
	LastUpdated     time.Time `json:"last_updated"`
}

func toHoldingDTO(h *domain.Holding) *HoldingDTO {
	return &HoldingDTO{
		User:          h.User,
		Instrument:    h.Instrument,
		Amount:        h.Amount,
		AveragePrice:  h.AveragePrice,
		TotalInvested: h.TotalInvested,
		CurrentValue:  h.CurrentValue,
		ProfitLoss:    h.ProfitLoss,
		LastUpdated:   h.LastUpdated,
	}
}

func toPortfolioDTO(p *domain.Portfolio) *PortfolioDTO {
	return &PortfolioDTO{
		User:            p.User,
		TotalHoldings:   p.TotalHoldings,
		TotalValue:      p.TotalValue,
		TotalInvested:   p.TotalInvested,
		TotalProfitLoss: p.TotalProfitLoss,
		HoldingsCount:   p.HoldingsCount,
		ReturnRate:      p.ReturnRate().String(),
		LastUpdated:     p.LastUpdated,
	}
}
