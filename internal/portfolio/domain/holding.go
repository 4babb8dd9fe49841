// Package domain 持仓与投资组合：加权平均成本、带符号盈亏、组合汇总
package domain

import (
	"time"

	"github.com/wyfcoding/tokenexchange/pkg/safemath"
)

// MaxInstrumentLen 标的代码最大长度
const MaxInstrumentLen = 32

// Holding 用户在某标的上的持仓
type Holding struct {
	User          string
	Instrument    string
	Amount        uint64
	AveragePrice  uint64
	TotalInvested uint64
	CurrentValue  uint64
	// ProfitLoss = CurrentValue - TotalInvested，可为负
	ProfitLoss  int64
	CreatedAt   time.Time
	LastUpdated time.Time
}

// NewHolding 空持仓
func NewHolding(user, instrument string, now time.Time) (*Holding, error) {
	if user == "" || instrument == "" || len(instrument) > MaxInstrumentLen {
		return nil, ErrInvalidPosition
	}
	return &Holding{User: user, Instrument: instrument, CreatedAt: now, LastUpdated: now}, nil
}

// ValidateTrade 数量与价格必须为正
func ValidateTrade(amount, price uint64) error {
	if amount == 0 || price == 0 {
		return ErrInvalidPosition
	}
	return nil
}

// Acquire 以 price 买入 amount。空仓时按首次建仓处理，否则按加权平均摊薄成本，
// 平均价向下取整
func (h *Holding) Acquire(amount, price uint64, now time.Time) error {
	if err := ValidateTrade(amount, price); err != nil {
		return err
	}
	cost, err := safemath.Mul(amount, price)
	if err != nil {
		return err
	}

	if h.Amount == 0 {
		return h.apply(amount, price, cost, price, now)
	}

	total, err := safemath.Add(h.TotalInvested, cost)
	if err != nil {
		return err
	}
	newAmount, err := safemath.Add(h.Amount, amount)
	if err != nil {
		return err
	}
	avg, err := safemath.Div(total, newAmount)
	if err != nil {
		return err
	}
	return h.apply(newAmount, avg, total, price, now)
}

// Dispose 以 price 卖出 amount。移除的成本按平均价计算，平均价不变
func (h *Holding) Dispose(amount, price uint64, now time.Time) error {
	if err := ValidateTrade(amount, price); err != nil {
		return err
	}
	if h.Amount < amount {
		return ErrInsufficientTokens
	}
	basis, err := safemath.Mul(amount, h.AveragePrice)
	if err != nil {
		return err
	}
	newAmount, err := safemath.Sub(h.Amount, amount)
	if err != nil {
		return err
	}
	total, err := safemath.Sub(h.TotalInvested, basis)
	if err != nil {
		return err
	}
	return h.apply(newAmount, h.AveragePrice, total, price, now)
}

// MarkToMarket 按最新价重估市值与盈亏
func (h *Holding) MarkToMarket(price uint64, now time.Time) error {
	if price == 0 {
		return ErrInvalidPosition
	}
	return h.apply(h.Amount, h.AveragePrice, h.TotalInvested, price, now)
}

// apply 计算全部新值后一次性写入，任一步溢出时持仓保持不变
func (h *Holding) apply(amount, avg, invested, price uint64, now time.Time) error {
	value, err := safemath.Mul(amount, price)
	if err != nil {
		return err
	}
	pnl, err := safemath.Diff(value, invested)
	if err != nil {
		return err
	}
	h.Amount = amount
	h.AveragePrice = avg
	h.TotalInvested = invested
	h.CurrentValue = value
	h.ProfitLoss = pnl
	h.LastUpdated = now
	return nil
}
