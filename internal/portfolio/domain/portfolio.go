package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tokenexchange/pkg/safemath"
)

// Portfolio 用户投资组合汇总，由该用户的全部持仓重新计算得出
type Portfolio struct {
	User string
	// TotalHoldings 各持仓数量之和
	TotalHoldings   uint64
	TotalValue      uint64
	TotalInvested   uint64
	TotalProfitLoss int64
	// HoldingsCount 数量大于 0 的持仓数
	HoldingsCount uint64
	CreatedAt     time.Time
	LastUpdated   time.Time
}

// NewPortfolio 空组合
func NewPortfolio(user string, now time.Time) *Portfolio {
	return &Portfolio{User: user, CreatedAt: now, LastUpdated: now}
}

// Recompute 从 holdings 全量汇总。holdings 必须是该用户的全部持仓
func (p *Portfolio) Recompute(holdings []*Holding, now time.Time) error {
	var total, value, invested, count uint64
	var err error
	for _, h := range holdings {
		if total, err = safemath.Add(total, h.Amount); err != nil {
			return err
		}
		if value, err = safemath.Add(value, h.CurrentValue); err != nil {
			return err
		}
		if invested, err = safemath.Add(invested, h.TotalInvested); err != nil {
			return err
		}
		if h.Amount > 0 {
			count++
		}
	}
	pnl, err := safemath.Diff(value, invested)
	if err != nil {
		return err
	}
	p.TotalHoldings = total
	p.TotalValue = value
	p.TotalInvested = invested
	p.TotalProfitLoss = pnl
	p.HoldingsCount = count
	p.LastUpdated = now
	return nil
}

// ReturnRate 收益率 = 总盈亏 / 总投入，未投入时为 0
func (p *Portfolio) ReturnRate() decimal.Decimal {
	if p.TotalInvested == 0 {
		return decimal.Zero
	}
	invested := decimal.NewFromBigInt(new(big.Int).SetUint64(p.TotalInvested), 0)
	return decimal.NewFromInt(p.TotalProfitLoss).DivRound(invested, 8)
}
