package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/tokenexchange/pkg/safemath"
)

// OrderBook 单个标的的订单簿聚合：下单计数、买卖水位、最新成交价与累计成交量。
// 撤单不会回退水位，定义最优价的订单撤销后水位保持不变，直到被新的更优报价覆盖
type OrderBook struct {
	Instrument      string
	TotalBuyOrders  uint64
	TotalSellOrders uint64
	// 0 表示未设置
	BestBid        uint64
	BestAsk        uint64
	LastTradePrice uint64
	TotalVolume    uint64
	CreatedAt      time.Time
	LastUpdated    time.Time
}

// NewOrderBook 创建订单簿
func NewOrderBook(instrument string, now time.Time) (*OrderBook, error) {
	if instrument == "" || len(instrument) > MaxInstrumentLen {
		return nil, ErrInvalidOrderParams
	}
	return &OrderBook{Instrument: instrument, CreatedAt: now, LastUpdated: now}, nil
}

// NextOrderID 下一个订单号 = 买单数 + 卖单数 + 1
func (b *OrderBook) NextOrderID() (uint64, error) {
	total, err := safemath.Add(b.TotalBuyOrders, b.TotalSellOrders)
	if err != nil {
		return 0, err
	}
	return safemath.Add(total, 1)
}

// MarketPrice 市价单的参考价：买看最优卖价，卖看最优买价
func (b *OrderBook) MarketPrice(side Side) (uint64, error) {
	price := b.BestAsk
	if side == SideSell {
		price = b.BestBid
	}
	if price == 0 {
		return 0, ErrNoLiquidity
	}
	return price, nil
}

// RecordOrder 计入新订单。限价单价格更优时推进水位，市价单不影响水位
func (b *OrderBook) RecordOrder(o *Order, now time.Time) error {
	var err error
	switch o.Side {
	case SideBuy:
		if b.TotalBuyOrders, err = safemath.Add(b.TotalBuyOrders, 1); err != nil {
			return err
		}
		if o.Kind == KindLimit && o.Price > b.BestBid {
			b.BestBid = o.Price
		}
	case SideSell:
		if b.TotalSellOrders, err = safemath.Add(b.TotalSellOrders, 1); err != nil {
			return err
		}
		if o.Kind == KindLimit && (b.BestAsk == 0 || o.Price < b.BestAsk) {
			b.BestAsk = o.Price
		}
	}
	b.LastUpdated = now
	return nil
}

// ApplyTrade 记录成交价与成交量
func (b *OrderBook) ApplyTrade(amount, price uint64, now time.Time) error {
	volume, err := safemath.Add(b.TotalVolume, amount)
	if err != nil {
		return err
	}
	b.TotalVolume = volume
	b.LastTradePrice = price
	b.LastUpdated = now
	return nil
}

// Spread 买卖价差，任一侧未设置时返回 false
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	if b.BestBid == 0 || b.BestAsk == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromUint64(b.BestAsk).Sub(decimal.NewFromUint64(b.BestBid)), true
}

// MidPrice 中间价
func (b *OrderBook) MidPrice() (decimal.Decimal, bool) {
	if b.BestBid == 0 || b.BestAsk == 0 {
		return decimal.Zero, false
	}
	sum := decimal.NewFromUint64(b.BestAsk).Add(decimal.NewFromUint64(b.BestBid))
	return sum.Div(decimal.NewFromInt(2)), true
}
