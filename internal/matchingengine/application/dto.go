package application

import (
	"time"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
)

// CreateLimitOrderCommand 限价单
type CreateLimitOrderCommand struct {
	Owner      string `json:"-"`
	Instrument string `json:"instrument" binding:"required"`
	Side       string `json:"side" binding:"required"`
	Amount     uint64 `json:"amount"`
	Price      uint64 `json:"price"`
}

// CreateMarketOrderCommand 市价单
type CreateMarketOrderCommand struct {
	Owner      string `json:"-"`
	Instrument string `json:"instrument" binding:"required"`
	Side       string `json:"side" binding:"required"`
	Amount     uint64 `json:"amount"`
}

// MatchOrdersCommand 指定一对买卖单撮合
type MatchOrdersCommand struct {
	Instrument  string `json:"instrument" binding:"required"`
	BuyOrderID  uint64 `json:"buy_order_id" binding:"required"`
	SellOrderID uint64 `json:"sell_order_id" binding:"required"`
	Amount      uint64 `json:"amount"`
}

// CancelOrderCommand 撤单
type CancelOrderCommand struct {
	Caller     string
	Instrument string
	OrderID    uint64
}

// CreateOrderResult 下单结果。市价单的 Price 为创建时的对手价快照
type CreateOrderResult struct {
	OrderID    uint64 `json:"order_id"`
	Instrument string `json:"instrument"`
	Price      uint64 `json:"price"`
	Status     string `json:"status"`
}

// CancelOrderResult 撤单结果
type CancelOrderResult struct {
	OrderID    uint64 `json:"order_id"`
	Instrument string `json:"instrument"`
	Refunded   uint64 `json:"refunded"`
}

// OrderDTO 订单
type OrderDTO struct {
	OrderID         uint64     `json:"order_id"`
	Instrument      string     `json:"instrument"`
	Owner           string     `json:"owner"`
	Side            string     `json:"side"`
	Kind            string     `json:"kind"`
	Amount          uint64     `json:"amount"`
	RemainingAmount uint64     `json:"remaining_amount"`
	Price           uint64     `json:"price"`
	Status          string     `json:"status"`
	CreatedAt       int64      `json:"created_at"`
	FilledAt        *time.Time `json:"filled_at,omitempty"`
}

// TradeDTO 成交
type TradeDTO struct {
	TradeID        uint64 `json:"trade_id"`
	Instrument     string `json:"instrument"`
	BuyOrderID     uint64 `json:"buy_order_id"`
	SellOrderID    uint64 `json:"sell_order_id"`
	Buyer          string `json:"buyer"`
	Seller         string `json:"seller"`
	Amount         uint64 `json:"amount"`
	Price          uint64 `json:"price"`
	TotalValue     uint64 `json:"total_value"`
	PlatformFee    uint64 `json:"platform_fee"`
	SellerProceeds uint64 `json:"seller_proceeds"`
	ExecutedAt     int64  `json:"executed_at"`
}

// OrderBookDTO 订单簿概要
type OrderBookDTO struct {
	Instrument      string `json:"instrument"`
	TotalBuyOrders  uint64 `json:"total_buy_orders"`
	TotalSellOrders uint64 `json:"total_sell_orders"`
	BestBid         uint64 `json:"best_bid"`
	BestAsk         uint64 `json:"best_ask"`
	LastTradePrice  uint64 `json:"last_trade_price"`
	TotalVolume     uint64 `json:"total_volume"`
	Spread          string `json:"spread,omitempty"`
	MidPrice        string `json:"mid_price,omitempty"`
	LastUpdated     int64  `json:"last_updated"`
}

func toOrderDTO(o *domain.Order) *OrderDTO {
	return &OrderDTO{
		OrderID:         o.ID,
		Instrument:      o.Instrument,
		Owner:           o.Owner,
		Side:            string(o.Side),
		Kind:            string(o.Kind),
		Amount:          o.Amount,
		RemainingAmount: o.RemainingAmount,
		Price:           o.Price,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt.Unix(),
		FilledAt:        o.FilledAt,
	}
}

func toTradeDTO(t *domain.Trade) *TradeDTO {
	return &TradeDTO{
		TradeID:        t.ID,
		Instrument:     t.Instrument,
		BuyOrderID:     t.BuyOrderID,
		SellOrderID:    t.SellOrderID,
		Buyer:          t.Buyer,
		Seller:         t.Seller,
		Amount:         t.Amount,
		Price:          t.Price,
		TotalValue:     t.TotalValue,
		PlatformFee:    t.PlatformFee,
		SellerProceeds: t.SellerProceeds,
		ExecutedAt:     t.ExecutedAt.Unix(),
	}
}

func toOrderBookDTO(b *domain.OrderBook) *OrderBookDTO {
	dto := &OrderBookDTO{
		Instrument:      b.Instrument,
		TotalBuyOrders:  b.TotalBuyOrders,
		TotalSellOrders: b.TotalSellOrders,
		BestBid:         b.BestBid,
		BestAsk:         b.BestAsk,
		LastTradePrice:  b.LastTradePrice,
		TotalVolume:     b.TotalVolume,
		LastUpdated:     b.LastUpdated.Unix(),
	}
	if spread, ok := b.Spread(); ok {
		dto.Spread = spread.String()
	}
	if mid, ok := b.MidPrice(); ok {
		dto.MidPrice = mid.String()
	}
	return dto
}
