package domain

import "time"

// 消息主题
const (
	TopicOrderCreated    = "exchange.order.created"
	TopicOrderCancelled  = "exchange.order.cancelled"
	TopicTradeExecuted   = "exchange.trade.executed"
	TopicOrderBookOpened = "exchange.orderbook.opened"
)

// OrderCreatedEvent 订单创建事件
type OrderCreatedEvent struct {
	OrderID    uint64      `json:"order_id"`
	Instrument string      `json:"instrument"`
	Owner      string      `json:"owner"`
	Side       Side        `json:"side"`
	Kind       Kind        `json:"kind"`
	Amount     uint64      `json:"amount"`
	Price      uint64      `json:"price"`
	Status     OrderStatus `json:"status"`
	OccurredOn time.Time   `json:"occurred_on"`
}

// OrderCancelledEvent 订单撤销事件
type OrderCancelledEvent struct {
	OrderID         uint64    `json:"order_id"`
	Instrument      string    `json:"instrument"`
	Owner           string    `json:"owner"`
	RemainingAmount uint64    `json:"remaining_amount"`
	Refunded        uint64    `json:"refunded"`
	OccurredOn      time.Time `json:"occurred_on"`
}

// TradeExecutedEvent 成交事件，持仓投影以此为输入
type TradeExecutedEvent struct {
	TradeID        uint64    `json:"trade_id"`
	Instrument     string    `json:"instrument"`
	BuyOrderID     uint64    `json:"buy_order_id"`
	SellOrderID    uint64    `json:"sell_order_id"`
	Buyer          string    `json:"buyer"`
	Seller         string    `json:"seller"`
	Amount         uint64    `json:"amount"`
	Price          uint64    `json:"price"`
	TotalValue     uint64    `json:"total_value"`
	PlatformFee    uint64    `json:"platform_fee"`
	SellerProceeds uint64    `json:"seller_proceeds"`
	ExecutedAt     time.Time `json:"executed_at"`
}

// OrderBookOpenedEvent 订单簿开设事件
type OrderBookOpenedEvent struct {
	Instrument string    `json:"instrument"`
	OccurredOn time.Time `json:"occurred_on"`
}

// NewTradeExecutedEvent 由成交记录构造事件
func NewTradeExecutedEvent(t *Trade) TradeExecutedEvent {
	return TradeExecutedEvent{
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
		ExecutedAt:     t.ExecutedAt,
	}
}
