package mysql

import (
	"time"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
)

// OrderModel 订单表，主键为 (instrument, order_id)
type OrderModel struct {
	Instrument      string     `gorm:"column:instrument;type:varchar(32);primaryKey;comment:标的代码"`
	OrderID         uint64     `gorm:"column:order_id;primaryKey;autoIncrement:false;comment:订单簿内订单号"`
	Owner           string     `gorm:"column:owner;type:varchar(128);index:idx_owner_created;not null;comment:下单用户"`
	Side            string     `gorm:"column:side;type:varchar(10);not null;comment:买卖方向(BUY/SELL)"`
	Kind            string     `gorm:"column:kind;type:varchar(10);not null;comment:订单类型(LIMIT/MARKET)"`
	Amount          uint64     `gorm:"column:amount;type:bigint unsigned;not null;comment:委托数量"`
	RemainingAmount uint64     `gorm:"column:remaining_amount;type:bigint unsigned;not null;comment:剩余数量"`
	Price           uint64     `gorm:"column:price;type:bigint unsigned;not null;comment:限价或市价快照"`
	Status          string     `gorm:"column:status;type:varchar(20);index;not null;comment:订单状态"`
	CreatedAt       time.Time  `gorm:"column:created_at;index:idx_owner_created"`
	FilledAt        *time.Time `gorm:"column:filled_at"`
	UpdatedAt       time.Time  `gorm:"column:updated_at"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "exchange_orders"
}

// OrderBookModel 订单簿表
type OrderBookModel struct {
	Instrument      string    `gorm:"column:instrument;type:varchar(32);primaryKey"`
	TotalBuyOrders  uint64    `gorm:"column:total_buy_orders;type:bigint unsigned;not null;default:0"`
	TotalSellOrders uint64    `gorm:"column:total_sell_orders;type:bigint unsigned;not null;default:0"`
	BestBid         uint64    `gorm:"column:best_bid;type:bigint unsigned;not null;default:0"`
	BestAsk         uint64    `gorm:"column:best_ask;type:bigint unsigned;not null;default:0"`
	LastTradePrice  uint64    `gorm:"column:last_trade_price;type:bigint unsigned;not null;default:0"`
	TotalVolume     uint64    `gorm:"column:total_volume;type:bigint unsigned;not null;default:0"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	LastUpdated     time.Time `gorm:"column:last_updated"`
}

// TableName 指定表名
func (OrderBookModel) TableName() string {
	return "order_books"
}

// TradeModel 成交表，只插入不更新
type TradeModel struct {
	TradeID        uint64    `gorm:"column:trade_id;primaryKey;autoIncrement:false"`
	Instrument     string    `gorm:"column:instrument;type:varchar(32);index:idx_instrument_trade;not null"`
	BuyOrderID     uint64    `gorm:"column:buy_order_id;not null"`
	SellOrderID    uint64    `gorm:"column:sell_order_id;not null"`
	Buyer          string    `gorm:"column:buyer;type:varchar(128);index;not null"`
	Seller         string    `gorm:"column:seller;type:varchar(128);index;not null"`
	Amount         uint64    `gorm:"column:amount;type:bigint unsigned;not null"`
	Price          uint64    `gorm:"column:price;type:bigint unsigned;not null"`
	TotalValue     uint64    `gorm:"column:total_value;type:bigint unsigned;not null"`
	PlatformFee    uint64    `gorm:"column:platform_fee;type:bigint unsigned;not null"`
	SellerProceeds uint64    `gorm:"column:seller_proceeds;type:bigint unsigned;not null"`
	ExecutedAt     time.Time `gorm:"column:executed_at;index:idx_instrument_trade"`
}

// TableName 指定表名
func (TradeModel) TableName() string {
	return "exchange_trades"
}

func toOrderModel(o *domain.Order) *OrderModel {
	return &OrderModel{
		Instrument:      o.Instrument,
		OrderID:         o.ID,
		Owner:           o.Owner,
		Side:            string(o.Side),
		Kind:            string(o.Kind),
		Amount:          o.Amount,
		RemainingAmount: o.RemainingAmount,
		Price:           o.Price,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
		FilledAt:        o.FilledAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func toOrder(m *OrderModel) *domain.Order {
	return &domain.Order{
		ID:              m.OrderID,
		Instrument:      m.Instrument,
		Owner:           m.Owner,
		Side:            domain.Side(m.Side),
		Kind:            domain.Kind(m.Kind),
		Amount:          m.Amount,
		RemainingAmount: m.RemainingAmount,
		Price:           m.Price,
		Status:          domain.OrderStatus(m.Status),
		CreatedAt:       m.CreatedAt,
		FilledAt:        m.FilledAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func toOrderBookModel(b *domain.OrderBook) *OrderBookModel {
	return &OrderBookModel{
		Instrument:      b.Instrument,
		TotalBuyOrders:  b.TotalBuyOrders,
		TotalSellOrders: b.TotalSellOrders,
		BestBid:         b.BestBid,
		BestAsk:         b.BestAsk,
		LastTradePrice:  b.LastTradePrice,
		TotalVolume:     b.TotalVolume,
		CreatedAt:       b.CreatedAt,
		LastUpdated:     b.LastUpdated,
	}
}

func toOrderBook(m *OrderBookModel) *domain.OrderBook {
	return &domain.OrderBook{
		Instrument:      m.Instrument,
		TotalBuyOrders:  m.TotalBuyOrders,
		TotalSellOrders: m.TotalSellOrders,
		BestBid:         m.BestBid,
		BestAsk:         m.BestAsk,
		LastTradePrice:  m.LastTradePrice,
		TotalVolume:     m.TotalVolume,
		CreatedAt:       m.CreatedAt,
		LastUpdated:     m.LastUpdated,
	}
}

func toTradeModel(t *domain.Trade) *TradeModel {
	return &TradeModel{
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

func toTrade(m *TradeModel) *domain.Trade {
	return &domain.Trade{
		ID:             m.TradeID,
		Instrument:     m.Instrument,
		BuyOrderID:     m.BuyOrderID,
		SellOrderID:    m.SellOrderID,
		Buyer:          m.Buyer,
		Seller:         m.Seller,
		Amount:         m.Amount,
		Price:          m.Price,
		TotalValue:     m.TotalValue,
		PlatformFee:    m.PlatformFee,
		SellerProceeds: m.SellerProceeds,
		ExecutedAt:     m.ExecutedAt,
	}
}
