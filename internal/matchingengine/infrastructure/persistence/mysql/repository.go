// Package mysql 提供了撮合引擎仓储接口的 MySQL GORM 实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate 建表
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&OrderModel{}, &OrderBookModel{}, &TradeModel{})
}

// OrderRepository 订单仓储
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储实例
func NewOrderRepository(gdb *gorm.DB) *OrderRepository {
	return &OrderRepository{db: gdb}
}

// Save 插入或更新订单
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	err := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instrument"}, {Name: "order_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"remaining_amount", "status", "filled_at", "updated_at"}),
	}).Create(toOrderModel(order)).Error
	if err != nil {
		logger.Error(ctx, "order_repository.save failed", "instrument", order.Instrument, "order_id", order.ID, "error", err)
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, instrument string, id uint64) (*domain.Order, error) {
	return r.get(db.Conn(ctx, r.db), instrument, id)
}

// GetForUpdate SELECT ... FOR UPDATE，同一订单上的撮合与撤单由行锁串行化
func (r *OrderRepository) GetForUpdate(ctx context.Context, instrument string, id uint64) (*domain.Order, error) {
	return r.get(db.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), instrument, id)
}

func (r *OrderRepository) get(conn *gorm.DB, instrument string, id uint64) (*domain.Order, error) {
	var m OrderModel
	err := conn.Where("instrument = ? AND order_id = ?", instrument, id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return toOrder(&m), nil
}

func (r *OrderRepository) ListByOwner(ctx context.Context, owner string, limit, offset int) ([]*domain.Order, int64, error) {
	var models []OrderModel
	var total int64
	q := db.Conn(ctx, r.db).Model(&OrderModel{}).Where("owner = ?", owner)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}
	if err := q.Order("created_at desc, instrument, order_id desc").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		logger.Error(ctx, "order_repository.list_by_owner failed", "owner", owner, "error", err)
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toOrder(&models[i])
	}
	return orders, total, nil
}

func (r *OrderRepository) ListOpenLimit(ctx context.Context, instrument string) ([]*domain.Order, error) {
	var models []OrderModel
	err := db.Conn(ctx, r.db).
		Where("instrument = ? AND kind = ? AND status IN ?", instrument, string(domain.KindLimit),
			[]string{string(domain.StatusActive), string(domain.StatusPartiallyFilled)}).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open orders: %w", err)
	}

	orders := make([]*domain.Order, len(models))
	for i := range models {
		orders[i] = toOrder(&models[i])
	}
	return orders, nil
}

// OrderBookRepository 订单簿仓储
type OrderBookRepository struct {
	db *gorm.DB
}

// NewOrderBookRepository 创建订单簿仓储实例
func NewOrderBookRepository(gdb *gorm.DB) *OrderBookRepository {
	return &OrderBookRepository{db: gdb}
}

// Create INSERT IGNORE，返回是否新建
func (r *OrderBookRepository) Create(ctx context.Context, book *domain.OrderBook) (bool, error) {
	res := db.Conn(ctx, r.db).Clauses(clause.Insert{Modifier: "IGNORE"}).Create(toOrderBookModel(book))
	if res.Error != nil {
		return false, fmt.Errorf("failed to create order book: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *OrderBookRepository) Get(ctx context.Context, instrument string) (*domain.OrderBook, error) {
	return r.get(db.Conn(ctx, r.db), instrument)
}

// GetForUpdate 锁定订单簿行。下单要据此分配订单号，必须串行
func (r *OrderBookRepository) GetForUpdate(ctx context.Context, instrument string) (*domain.OrderBook, error) {
	return r.get(db.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), instrument)
}

func (r *OrderBookRepository) get(conn *gorm.DB, instrument string) (*domain.OrderBook, error) {
	var m OrderBookModel
	err := conn.Where("instrument = ?", instrument).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order book: %w", err)
	}
	return toOrderBook(&m), nil
}

func (r *OrderBookRepository) Save(ctx context.Context, book *domain.OrderBook) error {
	res := db.Conn(ctx, r.db).Model(&OrderBookModel{}).
		Where("instrument = ?", book.Instrument).
		Updates(map[string]any{
			"total_buy_orders":  book.TotalBuyOrders,
			"total_sell_orders": book.TotalSellOrders,
			"best_bid":          book.BestBid,
			"best_ask":          book.BestAsk,
			"last_trade_price":  book.LastTradePrice,
			"total_volume":      book.TotalVolume,
			"last_updated":      book.LastUpdated,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save order book: %w", res.Error)
	}
	return nil
}

func (r *OrderBookRepository) List(ctx context.Context) ([]*domain.OrderBook, error) {
	var models []OrderBookModel
	if err := db.Conn(ctx, r.db).Order("instrument").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list order books: %w", err)
	}
	books := make([]*domain.OrderBook, len(models))
	for i := range models {
		books[i] = toOrderBook(&models[i])
	}
	return books, nil
}

// TradeRepository 成交仓储
type TradeRepository struct {
	db *gorm.DB
}

// NewTradeRepository 创建成交仓储实例
func NewTradeRepository(gdb *gorm.DB) *TradeRepository {
	return &TradeRepository{db: gdb}
}

func (r *TradeRepository) Save(ctx context.Context, trade *domain.Trade) error {
	if err := db.Conn(ctx, r.db).Create(toTradeModel(trade)).Error; err != nil {
		logger.Error(ctx, "trade_repository.save failed", "trade_id", trade.ID, "error", err)
		return fmt.Errorf("failed to save trade: %w", err)
	}
	return nil
}

func (r *TradeRepository) Get(ctx context.Context, id uint64) (*domain.Trade, error) {
	var m TradeModel
	err := db.Conn(ctx, r.db).Where("trade_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrTradeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade: %w", err)
	}
	return toTrade(&m), nil
}

func (r *TradeRepository) ListByInstrument(ctx context.Context, instrument string, limit int) ([]*domain.Trade, error) {
	var models []TradeModel
	err := db.Conn(ctx, r.db).Where("instrument = ?", instrument).
		Order("trade_id desc").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	trades := make([]*domain.Trade, len(models))
	for i := range models {
		trades[i] = toTrade(&models[i])
	}
	return trades, nil
}
