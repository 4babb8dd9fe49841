// Package memory 内存版订单、订单簿、成交仓储，写操作随 memtx 事务回滚
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
)

type orderKey struct {
	instrument string
	id         uint64
}

// OrderRepository 内存订单仓储
type OrderRepository struct {
	mu     sync.RWMutex
	orders map[orderKey]domain.Order
}

// NewOrderRepository 创建内存订单仓储
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[orderKey]domain.Order)}
}

func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := orderKey{order.Instrument, order.ID}
	prev, existed := r.orders[k]
	r.orders[k] = *order
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			r.orders[k] = prev
		} else {
			delete(r.orders, k)
		}
	})
	return nil
}

func (r *OrderRepository) Get(_ context.Context, instrument string, id uint64) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[orderKey{instrument, id}]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return &o, nil
}

// GetForUpdate 内存事务已串行化，等同 Get
func (r *OrderRepository) GetForUpdate(ctx context.Context, instrument string, id uint64) (*domain.Order, error) {
	return r.Get(ctx, instrument, id)
}

func (r *OrderRepository) ListByOwner(_ context.Context, owner string, limit, offset int) ([]*domain.Order, int64, error) {
	r.mu.RLock()
	var all []*domain.Order
	for _, o := range r.orders {
		if o.Owner == owner {
			o := o
			all = append(all, &o)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		if all[i].Instrument != all[j].Instrument {
			return all[i].Instrument < all[j].Instrument
		}
		return all[i].ID > all[j].ID
	})
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *OrderRepository) ListOpenLimit(_ context.Context, instrument string) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Order
	for k, o := range r.orders {
		if k.instrument == instrument && o.Kind == domain.KindLimit && o.IsOpen() {
			o := o
			out = append(out, &o)
		}
	}
	return out, nil
}

// OrderBookRepository 内存订单簿仓储
type OrderBookRepository struct {
	mu    sync.RWMutex
	books map[string]domain.OrderBook
}

// NewOrderBookRepository 创建内存订单簿仓储
func NewOrderBookRepository() *OrderBookRepository {
	return &OrderBookRepository{books: make(map[string]domain.OrderBook)}
}

func (r *OrderBookRepository) Create(ctx context.Context, book *domain.OrderBook) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.books[book.Instrument]; ok {
		return false, nil
	}
	r.books[book.Instrument] = *book
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.books, book.Instrument)
	})
	return true, nil
}

func (r *OrderBookRepository) Get(_ context.Context, instrument string) (*domain.OrderBook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.books[instrument]
	if !ok {
		return nil, domain.ErrOrderBookNotFound
	}
	return &b, nil
}

func (r *OrderBookRepository) GetForUpdate(ctx context.Context, instrument string) (*domain.OrderBook, error) {
	return r.Get(ctx, instrument)
}

func (r *OrderBookRepository) Save(ctx context.Context, book *domain.OrderBook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.books[book.Instrument]
	if !ok {
		return domain.ErrOrderBookNotFound
	}
	r.books[book.Instrument] = *book
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.books[book.Instrument] = prev
	})
	return nil
}

func (r *OrderBookRepository) List(_ context.Context) ([]*domain.OrderBook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.OrderBook, 0, len(r.books))
	for _, b := range r.books {
		b := b
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out, nil
}

// TradeRepository 内存成交仓储
type TradeRepository struct {
	mu     sync.RWMutex
	trades map[uint64]domain.Trade
}

// NewTradeRepository 创建内存成交仓储
func NewTradeRepository() *TradeRepository {
	return &TradeRepository{trades: make(map[uint64]domain.Trade)}
}

func (r *TradeRepository) Save(ctx context.Context, trade *domain.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.trades[trade.ID] = *trade
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.trades, trade.ID)
	})
	return nil
}

func (r *TradeRepository) Get(_ context.Context, id uint64) (*domain.Trade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.trades[id]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return &t, nil
}

func (r *TradeRepository) ListByInstrument(_ context.Context, instrument string, limit int) ([]*domain.Trade, error) {
	r.mu.RLock()
	var out []*domain.Trade
	for _, t := range r.trades {
		if t.Instrument == instrument {
			t := t
			out = append(out, &t)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
