package application

import (
	"context"
	"time"

	"github.com/wyfcoding/tokenexchange/internal/matchingengine/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
)

const (
	defaultDepthLevels = 20
	maxDepthLevels     = 200
	defaultListLimit   = 50
	maxListLimit       = 500
)

// MatchingQueryService 订单、订单簿、成交的只读查询
type MatchingQueryService struct {
	orders     domain.OrderRepository
	books      domain.OrderBookRepository
	trades     domain.TradeRepository
	depthCache domain.DepthCache
	tx         db.Transactor
	now        func() time.Time
}

// NewMatchingQueryService 创建查询服务，depthCache 可为 nil
func NewMatchingQueryService(orders domain.OrderRepository, books domain.OrderBookRepository, trades domain.TradeRepository, depthCache domain.DepthCache, tx db.Transactor) *MatchingQueryService {
	return &MatchingQueryService{orders: orders, books: books, trades: trades, depthCache: depthCache, tx: tx, now: time.Now}
}

// GetOrder 获取订单
func (q *MatchingQueryService) GetOrder(ctx context.Context, instrument string, id uint64) (*OrderDTO, error) {
	var dto *OrderDTO
	err := db.View(ctx, q.tx, func(ctx context.Context) error {
		o, err := q.orders.Get(ctx, instrument, id)
		if err != nil {
			return err
		}
		dto = toOrderDTO(o)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListOrdersByOwner 用户订单列表
func (q *MatchingQueryService) ListOrdersByOwner(ctx context.Context, owner string, limit, offset int) ([]*OrderDTO, int64, error) {
	limit = clampLimit(limit, defaultListLimit, maxListLimit)
	if offset < 0 {
		offset = 0
	}
	var (
		dtos  []*OrderDTO
		total int64
	)
	err := db.View(ctx, q.tx, func(ctx context.Context) error {
		orders, n, err := q.orders.ListByOwner(ctx, owner, limit, offset)
		if err != nil {
			return err
		}
		total = n
		dtos = make([]*OrderDTO, 0, len(orders))
		for _, o := range orders {
			dtos = append(dtos, toOrderDTO(o))
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return dtos, total, nil
}

// GetOrderBook 订单簿概要
func (q *MatchingQueryService) GetOrderBook(ctx context.Context, instrument string) (*OrderBookDTO, error) {
	var dto *OrderBookDTO
	err := db.View(ctx, q.tx, func(ctx context.Context) error {
		b, err := q.books.Get(ctx, instrument)
		if err != nil {
			return err
		}
		dto = toOrderBookDTO(b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListOrderBooks 所有订单簿
func (q *MatchingQueryService) ListOrderBooks(ctx context.Context) ([]*OrderBookDTO, error) {
	var dtos []*OrderBookDTO
	err := db.View(ctx, q.tx, func(ctx context.Context) error {
		books, err := q.books.List(ctx)
		if err != nil {
			return err
		}
		dtos = make([]*OrderBookDTO, 0, len(books))
		for _, b := range books {
			dtos = append(dtos, toOrderBookDTO(b))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dtos, nil
}

// GetMarketDepth 按价位聚合的挂单深度，优先读缓存，缓存异常时回源
func (q *MatchingQueryService) GetMarketDepth(ctx context.Context, instrument string, levels int) (*domain.MarketDepth, error) {
	levels = clampLimit(levels, defaultDepthLevels, maxDepthLevels)
	if q.depthCache != nil {
		depth, ok, err := q.depthCache.Get(ctx, instrument, levels)
		if err != nil {
			logger.Warn(ctx, "read depth cache failed", "instrument", instrument, "error", err)
		} else if ok {
			return depth, nil
		}
	}

	var depth *domain.MarketDepth
	err := db.View(ctx, q.tx, func(ctx context.Context) error {
		if _, err := q.books.Get(ctx, instrument); err != nil {
			return err
		}
		orders, err := q.orders.ListOpenLimit(ctx, instrument)
		if err != nil {
			return err
		}
		depth, err = domain.BuildDepth(instrument, orders, levels, q.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	if q.depthCache != nil {
		if err := q.depthCache.Set(ctx, depth, levels); err != nil {
			logger.Warn(ctx, "write depth cache failed", "instrument", instrument, "error", err)
		}
	}
	return depth, nil
}

// GetTrade 获取成交
func (q *MatchingQueryService) GetTrade(ctx context.Context, id uint64) (*TradeDTO, error) {
	var dto *TradeDTO
	err := db.View(ctx, q.tx, func(ctx context.Context) error {
		t, err := q.trades.Get(ctx, id)
		if err != nil {
			return err
		}
		dto = toTradeDTO(t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}

// ListTrades 标的最近成交
func (q *MatchingQueryService) ListTrades(ctx context.Context, instrument string, limit int) ([]*TradeDTO, error) {
	var dtos []*TradeDTO
	err := db.View(ctx, q.tx, func(ctx context.Context) error {
		trades, err := q.trades.ListByInstrument(ctx, instrument, clampLimit(limit, defaultListLimit, maxListLimit))
		if err != nil {
			return err
		}
		dtos = make([]*TradeDTO, 0, len(trades))
		for _, t := range trades {
			dtos = append(dtos, toTradeDTO(t))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dtos, nil
}

func clampLimit(v, def, hi int) int {
	if v <= 0 {
		return def
	}
	if v > hi {
		return hi
	}
	return v
}
