// Package memory 内存版持仓、组合与投影幂等仓储
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/domain"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
)

type holdingKey struct {
	user       string
	instrument string
}

// HoldingRepository 内存持仓仓储
type HoldingRepository struct {
	mu       sync.RWMutex
	holdings map[holdingKey]domain.Holding
}

// NewHoldingRepository 创建内存持仓仓储
func NewHoldingRepository() *HoldingRepository {
	return &HoldingRepository{holdings: make(map[holdingKey]domain.Holding)}
}

func (r *HoldingRepository) Save(ctx context.Context, h *domain.Holding) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := holdingKey{h.User, h.Instrument}
	prev, existed := r.holdings[k]
	r.holdings[k] = *h
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			r.holdings[k] = prev
		} else {
			delete(r.holdings, k)
		}
	})
	return nil
}

func (r *HoldingRepository) Get(_ context.Context, user, instrument string) (*domain.Holding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.holdings[holdingKey{user, instrument}]
	if !ok {
		return nil, domain.ErrHoldingNotFound
	}
	return &h, nil
}

// GetForUpdate 内存事务已串行化，等同 Get
func (r *HoldingRepository) GetForUpdate(ctx context.Context, user, instrument string) (*domain.Holding, error) {
	return r.Get(ctx, user, instrument)
}

func (r *HoldingRepository) ListByUser(_ context.Context, user string) ([]*domain.Holding, error) {
	out := r.filter(func(h *domain.Holding) bool { return h.User == user })
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out, nil
}

func (r *HoldingRepository) ListByInstrument(_ context.Context, instrument string) ([]*domain.Holding, error) {
	out := r.filter(func(h *domain.Holding) bool { return h.Instrument == instrument })
	sort.Slice(out, func(i, j int) bool { return out[i].User < out[j].User })
	return out, nil
}

func (r *HoldingRepository) filter(keep func(*domain.Holding) bool) []*domain.Holding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Holding
	for _, h := range r.holdings {
		if keep(&h) {
			h := h
			out = append(out, &h)
		}
	}
	return out
}

// PortfolioRepository 内存组合仓储
type PortfolioRepository struct {
	mu         sync.RWMutex
	portfolios map[string]domain.Portfolio
}

// NewPortfolioRepository 创建内存组合仓储
func NewPortfolioRepository() *PortfolioRepository {
	return &PortfolioRepository{portfolios: make(map[string]domain.Portfolio)}
}

func (r *PortfolioRepository) Save(ctx context.Context, p *domain.Portfolio) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.portfolios[p.User]
	r.portfolios[p.User] = *p
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			r.portfolios[p.User] = prev
		} else {
			delete(r.portfolios, p.User)
		}
	})
	return nil
}

func (r *PortfolioRepository) Get(_ context.Context, user string) (*domain.Portfolio, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.portfolios[user]
	if !ok {
		return nil, domain.ErrPortfolioNotFound
	}
	return &p, nil
}

func (r *PortfolioRepository) GetForUpdate(ctx context.Context, user string) (*domain.Portfolio, error) {
	return r.Get(ctx, user)
}

// AppliedTradeRepository 内存投影登记
type AppliedTradeRepository struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewAppliedTradeRepository 创建内存投影登记
func NewAppliedTradeRepository() *AppliedTradeRepository {
	return &AppliedTradeRepository{keys: make(map[string]struct{})}
}

func (r *AppliedTradeRepository) MarkApplied(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[key]; ok {
		return false, nil
	}
	r.keys[key] = struct{}{}
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.keys, key)
	})
	return true, nil
}
