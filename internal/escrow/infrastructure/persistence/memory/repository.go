// Package memory 内存版托管单仓储
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wyfcoding/tokenexchange/internal/escrow/domain"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
)

// EscrowRepository 内存托管单仓储
type EscrowRepository struct {
	mu      sync.RWMutex
	escrows map[uint64]domain.Escrow
}

// NewEscrowRepository 创建内存托管单仓储
func NewEscrowRepository() *EscrowRepository {
	return &EscrowRepository{escrows: make(map[uint64]domain.Escrow)}
}

func (r *EscrowRepository) Save(ctx context.Context, e *domain.Escrow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, existed := r.escrows[e.ID]
	r.escrows[e.ID] = *e
	memtx.OnRollback(ctx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if existed {
			r.escrows[e.ID] = prev
		} else {
			delete(r.escrows, e.ID)
		}
	})
	return nil
}

func (r *EscrowRepository) Get(_ context.Context, id uint64) (*domain.Escrow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.escrows[id]
	if !ok {
		return nil, domain.ErrEscrowNotFound
	}
	return &e, nil
}

// GetForUpdate 内存事务已串行化，等同 Get
func (r *EscrowRepository) GetForUpdate(ctx context.Context, id uint64) (*domain.Escrow, error) {
	return r.Get(ctx, id)
}

func (r *EscrowRepository) ListByParty(_ context.Context, party string, limit, offset int) ([]*domain.Escrow, int64, error) {
	r.mu.RLock()
	var all []*domain.Escrow
	for _, e := range r.escrows {
		if e.IsParty(party) {
			e := e
			all = append(all, &e)
		}
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
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
