// Package memory 内存代币账本，写操作随 memtx 事务回滚
package memory

import (
	"context"
	"sync"

	"github.com/wyfcoding/tokenexchange/internal/custody/domain"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/safemath"
)

type balanceKey struct {
	asset   string
	account string
}

// Ledger 内存账本
type Ledger struct {
	mu       sync.RWMutex
	balances map[balanceKey]uint64
}

// NewLedger 创建内存账本
func NewLedger() *Ledger {
	return &Ledger{balances: make(map[balanceKey]uint64)}
}

// Transfer 转账，amount 为 0 或 from == to 时不做任何事
func (l *Ledger) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fk, tk := balanceKey{asset, from}, balanceKey{asset, to}
	fromBal, toBal := l.balances[fk], l.balances[tk]
	if fromBal < amount {
		return domain.ErrInsufficientBalance
	}
	credited, err := safemath.Add(toBal, amount)
	if err != nil {
		return err
	}

	l.balances[fk] = fromBal - amount
	l.balances[tk] = credited
	memtx.OnRollback(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.balances[fk] = fromBal
		l.balances[tk] = toBal
	})
	return nil
}

// BalanceOf 查询余额
func (l *Ledger) BalanceOf(_ context.Context, asset, account string) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[balanceKey{asset, account}], nil
}

// Mint 增发到账户
func (l *Ledger) Mint(ctx context.Context, asset, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	k := balanceKey{asset, to}
	prev := l.balances[k]
	next, err := safemath.Add(prev, amount)
	if err != nil {
		return err
	}
	l.balances[k] = next
	memtx.OnRollback(ctx, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.balances[k] = prev
	})
	return nil
}
