// Package memtx 为内存仓储提供事务语义：串行化写事务，记录回滚闭包，失败时按逆序撤销。
// 查询经 View 取读锁，看不到进行中的写事务
package memtx

import (
	"context"
	"sync"

	"github.com/wyfcoding/tokenexchange/pkg/contextx"
)

// Journal 内存事务日志，同一时刻只允许一个写事务，读视图可并发
type Journal struct {
	mu sync.RWMutex
}

// New 创建事务日志
func New() *Journal {
	return &Journal{}
}

// Tx 一次进行中的内存事务
type Tx struct {
	journal     *Journal
	undo        []func()
	afterCommit []func()
}

// WithTx 在事务中执行 fn。嵌套调用复用外层事务
func (j *Journal) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if tx, ok := contextx.GetTx(ctx).(*Tx); ok && tx.journal == j {
		return fn(ctx)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	tx := &Tx{journal: j}
	defer func() {
		if p := recover(); p != nil {
			tx.rollback()
			panic(p)
		}
	}()

	if err = fn(contextx.WithTx(ctx, tx)); err != nil {
		tx.rollback()
		return err
	}
	for _, f := range tx.afterCommit {
		f()
	}
	return nil
}

// View 在读锁下执行 fn。已处于本日志的事务中时直接执行。fn 内不得再开启写事务
func (j *Journal) View(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := contextx.GetTx(ctx).(*Tx); ok && tx.journal == j {
		return fn(ctx)
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	return fn(ctx)
}

func (tx *Tx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
	tx.afterCommit = nil
}

// OnRollback 登记撤销闭包。不在事务内时忽略
func OnRollback(ctx context.Context, undo func()) {
	if tx, ok := contextx.GetTx(ctx).(*Tx); ok {
		tx.undo = append(tx.undo, undo)
	}
}

// AfterCommit 登记提交后回调。不在事务内时立即执行
func AfterCommit(ctx context.Context, f func()) {
	if tx, ok := contextx.GetTx(ctx).(*Tx); ok {
		tx.afterCommit = append(tx.afterCommit, f)
		return
	}
	f()
}

// InTx 当前 context 是否处于内存事务中
func InTx(ctx context.Context) bool {
	_, ok := contextx.GetTx(ctx).(*Tx)
	return ok
}
