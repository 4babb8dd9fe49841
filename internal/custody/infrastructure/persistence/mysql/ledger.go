// Package mysql 基于 MySQL 的代币账本
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/tokenexchange/internal/custody/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Ledger MySQL 账本。扣减使用带余额条件的 UPDATE，依赖行锁串行化同一账户
type Ledger struct {
	db *gorm.DB
}

// NewLedger 创建 MySQL 账本
func NewLedger(gdb *gorm.DB) *Ledger {
	return &Ledger{db: gdb}
}

// AutoMigrate 建表
func (l *Ledger) AutoMigrate() error {
	return l.db.AutoMigrate(&TokenBalanceModel{})
}

// Transfer 转账。必须在事务中调用才能保证扣减与入账同时生效
func (l *Ledger) Transfer(ctx context.Context, asset, from, to string, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	conn := db.Conn(ctx, l.db)

	res := conn.Model(&TokenBalanceModel{}).
		Where("asset = ? AND account = ? AND amount >= ?", asset, from, amount).
		Updates(map[string]any{
			"amount":     gorm.Expr("amount - ?", amount),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("debit %s/%s: %w", asset, from, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrInsufficientBalance
	}
	return l.credit(conn, asset, to, amount)
}

// BalanceOf 查询余额，账户不存在视为 0
func (l *Ledger) BalanceOf(ctx context.Context, asset, account string) (uint64, error) {
	var m TokenBalanceModel
	err := db.Conn(ctx, l.db).
		Where("asset = ? AND account = ?", asset, account).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("balance %s/%s: %w", asset, account, err)
	}
	return m.Amount, nil
}

// Mint 增发
func (l *Ledger) Mint(ctx context.Context, asset, to string, amount uint64) error {
	if amount == 0 {
		return nil
	}
	return l.credit(db.Conn(ctx, l.db), asset, to, amount)
}

func (l *Ledger) credit(conn *gorm.DB, asset, account string, amount uint64) error {
	err := conn.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "asset"}, {Name: "account"}},
		DoUpdates: clause.Assignments(map[string]any{
			"amount":     gorm.Expr("amount + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(&TokenBalanceModel{
		Asset:     asset,
		Account:   account,
		Amount:    amount,
		UpdatedAt: time.Now(),
	}).Error
	if err != nil {
		return fmt.Errorf("credit %s/%s: %w", asset, account, err)
	}
	return nil
}
