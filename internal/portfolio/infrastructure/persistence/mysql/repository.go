// Package mysql 持仓、组合与投影登记的 MySQL GORM 实现
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate 建表
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&HoldingModel{}, &PortfolioModel{}, &AppliedTradeModel{})
}

// HoldingRepository 持仓仓储
type HoldingRepository struct {
	db *gorm.DB
}

// NewHoldingRepository 创建持仓仓储实例
func NewHoldingRepository(gdb *gorm.DB) *HoldingRepository {
	return &HoldingRepository{db: gdb}
}

// Save 插入或更新持仓
func (r *HoldingRepository) Save(ctx context.Context, h *domain.Holding) error {
	err := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "instrument"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount", "average_price", "total_invested", "current_value", "profit_loss", "last_updated"}),
	}).Create(toHoldingModel(h)).Error
	if err != nil {
		logger.Error(ctx, "holding_repository.save failed", "user", h.User, "instrument", h.Instrument, "error", err)
		return fmt.Errorf("failed to save holding: %w", err)
	}
	return nil
}

func (r *HoldingRepository) Get(ctx context.Context, user, instrument string) (*domain.Holding, error) {
	return r.get(db.Conn(ctx, r.db), user, instrument)
}

func (r *HoldingRepository) GetForUpdate(ctx context.Context, user, instrument string) (*domain.Holding, error) {
	return r.get(db.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), user, instrument)
}

func (r *HoldingRepository) get(conn *gorm.DB, user, instrument string) (*domain.Holding, error) {
	var m HoldingModel
	err := conn.Where("user_id = ? AND instrument = ?", user, instrument).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrHoldingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return toHolding(&m), nil
}

func (r *HoldingRepository) ListByUser(ctx context.Context, user string) ([]*domain.Holding, error) {
	return r.list(ctx, db.Conn(ctx, r.db).Where("user_id = ?", user).Order("instrument"))
}

// ListByInstrument 重估在事务内进行，加行锁
func (r *HoldingRepository) ListByInstrument(ctx context.Context, instrument string) ([]*domain.Holding, error) {
	return r.list(ctx, db.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("instrument = ?", instrument).Order("user_id"))
}

func (r *HoldingRepository) list(ctx context.Context, q *gorm.DB) ([]*domain.Holding, error) {
	var models []HoldingModel
	if err := q.Find(&models).Error; err != nil {
		logger.Error(ctx, "holding_repository.list failed", "error", err)
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	out := make([]*domain.Holding, len(models))
	for i := range models {
		out[i] = toHolding(&models[i])
	}
	return out, nil
}

// PortfolioRepository 组合仓储
type PortfolioRepository struct {
	db *gorm.DB
}

// NewPortfolioRepository 创建组合仓储实例
func NewPortfolioRepository(gdb *gorm.DB) *PortfolioRepository {
	return &PortfolioRepository{db: gdb}
}

func (r *PortfolioRepository) Save(ctx context.Context, p *domain.Portfolio) error {
	err := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_holdings", "total_value", "total_invested", "total_profit_loss", "holdings_count", "last_updated"}),
	}).Create(toPortfolioModel(p)).Error
	if err != nil {
		logger.Error(ctx, "portfolio_repository.save failed", "user", p.User, "error", err)
		return fmt.Errorf("failed to save portfolio: %w", err)
	}
	return nil
}

func (r *PortfolioRepository) Get(ctx context.Context, user string) (*domain.Portfolio, error) {
	return r.get(db.Conn(ctx, r.db), user)
}

func (r *PortfolioRepository) GetForUpdate(ctx context.Context, user string) (*domain.Portfolio, error) {
	return r.get(db.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), user)
}

func (r *PortfolioRepository) get(conn *gorm.DB, user string) (*domain.Portfolio, error) {
	var m PortfolioModel
	err := conn.Where("user_id = ?", user).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPortfolioNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	return toPortfolio(&m), nil
}

// AppliedTradeRepository 投影登记
type AppliedTradeRepository struct {
	db *gorm.DB
}

// NewAppliedTradeRepository 创建投影登记实例
func NewAppliedTradeRepository(gdb *gorm.DB) *AppliedTradeRepository {
	return &AppliedTradeRepository{db: gdb}
}

// MarkApplied INSERT IGNORE，影响行数为 0 表示已投影过
func (r *AppliedTradeRepository) MarkApplied(ctx context.Context, key string) (bool, error) {
	res := db.Conn(ctx, r.db).Clauses(clause.Insert{Modifier: "IGNORE"}).
		Create(&AppliedTradeModel{TradeKey: key, AppliedAt: time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to mark trade applied: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
