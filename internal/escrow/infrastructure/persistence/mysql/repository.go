// Package mysql 托管单仓储的 MySQL GORM 实现
package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/tokenexchange/internal/escrow/domain"
	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate 建表
func AutoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(&EscrowModel{})
}

// EscrowRepository 托管单仓储
type EscrowRepository struct {
	db *gorm.DB
}

// NewEscrowRepository 创建托管单仓储实例
func NewEscrowRepository(gdb *gorm.DB) *EscrowRepository {
	return &EscrowRepository{db: gdb}
}

// Save 插入或更新托管单
func (r *EscrowRepository) Save(ctx context.Context, e *domain.Escrow) error {
	err := db.Conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "escrow_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "released_at", "updated_at"}),
	}).Create(toEscrowModel(e)).Error
	if err != nil {
		logger.Error(ctx, "escrow_repository.save failed", "escrow_id", e.ID, "error", err)
		return fmt.Errorf("failed to save escrow: %w", err)
	}
	return nil
}

func (r *EscrowRepository) Get(ctx context.Context, id uint64) (*domain.Escrow, error) {
	return r.get(db.Conn(ctx, r.db), id)
}

// GetForUpdate 行锁保证同一托管单的释放与撤销串行
func (r *EscrowRepository) GetForUpdate(ctx context.Context, id uint64) (*domain.Escrow, error) {
	return r.get(db.Conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *EscrowRepository) get(conn *gorm.DB, id uint64) (*domain.Escrow, error) {
	var m EscrowModel
	err := conn.Where("escrow_id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrEscrowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escrow: %w", err)
	}
	return toEscrow(&m), nil
}

func (r *EscrowRepository) ListByParty(ctx context.Context, party string, limit, offset int) ([]*domain.Escrow, int64, error) {
	var models []EscrowModel
	var total int64
	q := db.Conn(ctx, r.db).Model(&EscrowModel{}).Where("payer = ? OR recipient = ?", party, party)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count escrows: %w", err)
	}
	if err := q.Order("created_at desc, escrow_id desc").Limit(limit).Offset(offset).Find(&models).Error; err != nil {
		logger.Error(ctx, "escrow_repository.list_by_party failed", "party", party, "error", err)
		return nil, 0, fmt.Errorf("failed to list escrows: %w", err)
	}

	escrows := make([]*domain.Escrow, len(models))
	for i := range models {
		escrows[i] = toEscrow(&models[i])
	}
	return escrows, total, nil
}
