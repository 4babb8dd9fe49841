// Package sequence 提供按名称划分的单调递增序列，参与调用方事务，事务回滚时序号一并回滚
package sequence

import (
	"context"
	"sync"

	"github.com/wyfcoding/tokenexchange/pkg/db"
	"github.com/wyfcoding/tokenexchange/pkg/memtx"
	"github.com/wyfcoding/tokenexchange/pkg/safemath"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 平台级序列名
const (
	Trade  = "trade"
	Escrow = "escrow"
)

// Generator 序列发号器，首个号码为 1
type Generator interface {
	Next(ctx context.Context, name string) (uint64, error)
}

// SequenceModel 序列表
type SequenceModel struct {
	Name  string `gorm:"column:name;type:varchar(64);primaryKey"`
	Value uint64 `gorm:"column:value;type:bigint unsigned;not null"`
}

func (SequenceModel) TableName() string {
	return "sequences"
}

// GormGenerator 基于 MySQL 行锁的序列
type GormGenerator struct {
	db *gorm.DB
}

// NewGormGenerator 创建 GormGenerator
func NewGormGenerator(gdb *gorm.DB) *GormGenerator {
	return &GormGenerator{db: gdb}
}

// AutoMigrate 建表
func (g *GormGenerator) AutoMigrate() error {
	return g.db.AutoMigrate(&SequenceModel{})
}

// Next 取下一个号码。应在事务中调用，行锁保证同名序列串行
func (g *GormGenerator) Next(ctx context.Context, name string) (uint64, error) {
	conn := db.Conn(ctx, g.db)

	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&SequenceModel{Name: name, Value: 0}).Error; err != nil {
		return 0, err
	}

	var m SequenceModel
	if err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("name = ?", name).First(&m).Error; err != nil {
		return 0, err
	}
	next, err := safemath.Add(m.Value, 1)
	if err != nil {
		return 0, err
	}
	if err := conn.Model(&SequenceModel{}).Where("name = ?", name).Update("value", next).Error; err != nil {
		return 0, err
	}
	return next, nil
}

// MemoryGenerator 内存序列
type MemoryGenerator struct {
	mu     sync.Mutex
	values map[string]uint64
}

// NewMemoryGenerator 创建 MemoryGenerator
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{values: make(map[string]uint64)}
}

// Next 取下一个号码
func (g *MemoryGenerator) Next(ctx context.Context, name string) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	prev := g.values[name]
	next, err := safemath.Add(prev, 1)
	if err != nil {
		return 0, err
	}
	g.values[name] = next
	memtx.OnRollback(ctx, func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.values[name] = prev
	})
	return next, nil
}
