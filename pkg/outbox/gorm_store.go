package outbox

import (
	"context"
	"time"

	"github.com/wyfcoding/tokenexchange/pkg/db"
	"gorm.io/gorm"
)

// GormStore 基于 MySQL 表的发件箱，Publish 加入 context 中的事务
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 GormStore
func NewGormStore(gdb *gorm.DB) *GormStore {
	return &GormStore{db: gdb}
}

// AutoMigrate 建表
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Message{})
}

// Publish 写入一条待投递消息
func (s *GormStore) Publish(ctx context.Context, topic, key string, payload any) error {
	msg, err := newMessage(topic, key, payload)
	if err != nil {
		return err
	}
	return db.Conn(ctx, s.db).Create(msg).Error
}

// FetchPending 按创建顺序取出待投递消息
func (s *GormStore) FetchPending(ctx context.Context, limit int) ([]*Message, error) {
	var msgs []*Message
	err := s.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at asc").
		Limit(limit).
		Find(&msgs).Error
	return msgs, err
}

// MarkSent 标记已投递
func (s *GormStore) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Model(&Message{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": StatusSent, "updated_at": time.Now()}).Error
}

// MarkFailed 记录失败次数，超过上限后不再重试
func (s *GormStore) MarkFailed(ctx context.Context, id string, cause error) error {
	// gorm 按列名排序生成 SET，MySQL 自左向右求值，status 中的 attempts 已是自增后的值
	return s.db.WithContext(ctx).Model(&Message{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": truncate(cause.Error(), 512),
			"status":     gorm.Expr("CASE WHEN attempts >= ? THEN ? ELSE status END", MaxAttempts, StatusFailed),
			"updated_at": time.Now(),
		}).Error
}

// Cleanup 清理早于 before 的已投递消息
func (s *GormStore) Cleanup(ctx context.Context, before time.Time) error {
	return s.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", StatusSent, before).
		Delete(&Message{}).Error
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
