// Package outbox 实现事务性发件箱：业务事务内写入待投递消息，由 Relay 异步投递到消息总线
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// 消息状态
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Message 发件箱消息
type Message struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Topic     string `gorm:"type:varchar(100);index"`
	MsgKey    string `gorm:"column:msg_key;type:varchar(128)"`
	Payload   []byte `gorm:"type:blob"`
	Status    string `gorm:"type:varchar(20);index;default:'pending'"`
	Attempts  int
	LastError string    `gorm:"type:varchar(512)"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName 指定表名
func (Message) TableName() string {
	return "outbox_messages"
}

// Publisher 在当前事务内登记一条待投递消息
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// Store 发件箱存储
type Store interface {
	Publisher
	FetchPending(ctx context.Context, limit int) ([]*Message, error)
	MarkSent(ctx context.Context, ids []string) error
	MarkFailed(ctx context.Context, id string, cause error) error
}

// Sink 投递目标
type Sink interface {
	Deliver(ctx context.Context, msg *Message) error
}

func newMessage(topic, key string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal outbox payload for %s: %w", topic, err)
	}
	now := time.Now()
	return &Message{
		ID:        uuid.NewString(),
		Topic:     topic,
		MsgKey:    key,
		Payload:   data,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
