package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/wyfcoding/tokenexchange/pkg/memtx"
)

// MemoryStore 内存发件箱，写入随 memtx 事务回滚
type MemoryStore struct {
	mu   sync.Mutex
	msgs []*Message
}

// NewMemoryStore 创建 MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Publish 写入一条待投递消息。在内存事务中时提交后才对 Relay 可见
func (s *MemoryStore) Publish(ctx context.Context, topic, key string, payload any) error {
	msg, err := newMessage(topic, key, payload)
	if err != nil {
		return err
	}
	memtx.AfterCommit(ctx, func() {
		s.mu.Lock()
		s.msgs = append(s.msgs, msg)
		s.mu.Unlock()
	})
	return nil
}

// FetchPending 取出待投递消息
func (s *MemoryStore) FetchPending(_ context.Context, limit int) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Message, 0, limit)
	for _, m := range s.msgs {
		if m.Status != StatusPending {
			continue
		}
		cp := *m
		out = append(out, &cp)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkSent 标记已投递，并从内存中移除
func (s *MemoryStore) MarkSent(_ context.Context, ids []string) error {
	sent := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		sent[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.msgs[:0]
	for _, m := range s.msgs {
		if _, ok := sent[m.ID]; ok {
			continue
		}
		kept = append(kept, m)
	}
	s.msgs = kept
	return nil
}

// MarkFailed 记录失败
func (s *MemoryStore) MarkFailed(_ context.Context, id string, cause error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID != id {
			continue
		}
		m.Attempts++
		m.LastError = cause.Error()
		m.UpdatedAt = time.Now()
		if m.Attempts >= MaxAttempts {
			m.Status = StatusFailed
		}
	}
	return nil
}

// Pending 待投递消息数
func (s *MemoryStore) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.msgs {
		if m.Status == StatusPending {
			n++
		}
	}
	return n
}
