package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"github.com/wyfcoding/tokenexchange/pkg/metrics"
	"github.com/wyfcoding/tokenexchange/pkg/mq"
)

// MaxAttempts 单条消息最大投递次数
const MaxAttempts = 10

// Relay 轮询发件箱并投递
type Relay struct {
	store     Store
	sink      Sink
	interval  time.Duration
	batchSize int
	metrics   *metrics.Metrics
}

// NewRelay 创建 Relay
func NewRelay(store Store, sink Sink, interval time.Duration, batchSize int, m *metrics.Metrics) *Relay {
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Relay{store: store, sink: sink, interval: interval, batchSize: batchSize, metrics: m}
}

// Run 周期性投递直到 ctx 取消
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	logger.Info(ctx, "outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Error(ctx, "outbox relay batch failed", "error", err)
			}
		}
	}
}

// ProcessOnce 投递一批消息，返回成功条数。单条失败不阻塞后续消息
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	msgs, err := r.store.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch pending outbox messages: %w", err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	sent := make([]string, 0, len(msgs))
	failed := 0
	for _, msg := range msgs {
		if err := r.sink.Deliver(ctx, msg); err != nil {
			failed++
			logger.Warn(ctx, "outbox delivery failed", "id", msg.ID, "topic", msg.Topic, "error", err)
			if markErr := r.store.MarkFailed(ctx, msg.ID, err); markErr != nil {
				return len(sent), fmt.Errorf("mark outbox message failed: %w", markErr)
			}
			continue
		}
		sent = append(sent, msg.ID)
	}

	if err := r.store.MarkSent(ctx, sent); err != nil {
		return 0, fmt.Errorf("mark outbox messages sent: %w", err)
	}
	r.metrics.RecordOutbox(len(sent), failed)
	return len(sent), nil
}

// KafkaSink 投递到 Kafka，topic 即消息 topic
type KafkaSink struct {
	producer *mq.KafkaProducer
}

// NewKafkaSink 创建 KafkaSink
func NewKafkaSink(producer *mq.KafkaProducer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

// Deliver 发送到 Kafka
func (s *KafkaSink) Deliver(ctx context.Context, msg *Message) error {
	return s.producer.Send(ctx, msg.Topic, msg.MsgKey, msg.Payload, map[string]string{"outbox_id": msg.ID})
}

// Dispatcher 进程内投递，Kafka 关闭时把消息直接交给订阅方
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]mq.Handler
}

// NewDispatcher 创建 Dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]mq.Handler)}
}

// Subscribe 订阅 topic
func (d *Dispatcher) Subscribe(topic string, h mq.Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[topic] = append(d.handlers[topic], h)
}

// Deliver 依次调用订阅方，无订阅方的消息直接视为已投递
func (d *Dispatcher) Deliver(ctx context.Context, msg *Message) error {
	d.mu.RLock()
	hs := d.handlers[msg.Topic]
	d.mu.RUnlock()

	m := &mq.Message{
		Topic:   msg.Topic,
		Key:     msg.MsgKey,
		Value:   msg.Payload,
		Headers: map[string]string{"outbox_id": msg.ID},
		Time:    msg.CreatedAt,
	}
	for _, h := range hs {
		if err := h(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
