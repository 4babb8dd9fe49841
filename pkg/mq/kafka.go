// Package mq 提供 Kafka producer/consumer 封装，包含熔断、重试与死信队列
package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
)

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers        []string
	GroupID        string
	SessionTimeout int
	MaxRetries     int
	// 重试退避（毫秒）
	RetryBackoff int
}

// Message Kafka 消息结构
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Value     []byte
	Headers   map[string]string
	Time      time.Time
}

// UnmarshalPayload 将消息值解析为 JSON
func (m *Message) UnmarshalPayload(dest any) error {
	return json.Unmarshal(m.Value, dest)
}

// KafkaProducer Kafka 生产者，写入经过熔断器保护
type KafkaProducer struct {
	writer  *kafka.Writer
	breaker *gobreaker.CircuitBreaker
}

// NewProducer 创建 Kafka 生产者
func NewProducer(cfg KafkaConfig) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            max(cfg.MaxRetries, 1),
		WriteBackoffMin:        time.Duration(cfg.RetryBackoff) * time.Millisecond,
		WriteBackoffMax:        time.Duration(cfg.RetryBackoff*10) * time.Millisecond,
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-producer",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	logger.Info(context.Background(), "Kafka producer created", "brokers", cfg.Brokers)
	return &KafkaProducer{writer: writer, breaker: breaker}
}

// Send 发送单条消息
func (kp *KafkaProducer) Send(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	for k, v := range headers {
		msg.Headers = append(msg.Headers, kafka.Header{Key: k, Value: []byte(v)})
	}

	_, err := kp.breaker.Execute(func() (any, error) {
		return nil, kp.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		logger.Error(ctx, "Failed to send Kafka message", "topic", topic, "key", key, "error", err)
		return fmt.Errorf("kafka send %s: %w", topic, err)
	}
	logger.Debug(ctx, "Kafka message sent", "topic", topic, "key", key)
	return nil
}

// SendJSON 序列化后发送
func (kp *KafkaProducer) SendJSON(ctx context.Context, topic, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return kp.Send(ctx, topic, key, data, nil)
}

// Close 关闭生产者
func (kp *KafkaProducer) Close() error {
	return kp.writer.Close()
}

// Handler 消息处理函数
type Handler func(ctx context.Context, msg *Message) error

// KafkaConsumer Kafka 消费组消费者
type KafkaConsumer struct {
	reader     *kafka.Reader
	dlq        *DeadLetterQueue
	maxRetries int
	backoff    time.Duration
}

// NewConsumer 创建订阅多个 topic 的消费者，dlq 可为 nil
func NewConsumer(cfg KafkaConfig, topics []string, dlq *DeadLetterQueue) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		GroupTopics:    topics,
		SessionTimeout: time.Duration(cfg.SessionTimeout) * time.Second,
		StartOffset:    kafka.FirstOffset,
		MaxBytes:       10e6,
	})

	logger.Info(context.Background(), "Kafka consumer created",
		"brokers", cfg.Brokers,
		"topics", topics,
		"group_id", cfg.GroupID,
	)
	return &KafkaConsumer{
		reader:     reader,
		dlq:        dlq,
		maxRetries: max(cfg.MaxRetries, 1),
		backoff:    time.Duration(cfg.RetryBackoff) * time.Millisecond,
	}
}

// Run 循环拉取消息并交给 handler，处理完成后提交位点。
// handler 重试耗尽后消息转入死信队列，随后同样提交。ctx 取消时返回 nil
func (kc *KafkaConsumer) Run(ctx context.Context, handler Handler) error {
	for {
		km, err := kc.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("kafka fetch: %w", err)
		}

		msg := fromKafka(km)
		if err := kc.handle(ctx, handler, msg); err != nil {
			if kc.dlq == nil {
				return err
			}
			if dlqErr := kc.dlq.Send(ctx, msg, "handler failed", err); dlqErr != nil {
				return fmt.Errorf("dead letter %s@%d: %w", msg.Topic, msg.Offset, dlqErr)
			}
		}

		if err := kc.reader.CommitMessages(ctx, km); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("kafka commit: %w", err)
		}
	}
}

func (kc *KafkaConsumer) handle(ctx context.Context, handler Handler, msg *Message) error {
	var err error
	for attempt := 1; attempt <= kc.maxRetries; attempt++ {
		if err = handler(ctx, msg); err == nil {
			return nil
		}
		logger.Warn(ctx, "Kafka message handling failed",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(kc.backoff * time.Duration(attempt)):
		}
	}
	return err
}

// Close 关闭消费者
func (kc *KafkaConsumer) Close() error {
	return kc.reader.Close()
}

func fromKafka(km kafka.Message) *Message {
	msg := &Message{
		Topic:     km.Topic,
		Partition: km.Partition,
		Offset:    km.Offset,
		Key:       string(km.Key),
		Value:     km.Value,
		Time:      km.Time,
	}
	if len(km.Headers) > 0 {
		msg.Headers = make(map[string]string, len(km.Headers))
		for _, h := range km.Headers {
			msg.Headers[h.Key] = string(h.Value)
		}
	}
	return msg
}

// DeadLetterQueue 死信队列
type DeadLetterQueue struct {
	producer *KafkaProducer
	topic    string
}

// NewDeadLetterQueue 创建死信队列
func NewDeadLetterQueue(producer *KafkaProducer, topic string) *DeadLetterQueue {
	return &DeadLetterQueue{producer: producer, topic: topic}
}

// Send 发送消息到死信队列
func (dlq *DeadLetterQueue) Send(ctx context.Context, original *Message, reason string, err error) error {
	return dlq.producer.SendJSON(ctx, dlq.topic, original.Key, map[string]any{
		"original_topic":    original.Topic,
		"original_key":      original.Key,
		"original_value":    string(original.Value),
		"original_offset":   original.Offset,
		"original_time":     original.Time,
		"failure_reason":    reason,
		"failure_error":     err.Error(),
		"failure_timestamp": time.Now(),
	})
}
