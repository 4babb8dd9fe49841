// Package consumer 成交事件投影到持仓账本
package consumer

import (
	"context"
	"fmt"

	"github.com/wyfcoding/tokenexchange/internal/portfolio/application"
	"github.com/wyfcoding/tokenexchange/pkg/logger"
	"github.com/wyfcoding/tokenexchange/pkg/metrics"
	"github.com/wyfcoding/tokenexchange/pkg/mq"
)

// TopicTradeExecuted 订阅的成交事件 topic
const TopicTradeExecuted = "exchange.trade.executed"

// TradeConsumer 成交事件处理器，可挂在 Kafka 消费者或进程内 Dispatcher 上
type TradeConsumer struct {
	svc     *application.PortfolioService
	metrics *metrics.Metrics
}

// NewTradeConsumer 创建 TradeConsumer
func NewTradeConsumer(svc *application.PortfolioService, m *metrics.Metrics) *TradeConsumer {
	return &TradeConsumer{svc: svc, metrics: m}
}

// Handle 实现 mq.Handler。重复投递的成交被忽略
func (c *TradeConsumer) Handle(ctx context.Context, msg *mq.Message) error {
	var fill application.TradeFill
	if err := msg.UnmarshalPayload(&fill); err != nil {
		c.metrics.RecordConsumed(msg.Topic, "malformed")
		return fmt.Errorf("decode trade event at %s@%d: %w", msg.Topic, msg.Offset, err)
	}

	applied, err := c.svc.ApplyTrade(ctx, fill)
	if err != nil {
		c.metrics.RecordConsumed(msg.Topic, "error")
		return fmt.Errorf("apply trade %s:%d: %w", fill.Instrument, fill.TradeID, err)
	}
	if !applied {
		c.metrics.RecordConsumed(msg.Topic, "duplicate")
		logger.Debug(ctx, "duplicate trade event ignored", "instrument", fill.Instrument, "trade_id", fill.TradeID)
		return nil
	}
	c.metrics.RecordConsumed(msg.Topic, "applied")
	return nil
}
