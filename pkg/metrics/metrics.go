// Package metrics 提供交易所 Prometheus 指标集合与暴露端点
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "exchange"

// Metrics 指标集合。nil 接收者上的记录方法均为空操作
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	GRPCRequestsTotal   *prometheus.CounterVec

	OrdersCreated     *prometheus.CounterVec
	OrdersCancelled   prometheus.Counter
	TradesTotal       prometheus.Counter
	TradedVolume      prometheus.Counter
	FeesCollected     prometheus.Counter
	EscrowTransitions *prometheus.CounterVec
	HoldingUpdates    *prometheus.CounterVec

	OutboxRelayed    prometheus.Counter
	OutboxFailures   prometheus.Counter
	ConsumerMessages *prometheus.CounterVec
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	serviceName = strings.ReplaceAll(serviceName, "-", "_")
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "http_requests_total", Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		GRPCRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "grpc_requests_total", Help: "Total gRPC requests",
		}, []string{"method", "code"}),

		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "orders_created_total", Help: "Orders created",
		}, []string{"side", "kind"}),
		OrdersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "orders_cancelled_total", Help: "Orders cancelled",
		}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "trades_total", Help: "Trades executed",
		}),
		TradedVolume: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "traded_volume_total", Help: "Filled quantity across all instruments",
		}),
		FeesCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "platform_fees_total", Help: "Platform fees collected in settlement units",
		}),
		EscrowTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "escrow_transitions_total", Help: "Escrow status transitions",
		}, []string{"status"}),
		HoldingUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "holding_updates_total", Help: "Holding updates",
		}, []string{"op"}),

		OutboxRelayed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "outbox_relayed_total", Help: "Outbox messages delivered",
		}),
		OutboxFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "outbox_failures_total", Help: "Outbox delivery failures",
		}),
		ConsumerMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: serviceName,
			Name: "consumer_messages_total", Help: "Consumed messages by result",
		}, []string{"topic", "result"}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal, m.HTTPRequestDuration, m.GRPCRequestsTotal,
		m.OrdersCreated, m.OrdersCancelled, m.TradesTotal, m.TradedVolume, m.FeesCollected,
		m.EscrowTransitions, m.HoldingUpdates,
		m.OutboxRelayed, m.OutboxFailures, m.ConsumerMessages,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("failed to register metric: %w", err)
		}
	}
	return nil
}

// NewServer 创建 Prometheus HTTP 服务器，由调用方负责启动与关闭
func NewServer(port int, path string, gatherer prometheus.Gatherer) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordGRPCRequest 记录 gRPC 请求
func (m *Metrics) RecordGRPCRequest(method, code string) {
	if m == nil {
		return
	}
	m.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
}

// RecordOrderCreated 记录下单
func (m *Metrics) RecordOrderCreated(side, kind string) {
	if m == nil {
		return
	}
	m.OrdersCreated.WithLabelValues(side, kind).Inc()
}

// RecordOrderCancelled 记录撤单
func (m *Metrics) RecordOrderCancelled() {
	if m == nil {
		return
	}
	m.OrdersCancelled.Inc()
}

// RecordTrade 记录成交数量与手续费
func (m *Metrics) RecordTrade(amount, fee uint64) {
	if m == nil {
		return
	}
	m.TradesTotal.Inc()
	m.TradedVolume.Add(float64(amount))
	m.FeesCollected.Add(float64(fee))
}

// RecordEscrow 记录托管状态变化
func (m *Metrics) RecordEscrow(status string) {
	if m == nil {
		return
	}
	m.EscrowTransitions.WithLabelValues(status).Inc()
}

// RecordHoldingUpdate 记录持仓更新
func (m *Metrics) RecordHoldingUpdate(op string) {
	if m == nil {
		return
	}
	m.HoldingUpdates.WithLabelValues(op).Inc()
}

// RecordOutbox 记录 outbox 投递结果
func (m *Metrics) RecordOutbox(sent, failed int) {
	if m == nil {
		return
	}
	m.OutboxRelayed.Add(float64(sent))
	m.OutboxFailures.Add(float64(failed))
}

// RecordConsumed 记录消费结果
func (m *Metrics) RecordConsumed(topic, result string) {
	if m == nil {
		return
	}
	m.ConsumerMessages.WithLabelValues(topic, result).Inc()
}
