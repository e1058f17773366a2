// Package metrics 提供基于Prometheus的指标
//
// 指标分为三类:
// 1. HTTP请求: 请求数、耗时、处理中的请求数
// 2. 库存与预约: 协调器每个操作的结果与耗时、锁等待、对账修正
// 3. 基础设施: 熔断器、Saga补偿、消息发布
//
// 使用示例:
//
//	metrics.InitMetrics()
//	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
//
//	timer := time.Now()
//	err := doCreateReservation(ctx)
//	metrics.ObserveOperation("create_reservation", err, time.Since(timer))
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	apperrors "github.com/xiebiao/library/pkg/errors"
)

// 操作结果标签
const (
	ResultSuccess  = "success"
	ResultRejected = "rejected" // 参数/业务规则拒绝、资源不存在
	ResultError    = "error"    // 存储不可用、锁超时、内部错误
)

var (
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// 库存与预约指标

	// InventoryOperationsTotal 协调器操作总数
	// 标签：operation（create_book/create_reservation/...）、result、reason（业务拒绝原因码）
	InventoryOperationsTotal *prometheus.CounterVec

	// InventoryOperationDuration 协调器操作耗时(含等待锁)
	InventoryOperationDuration *prometheus.HistogramVec

	// LockWaitDuration 获取锁的等待时间
	// 标签：scope（stock/book/user）
	LockWaitDuration *prometheus.HistogramVec

	// LockTimeoutsTotal 等待锁超时次数
	LockTimeoutsTotal *prometheus.CounterVec

	// ReconcileRunsTotal 对账执行次数
	// 标签：result（success/error）
	ReconcileRunsTotal *prometheus.CounterVec

	// ReconcileCorrectionsTotal 对账修正的图书数
	ReconcileCorrectionsTotal prometheus.Counter

	// 熔断器指标

	// CircuitBreakerState 熔断器状态
	// 0=CLOSED, 1=OPEN, 2=HALF_OPEN
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// Saga指标

	// SagaCompensationsTotal Saga补偿执行总数
	// 标签：operation
	SagaCompensationsTotal *prometheus.CounterVec

	// 消息队列指标

	// MessagesPublishedTotal 消息发布总数
	// 标签：exchange、routing_key、result（success/error）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 初始化所有Prometheus指标
// 可重复调用,只会注册一次
func InitMetrics() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	InventoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_inventory_operations_total",
			Help: "库存协调器操作总数",
		},
		[]string{"operation", "result", "reason"},
	)

	InventoryOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "library_inventory_operation_duration_seconds",
			Help:    "库存协调器操作耗时（秒）",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"operation"},
	)

	LockWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "library_lock_wait_duration_seconds",
			Help:    "等待库存锁的时间（秒）",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 0.5, 1, 5},
		},
		[]string{"scope"},
	)

	LockTimeoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_lock_timeouts_total",
			Help: "等待库存锁超时次数",
		},
		[]string{"scope"},
	)

	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "library_reconcile_runs_total",
			Help: "可借副本对账执行次数",
		},
		[]string{"result"},
	)

	ReconcileCorrectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "library_reconcile_corrections_total",
			Help: "对账修正的图书数",
		},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "熔断器请求总数",
		},
		[]string{"name", "result"},
	)

	SagaCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Saga补偿执行总数",
		},
		[]string{"operation"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)
}

// ResultOf 将操作错误归类为结果标签
func ResultOf(err error) string {
	if err == nil {
		return ResultSuccess
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation, apperrors.KindPolicy, apperrors.KindNotFound, apperrors.KindAuth:
		return ResultRejected
	default:
		return ResultError
	}
}

// ObserveOperation 记录一次协调器操作的结果与耗时
func ObserveOperation(operation string, err error, elapsed time.Duration) {
	InitMetrics()
	InventoryOperationsTotal.WithLabelValues(operation, ResultOf(err), apperrors.ReasonOf(err)).Inc()
	InventoryOperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveLockWait 记录一次锁等待
func ObserveLockWait(scope string, err error, waited time.Duration) {
	InitMetrics()
	LockWaitDuration.WithLabelValues(scope).Observe(waited.Seconds())
	if err != nil {
		LockTimeoutsTotal.WithLabelValues(scope).Inc()
	}
}

// IncCounterVec 递增CounterVec（带标签）
func IncCounterVec(counter *prometheus.CounterVec, labels map[string]string) {
	counter.With(labels).Inc()
}

// SetGaugeVec 设置GaugeVec值（带标签）
func SetGaugeVec(gauge *prometheus.GaugeVec, labels map[string]string, value float64) {
	gauge.With(labels).Set(value)
}

// ObserveHistogramVec 记录HistogramVec观测值（带标签）
func ObserveHistogramVec(histogram *prometheus.HistogramVec, labels map[string]string, value float64) {
	histogram.With(labels).Observe(value)
}
