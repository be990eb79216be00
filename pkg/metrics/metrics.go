// Package metrics 订单与库存引擎的Prometheus指标
//
// 指标分四组：
//   - HTTP：请求数、耗时、处理中请求数
//   - 领域：库存变更、订单状态流转、预留过期、事务重试、缓存命中
//   - 熔断器/Saga：由pkg/circuitbreaker和pkg/saga上报
//   - 消息：事件发布数
//
// 使用前调用一次InitMetrics，之后通过/metrics端点（promhttp.Handler）暴露。
//
// 命名规范：Counter以_total结尾，Histogram以单位结尾（_seconds）。
// 标签只使用有限取值（operation、status、result），不要用order_id、book_id做标签。
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	initOnce sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数
	// 标签：method、path（路由模板，如/api/v1/orders/:id）、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// 库存指标

	// StockMutationsTotal 库存变更次数
	// 标签：operation（increase/decrease/adjust/reserve/release/confirm）、result（success/failure）
	StockMutationsTotal *prometheus.CounterVec

	// LowStockEventsTotal 变更后进入低库存区间的次数
	LowStockEventsTotal prometheus.Counter

	// StockCacheRequestsTotal 库存缓存读取
	// 标签：result（hit/miss/error）
	StockCacheRequestsTotal *prometheus.CounterVec

	// 订单指标

	// OrdersCreatedTotal 订单创建总数
	OrdersCreatedTotal prometheus.Counter

	// OrdersFailedTotal 订单创建失败总数
	OrdersFailedTotal prometheus.Counter

	// OrderCreationDuration 订单创建耗时（含预留库存）
	OrderCreationDuration prometheus.Histogram

	// OrderTransitionsTotal 订单状态流转次数
	// 标签：to（paid/shipped/completed/cancelled）
	OrderTransitionsTotal *prometheus.CounterVec

	// ReservationsExpiredTotal 过期释放的预留数
	ReservationsExpiredTotal prometheus.Counter

	// 事务指标

	// TxRetriesTotal 死锁/锁等待超时导致的事务重试次数
	// 标签：reason（deadlock/lock_timeout）
	TxRetriesTotal *prometheus.CounterVec

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerRequests 熔断器请求总数
	// 标签：name、result（success/failure/rejected）
	CircuitBreakerRequests *prometheus.CounterVec

	// Saga指标

	// SagaExecutionsTotal Saga执行总数
	// 标签：saga（名称）、result（success/failure）
	SagaExecutionsTotal *prometheus.CounterVec

	// SagaExecutionDuration Saga执行耗时
	SagaExecutionDuration prometheus.Histogram

	// SagaCompensationsTotal Saga补偿执行总数
	SagaCompensationsTotal prometheus.Counter

	// 消息指标

	// MessagesPublishedTotal 消息发布总数
	// 标签：exchange、routing_key、result（success/failure）
	MessagesPublishedTotal *prometheus.CounterVec
)

// InitMetrics 注册所有指标到默认Registry
// 可重复调用，只有第一次生效
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

	StockMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_mutations_total",
			Help: "库存变更次数",
		},
		[]string{"operation", "result"},
	)

	LowStockEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_low_events_total",
			Help: "进入低库存区间的次数",
		},
	)

	StockCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stock_cache_requests_total",
			Help: "库存缓存读取次数",
		},
		[]string{"result"},
	)

	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "订单创建总数",
		},
	)

	OrdersFailedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "orders_failed_total",
			Help: "订单创建失败总数",
		},
	)

	OrderCreationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "order_creation_duration_seconds",
			Help: "订单创建耗时（秒）",
			// 包含行锁等待，桶比普通请求宽
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "订单状态流转次数",
		},
		[]string{"to"},
	)

	ReservationsExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stock_reservations_expired_total",
			Help: "过期释放的库存预留数",
		},
	)

	TxRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_tx_retries_total",
			Help: "数据库事务重试次数",
		},
		[]string{"reason"},
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

	SagaExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_executions_total",
			Help: "Saga执行总数",
		},
		[]string{"saga", "result"},
	)

	SagaExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "saga_execution_duration_seconds",
			Help:    "Saga执行耗时（秒）",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	SagaCompensationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Saga补偿执行总数",
		},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"exchange", "routing_key", "result"},
	)
}

// Result 把error转换为result标签值
func Result(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordStockMutation 记录一次库存变更
func RecordStockMutation(operation string, err error) {
	if StockMutationsTotal == nil {
		return
	}
	StockMutationsTotal.WithLabelValues(operation, Result(err)).Inc()
}

// RecordOrderTransition 记录一次订单状态流转
func RecordOrderTransition(to string) {
	if OrderTransitionsTotal == nil {
		return
	}
	OrderTransitionsTotal.WithLabelValues(to).Inc()
}

// RecordTxRetry 记录一次事务重试
func RecordTxRetry(reason string) {
	if TxRetriesTotal == nil {
		return
	}
	TxRetriesTotal.WithLabelValues(reason).Inc()
}

// RecordStockCache 记录一次缓存读取
func RecordStockCache(result string) {
	if StockCacheRequestsTotal == nil {
		return
	}
	StockCacheRequestsTotal.WithLabelValues(result).Inc()
}

// IncCounter 递增Counter，未初始化时忽略
func IncCounter(counter prometheus.Counter) {
	if counter == nil {
		return
	}
	counter.Inc()
}

// AddCounter 累加Counter
func AddCounter(counter prometheus.Counter, v float64) {
	if counter == nil {
		return
	}
	counter.Add(v)
}

// ObserveHistogram 记录Histogram观测值
func ObserveHistogram(histogram prometheus.Histogram, value float64) {
	if histogram == nil {
		return
	}
	histogram.Observe(value)
}
