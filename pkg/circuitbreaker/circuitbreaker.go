// Package circuitbreaker 在gobreaker之上补充日志和Prometheus指标
//
// 三种状态：
//   - CLOSED：请求正常通过，统计失败次数
//   - OPEN：快速失败，Timeout之后进入HALF_OPEN
//   - HALF_OPEN：放行MaxRequests个探测请求，成功则CLOSED，失败则回到OPEN
//
// 用于保护消息发布等外部依赖：下游不可用时不再阻塞事务提交后的流程。
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/pkg/metrics"
)

// State 熔断器状态
type State = gobreaker.State

const (
	StateClosed   = gobreaker.StateClosed
	StateHalfOpen = gobreaker.StateHalfOpen
	StateOpen     = gobreaker.StateOpen
)

// ErrOpenState 熔断器打开，请求被拒绝
var ErrOpenState = gobreaker.ErrOpenState

// ErrTooManyRequests 半开状态探测请求数已满
var ErrTooManyRequests = gobreaker.ErrTooManyRequests

// Config 熔断器配置
type Config struct {
	// MaxRequests 半开状态允许的探测请求数
	MaxRequests uint32
	// Interval 关闭状态下统计窗口，0表示不清零
	Interval time.Duration
	// Timeout OPEN状态持续时间
	Timeout time.Duration
	// ConsecutiveFailures 连续失败多少次触发熔断
	ConsecutiveFailures uint32
	// IsSuccessful 判断一次调用是否算成功，默认err==nil
	IsSuccessful func(err error) bool
}

// DefaultConfig 默认配置：连续失败5次熔断30秒
func DefaultConfig() Config {
	return Config{
		MaxRequests:         1,
		Interval:            60 * time.Second,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// CircuitBreaker 带指标上报的熔断器
type CircuitBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

// New 创建熔断器
func New(name string, cfg Config, logger *zap.Logger) *CircuitBreaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:         name,
		MaxRequests:  cfg.MaxRequests,
		Interval:     cfg.Interval,
		Timeout:      cfg.Timeout,
		IsSuccessful: cfg.IsSuccessful,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			reportState(name, to)
		},
	}

	reportState(name, gobreaker.StateClosed)
	return &CircuitBreaker{name: name, cb: gobreaker.NewCircuitBreaker(settings)}
}

// Execute 在熔断器保护下执行fn
// 熔断时返回ErrOpenState/ErrTooManyRequests，不调用fn
func (b *CircuitBreaker) Execute(fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	result := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	if metrics.CircuitBreakerRequests != nil {
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, result).Inc()
	}
	return err
}

// State 当前状态
func (b *CircuitBreaker) State() State {
	return b.cb.State()
}

// Counts 当前统计窗口内的计数
func (b *CircuitBreaker) Counts() gobreaker.Counts {
	return b.cb.Counts()
}

// Name 熔断器名称
func (b *CircuitBreaker) Name() string {
	return b.name
}

// reportState 指标取值：0=CLOSED, 1=OPEN, 2=HALF_OPEN
func reportState(name string, s gobreaker.State) {
	if metrics.CircuitBreakerState == nil {
		return
	}
	var v float64
	switch s {
	case gobreaker.StateOpen:
		v = 1
	case gobreaker.StateHalfOpen:
		v = 2
	}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(v)
}
