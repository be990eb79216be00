// Package saga 顺序执行多个步骤，失败时按逆序执行已完成步骤的补偿
//
//	s := saga.New("checkout", 10*time.Second, logger)
//	s.AddStep("create_order", createOrder, cancelOrder)
//	s.AddStep("deactivate_cart", deactivateCart, nil)
//	err := s.Execute(ctx)
//
// 补偿使用独立的Context，避免因原请求超时导致补偿也无法执行。
package saga

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/metrics"
)

// Step 一个步骤：正向操作 + 可选的补偿操作
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga 步骤编排器，不可并发复用
type Saga struct {
	name     string
	steps    []Step
	executed []Step
	timeout  time.Duration
	logger   *zap.Logger
}

// New 创建Saga，timeout<=0表示不额外设置超时
func New(name string, timeout time.Duration, log *zap.Logger) *Saga {
	if log == nil {
		log = zap.NewNop()
	}
	return &Saga{
		name:    name,
		timeout: timeout,
		logger:  log,
	}
}

// AddStep 追加步骤
func (s *Saga) AddStep(name string, action, compensate func(ctx context.Context) error) {
	s.steps = append(s.steps, Step{
		Name:       name,
		Action:     action,
		Compensate: compensate,
	})
}

// Execute 依次执行所有步骤
// 任一步骤失败（或超时）时补偿已执行的步骤，返回的错误包装原始错误
func (s *Saga) Execute(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if metrics.SagaExecutionsTotal != nil {
			metrics.SagaExecutionsTotal.WithLabelValues(s.name, metrics.Result(err)).Inc()
		}
		metrics.ObserveHistogram(metrics.SagaExecutionDuration, time.Since(start).Seconds())
	}()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	for i, step := range s.steps {
		if ctxErr := ctx.Err(); ctxErr != nil {
			s.compensate(context.WithoutCancel(ctx))
			return fmt.Errorf("saga[%s]超时: %w", s.name, ctxErr)
		}

		if step.Action != nil {
			if err := step.Action(ctx); err != nil {
				logger.Warn(ctx, s.logger, "saga step failed, compensating",
					zap.String("saga", s.name),
					zap.String("step", step.Name),
					zap.Error(err),
				)
				s.compensate(context.WithoutCancel(ctx))
				return fmt.Errorf("saga[%s]步骤[%d:%s]执行失败: %w", s.name, i, step.Name, err)
			}
		}

		s.executed = append(s.executed, step)
	}

	s.executed = nil
	return nil
}

// compensate 逆序补偿，单个补偿失败只记录日志，继续补偿其余步骤
func (s *Saga) compensate(ctx context.Context) {
	for i := len(s.executed) - 1; i >= 0; i-- {
		step := s.executed[i]
		if step.Compensate == nil {
			continue
		}

		metrics.IncCounter(metrics.SagaCompensationsTotal)
		if err := step.Compensate(ctx); err != nil {
			logger.Error(ctx, s.logger, "saga compensation failed",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)
		}
	}

	s.executed = nil
}
