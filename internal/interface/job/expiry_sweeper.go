// Package job 后台定时任务
package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/tracing"
)

const (
	tracerName = "bookstore-order/job"

	// ExpirySweepLockKey 多实例部署时只有持锁的实例执行清理
	ExpirySweepLockKey = "lock:order-expiry-sweep"
)

// Expirer 取消预留过期的待支付订单
type Expirer interface {
	ExpireReservations(ctx context.Context, now time.Time, batch int) (int, error)
}

// Locker 分布式锁
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(ctx context.Context) error, bool, error)
}

// ExpirySweeper 预留过期清理任务
//
// 每个周期：
//  1. 抢锁（锁的TTL等于周期，实例崩溃后锁自动过期）
//  2. 一次最多处理batch个订单，每个订单一个事务
//  3. 单个订单失败不影响其他订单，下个周期继续
type ExpirySweeper struct {
	expirer  Expirer
	locker   Locker
	interval time.Duration
	batch    int
	logger   *zap.Logger
	now      func() time.Time
}

// NewExpirySweeper 创建清理任务，locker为nil时不加锁（单实例）
func NewExpirySweeper(expirer Expirer, locker Locker, interval time.Duration, batch int, log *zap.Logger) *ExpirySweeper {
	return &ExpirySweeper{
		expirer:  expirer,
		locker:   locker,
		interval: interval,
		batch:    batch,
		logger:   log,
		now:      time.Now,
	}
}

// Run 阻塞运行直到ctx取消
func (s *ExpirySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Info(ctx, s.logger, "expiry sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), s.logger, "expiry sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce 执行一个周期，返回取消的订单数；没抢到锁返回0
func (s *ExpirySweeper) SweepOnce(ctx context.Context) int {
	ctx, span := tracing.StartSpan(ctx, tracerName, "ExpirySweeper.SweepOnce")
	defer span.End()

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx, ExpirySweepLockKey, s.interval)
		if err != nil {
			tracing.RecordError(span, err)
			logger.Warn(ctx, s.logger, "expiry sweep lock failed", zap.Error(err))
			return 0
		}
		if !ok {
			logger.Debug(ctx, s.logger, "expiry sweep skipped, lock held by another instance")
			return 0
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn(ctx, s.logger, "expiry sweep unlock failed", zap.Error(err))
			}
		}()
	}

	n, err := s.expirer.ExpireReservations(ctx, s.now(), s.batch)
	if err != nil {
		tracing.RecordError(span, err)
		logger.Error(ctx, s.logger, "expiry sweep failed", zap.Error(err))
	}
	return n
}
