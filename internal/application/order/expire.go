package order

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/metrics"
)

const (
	expireReason = "支付超时，系统自动取消"

	// maxExpirePages 一轮最多翻页次数（只有整页都有失败时才翻页）
	maxExpirePages = 10
)

// ExpireReservations 取消预留已过期的待支付订单并释放库存
// 每个订单一个事务，单个订单失败只记录日志，继续处理其余订单。
// 本轮失败的订单会被跳过再取下一页，避免排在最前的失败订单挡住后面的订单。
// 返回本次取消的订单数。
func (s *Service) ExpireReservations(ctx context.Context, now time.Time, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}

	var failed []uint
	cancelled := 0
	for page := 0; page < maxExpirePages; page++ {
		ids, err := s.stock.ListExpiredOrders(ctx, now, failed, batch)
		if err != nil {
			return cancelled, err
		}

		pageFailed := 0
		for _, id := range ids {
			if ctx.Err() != nil {
				return cancelled, ctx.Err()
			}

			ok, err := s.expireOne(ctx, id)
			if err != nil {
				logger.Error(ctx, s.logger, "expire order failed", zap.Uint("order_id", id), zap.Error(err))
				failed = append(failed, id)
				pageFailed++
				continue
			}
			if ok {
				cancelled++
			}
		}

		if pageFailed == 0 || len(ids) < batch {
			break
		}
	}

	if cancelled > 0 {
		metrics.AddCounter(metrics.ReservationsExpiredTotal, float64(cancelled))
		logger.Info(ctx, s.logger, "expired orders cancelled", zap.Int("count", cancelled))
	}
	return cancelled, nil
}

// expireOne 订单仍待支付时取消；已不是待支付（刚好被支付或取消）时只清理残留预留
func (s *Service) expireOne(ctx context.Context, orderID uint) (bool, error) {
	_, err := s.transition(ctx, orderID, SystemUser, step{
		target: order.StatusCancelled,
		event:  event.OrderCancelled,
		apply:  func(o *order.Order, now time.Time) error { return o.Cancel(expireReason, now) },
		stock: func(ctx context.Context, o *order.Order) error {
			return s.stock.ReleaseForOrder(ctx, o.ID)
		},
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, order.ErrInvalidStatusTransition) {
		return false, err
	}

	logger.Warn(ctx, s.logger, "expired reservation on non-pending order, releasing", zap.Uint("order_id", orderID))
	return false, s.stock.ReleaseForOrder(ctx, orderID)
}
