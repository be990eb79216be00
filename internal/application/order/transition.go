package order

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/tracing"
)

// SystemUser 管理员或系统任务（超时取消）调用时传入的用户ID，不做归属校验
const SystemUser uint = 0

// step 一次状态流转
type step struct {
	target order.Status
	event  event.Type
	apply  func(o *order.Order, now time.Time) error
	// stock 流转对应的库存变更，在订单行锁之后执行
	stock func(ctx context.Context, o *order.Order) error
}

// transition 锁定订单 → 领域流转 → 库存变更 → 保存，同一事务
// 加锁顺序：订单行 → 预留行 → 库存行
func (s *Service) transition(ctx context.Context, orderID, userID uint, st step) (*order.Order, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "OrderService.To"+st.target.Code())
	defer span.End()
	span.SetAttributes(attribute.Int("order_id", int(orderID)))

	var result *order.Order
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		o, err := s.orderRepo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if userID != SystemUser && !o.IsOwnedBy(userID) {
			return order.ErrOrderNotFound.Withf("订单%d", orderID)
		}

		from := o.Status
		if err := st.apply(o, s.now()); err != nil {
			return err
		}
		if st.stock != nil {
			if err := st.stock(ctx, o); err != nil {
				return err
			}
		}
		if err := s.orderRepo.Update(ctx, o); err != nil {
			return err
		}

		s.publishOrderEvent(ctx, st.event, o)
		logger.Info(ctx, s.logger, "order status changed",
			zap.String("order_no", o.OrderNo),
			zap.String("from", from.Code()),
			zap.String("to", o.Status.Code()),
		)
		result = o
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	recordTransition(st.target)
	return result, nil
}

// PayOrder 支付：待支付 → 已支付，同一事务内把预留转为出库
// 预留已过期但尚未被清理时仍允许支付
func (s *Service) PayOrder(ctx context.Context, orderID, userID uint) (*order.Order, error) {
	return s.transition(ctx, orderID, userID, step{
		target: order.StatusPaid,
		event:  event.OrderPaid,
		apply:  func(o *order.Order, now time.Time) error { return o.Pay(now) },
		stock: func(ctx context.Context, o *order.Order) error {
			return s.stock.ConfirmForOrder(ctx, o.ID, o.OrderNo)
		},
	})
}

// ShipOrder 发货：已支付 → 已发货（管理员）
func (s *Service) ShipOrder(ctx context.Context, orderID uint, note string) (*order.Order, error) {
	return s.transition(ctx, orderID, SystemUser, step{
		target: order.StatusShipped,
		event:  event.OrderShipped,
		apply:  func(o *order.Order, now time.Time) error { return o.Ship(note, now) },
	})
}

// CompleteOrder 确认收货：已发货 → 已完成
func (s *Service) CompleteOrder(ctx context.Context, orderID, userID uint) (*order.Order, error) {
	return s.transition(ctx, orderID, userID, step{
		target: order.StatusCompleted,
		event:  event.OrderCompleted,
		apply:  func(o *order.Order, now time.Time) error { return o.Complete(now) },
	})
}

// CancelOrder 取消：待支付 → 已取消，同一事务内释放预留
func (s *Service) CancelOrder(ctx context.Context, orderID, userID uint, reason string) (*order.Order, error) {
	return s.transition(ctx, orderID, userID, step{
		target: order.StatusCancelled,
		event:  event.OrderCancelled,
		apply:  func(o *order.Order, now time.Time) error { return o.Cancel(reason, now) },
		stock: func(ctx context.Context, o *order.Order) error {
			return s.stock.ReleaseForOrder(ctx, o.ID)
		},
	})
}

// UpdateOrderStatus 管理员按目标状态流转
// note在发货时作为物流备注，取消时作为取消原因
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID uint, target order.Status, note string) (*order.Order, error) {
	switch target {
	case order.StatusPaid:
		return s.PayOrder(ctx, orderID, SystemUser)
	case order.StatusShipped:
		return s.ShipOrder(ctx, orderID, note)
	case order.StatusCompleted:
		return s.CompleteOrder(ctx, orderID, SystemUser)
	case order.StatusCancelled:
		return s.CancelOrder(ctx, orderID, SystemUser, note)
	case order.StatusPending:
		return nil, order.ErrInvalidStatusTransition.Withf("不能变更为%s", target)
	default:
		return nil, order.ErrInvalidStatus.Withf("%d", int(target))
	}
}
