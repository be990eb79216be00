package order

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/application/inventory"
	"github.com/xiebiao/bookstore-order/internal/domain/book"
	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/metrics"
	"github.com/xiebiao/bookstore-order/pkg/tracing"
)

// CreateOrderRequest 下单请求
type CreateOrderRequest struct {
	UserID   uint // 买家（从JWT中提取）
	Items    []CreateOrderItem
	Address  order.Address
	CouponID *uint
	Discount int64 // 优惠金额（分），由优惠服务计算后传入
}

// CreateOrderItem 下单明细
type CreateOrderItem struct {
	BookID      uint
	WarehouseID uint  // 0表示默认仓库
	Quantity    int
	UnitPrice   int64 // 冻结价格（购物车），0表示按当前售价
}

// CreateOrder 创建待支付订单并预留库存
//
// 流程（同一事务）：
//  1. 校验明细，解析图书和单价
//  2. 生成订单号并插入订单，订单号冲突时重新生成
//  3. 按库存行顺序加锁预留，写入ACTIVE预留记录
//
// 任一步失败整个事务回滚：不会出现有订单没预留，或有预留没订单。
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (result *order.Order, err error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "OrderService.CreateOrder")
	defer span.End()
	span.SetAttributes(attribute.Int("user_id", int(req.UserID)), attribute.Int("items", len(req.Items)))

	start := time.Now()
	defer func() {
		metrics.ObserveHistogram(metrics.OrderCreationDuration, time.Since(start).Seconds())
		if err != nil {
			metrics.IncCounter(metrics.OrdersFailedTotal)
			tracing.RecordError(span, err)
			return
		}
		metrics.IncCounter(metrics.OrdersCreatedTotal)
	}()

	items, err := s.resolveItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	// 事务外先校验一次，参数错误不占用行锁
	if _, err := order.NewOrder("", req.UserID, items, req.Address, req.CouponID, req.Discount, s.now()); err != nil {
		return nil, err
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		// 事务可能因死锁整体重试，每次都重新构建订单
		now := s.now()
		o, err := s.insertOrder(ctx, req, items, now)
		if err != nil {
			return err
		}

		lines := make([]inventory.Line, len(o.Items))
		for i, item := range o.Items {
			lines[i] = inventory.Line{BookID: item.BookID, WarehouseID: item.WarehouseID, Quantity: item.Quantity}
		}
		if err := s.stock.ReserveForOrder(ctx, o.ID, lines, now.Add(s.cfg.ReservationTTL)); err != nil {
			return err
		}

		s.publishOrderEvent(ctx, event.OrderCreated, o)
		result = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, s.logger, "order created",
		zap.Uint("order_id", result.ID),
		zap.String("order_no", result.OrderNo),
		zap.Uint("user_id", result.UserID),
		zap.Int64("final_amount", result.FinalAmount),
	)
	return result, nil
}

// resolveItems 校验数量，补全仓库和单价
// 单价优先使用调用方冻结的价格，否则取图书当前售价
func (s *Service) resolveItems(ctx context.Context, reqItems []CreateOrderItem) ([]order.OrderItem, error) {
	if len(reqItems) == 0 {
		return nil, order.ErrEmptyItems
	}

	ids := make([]uint, 0, len(reqItems))
	for _, item := range reqItems {
		if item.Quantity <= 0 {
			return nil, order.ErrInvalidQuantity.Withf("图书%d 数量%d", item.BookID, item.Quantity)
		}
		ids = append(ids, item.BookID)
	}

	books, err := s.bookRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]order.OrderItem, len(reqItems))
	for i, item := range reqItems {
		b, ok := books[item.BookID]
		if !ok {
			return nil, book.ErrBookNotFound.Withf("图书%d", item.BookID)
		}

		price := item.UnitPrice
		if price <= 0 {
			if !b.IsPurchasable() {
				return nil, book.ErrNotPurchasable.Withf("《%s》", b.Title)
			}
			price = b.Price
		}

		warehouseID := item.WarehouseID
		if warehouseID == 0 {
			warehouseID = s.cfg.DefaultWarehouseID
		}

		items[i] = order.OrderItem{
			BookID:      item.BookID,
			WarehouseID: warehouseID,
			Quantity:    item.Quantity,
			UnitPrice:   price,
		}
	}
	return items, nil
}

// insertOrder 插入订单，订单号唯一索引冲突时重新生成
// 唯一键冲突只回滚当前语句，不影响所在事务
func (s *Service) insertOrder(ctx context.Context, req CreateOrderRequest, items []order.OrderItem, now time.Time) (*order.Order, error) {
	for attempt := 0; attempt < s.cfg.OrderNoRetries; attempt++ {
		o, err := order.NewOrder(s.genOrderNo(now), req.UserID, items, req.Address, req.CouponID, req.Discount, now)
		if err != nil {
			return nil, err
		}

		err = s.orderRepo.Create(ctx, o)
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, order.ErrDuplicateOrderNo) {
			return nil, err
		}
		logger.Warn(ctx, s.logger, "order no collision, regenerating",
			zap.String("order_no", o.OrderNo),
			zap.Int("attempt", attempt+1),
		)
	}
	return nil, order.ErrOrderNoExhausted.Withf("重试%d次", s.cfg.OrderNoRetries)
}
