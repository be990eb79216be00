package order

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/saga"
)

const checkoutCompensateReason = "购物车结算失败，订单撤销"

// CheckoutRequest 购物车结算请求
type CheckoutRequest struct {
	UserID   uint
	Address  order.Address
	CouponID *uint
	Discount int64
}

// CreateOrderFromCart 购物车结算
//
// 两步saga：
//  1. 按冻结单价下单（含库存预留）
//  2. 购物车 active 1 → 0（条件更新）
//
// 第2步失败说明购物车已被并发结算，补偿第1步：取消订单并释放预留，
// 保证同一个购物车最多只留下一个有效订单。
func (s *Service) CreateOrderFromCart(ctx context.Context, req CheckoutRequest) (*order.Order, error) {
	c, err := s.cartRepo.FindActiveByUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := c.EnsureCheckoutable(); err != nil {
		return nil, err
	}

	items := make([]CreateOrderItem, len(c.Items))
	for i, item := range c.Items {
		items[i] = CreateOrderItem{
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	var created *order.Order
	sg := saga.New("checkout", s.cfg.CheckoutTimeout, s.logger)
	sg.AddStep("create_order",
		func(ctx context.Context) error {
			o, err := s.CreateOrder(ctx, CreateOrderRequest{
				UserID:   req.UserID,
				Items:    items,
				Address:  req.Address,
				CouponID: req.CouponID,
				Discount: req.Discount,
			})
			if err != nil {
				return err
			}
			created = o
			return nil
		},
		func(ctx context.Context) error {
			_, err := s.CancelOrder(ctx, created.ID, SystemUser, checkoutCompensateReason)
			return err
		},
	)
	sg.AddStep("deactivate_cart",
		func(ctx context.Context) error {
			return s.cartRepo.Deactivate(ctx, c.ID)
		},
		nil,
	)

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	logger.Info(ctx, s.logger, "cart checked out",
		zap.Uint("cart_id", c.ID),
		zap.String("order_no", created.OrderNo),
	)
	return created, nil
}
