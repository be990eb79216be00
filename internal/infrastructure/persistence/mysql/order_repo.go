package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-order/internal/domain/order"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
// 1. Order、OrderItem、OrderAddress是一个聚合，一起创建
// 2. 查询时Preload明细和地址，避免N+1
// 3. 事务通过context传递
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单
// GORM会顺带插入Items和Address；order_no冲突转换为ErrDuplicateOrderNo
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	model := toOrderModel(o)
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return order.ErrDuplicateOrderNo.Withf("%s", o.OrderNo)
		}
		return apperrors.Wrap(err, "创建订单失败")
	}

	o.ID = model.ID
	for i := range o.Items {
		o.Items[i].ID = model.Items[i].ID
		o.Items[i].OrderID = model.ID
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.first(dbFrom(ctx, r.db).Where("id = ?", id), "ID=%d", id)
}

// FindByIDForUpdate SELECT ... FOR UPDATE 锁定订单行
// 同一订单的支付、取消、过期清理在这里串行化
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*order.Order, error) {
	db := dbFrom(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id)
	return r.first(db, "ID=%d", id)
}

// first Preload的子查询不带FOR UPDATE，明细不可变，不需要锁
func (r *orderRepository) first(db *gorm.DB, format string, arg interface{}) (*order.Order, error) {
	var model OrderModel
	err := db.Preload("Items").Preload("Address").First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound.Withf(format, arg)
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// Update 只更新订单头，明细和地址下单后不可变
func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	err := dbFrom(ctx, r.db).Model(&OrderModel{}).Where("id = ?", o.ID).Updates(map[string]interface{}{
		"status":          int(o.Status),
		"total_amount":    o.TotalAmount,
		"discount_amount": o.DiscountAmount,
		"final_amount":    o.FinalAmount,
		"coupon_id":       o.CouponID,
		"shipping_note":   o.ShippingNote,
		"cancel_reason":   o.CancelReason,
		"updated_at":      o.UpdatedAt,
		"paid_at":         o.PaidAt,
		"shipped_at":      o.ShippedAt,
		"completed_at":    o.CompletedAt,
		"cancelled_at":    o.CancelledAt,
	}).Error
	if err != nil {
		return apperrors.Wrap(err, "更新订单失败")
	}
	return nil
}

func (r *orderRepository) ListByUserID(ctx context.Context, userID uint, status *order.Status, page, pageSize int) ([]*order.Order, int64, error) {
	query := dbFrom(ctx, r.db).Model(&OrderModel{}).Where("user_id = ?", userID)
	if status != nil {
		query = query.Where("status = ?", int(*status))
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	var models []OrderModel
	err := query.Preload("Items").Preload("Address").
		Order("created_at DESC, id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// SumRevenue SELECT COALESCE(SUM(final_amount), 0) ... WHERE status = 4
func (r *orderRepository) SumRevenue(ctx context.Context, from, to time.Time) (int64, error) {
	var revenue int64
	err := dbFrom(ctx, r.db).Model(&OrderModel{}).
		Select("COALESCE(SUM(final_amount), 0)").
		Where("status = ? AND completed_at >= ? AND completed_at < ?", int(order.StatusCompleted), from, to).
		Scan(&revenue).Error
	if err != nil {
		return 0, apperrors.Wrap(err, "统计营收失败")
	}
	return revenue, nil
}

func (r *orderRepository) CountByStatus(ctx context.Context, from, to *time.Time) (map[order.Status]int64, error) {
	query := dbFrom(ctx, r.db).Model(&OrderModel{})
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at < ?", *to)
	}

	var rows []struct {
		Status int
		Total  int64
	}
	if err := query.Select("status, COUNT(*) AS total").Group("status").Scan(&rows).Error; err != nil {
		return nil, apperrors.Wrap(err, "按状态统计订单失败")
	}

	counts := make(map[order.Status]int64, len(rows))
	for _, row := range rows {
		counts[order.Status(row.Status)] = row.Total
	}
	return counts, nil
}

func toOrderModel(o *order.Order) *OrderModel {
	items := make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemModel{
			BookID:      item.BookID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		}
	}
	return &OrderModel{
		OrderNo:        o.OrderNo,
		UserID:         o.UserID,
		Status:         int(o.Status),
		TotalAmount:    o.TotalAmount,
		DiscountAmount: o.DiscountAmount,
		FinalAmount:    o.FinalAmount,
		CouponID:       o.CouponID,
		ShippingNote:   o.ShippingNote,
		CancelReason:   o.CancelReason,
		Items:          items,
		Address: OrderAddressModel{
			ReceiverName: o.Address.ReceiverName,
			Phone:        o.Address.Phone,
			Province:     o.Address.Province,
			City:         o.Address.City,
			District:     o.Address.District,
			Detail:       o.Address.Detail,
		},
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		PaidAt:      o.PaidAt,
		ShippedAt:   o.ShippedAt,
		CompletedAt: o.CompletedAt,
		CancelledAt: o.CancelledAt,
	}
}

func toOrderEntity(m *OrderModel) *order.Order {
	items := make([]order.OrderItem, len(m.Items))
	for i, item := range m.Items {
		items[i] = order.OrderItem{
			ID:          item.ID,
			OrderID:     item.OrderID,
			BookID:      item.BookID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Subtotal:    item.Subtotal,
		}
	}
	return &order.Order{
		ID:             m.ID,
		OrderNo:        m.OrderNo,
		UserID:         m.UserID,
		Status:         order.Status(m.Status),
		TotalAmount:    m.TotalAmount,
		DiscountAmount: m.DiscountAmount,
		FinalAmount:    m.FinalAmount,
		CouponID:       m.CouponID,
		Address: order.Address{
			ReceiverName: m.Address.ReceiverName,
			Phone:        m.Address.Phone,
			Province:     m.Address.Province,
			City:         m.Address.City,
			District:     m.Address.District,
			Detail:       m.Address.Detail,
		},
		Items:        items,
		ShippingNote: m.ShippingNote,
		CancelReason: m.CancelReason,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		PaidAt:       m.PaidAt,
		ShippedAt:    m.ShippedAt,
		CompletedAt:  m.CompletedAt,
		CancelledAt:  m.CancelledAt,
	}
}
