package dto

import (
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/pkg/money"
)

// CreateOrderRequest HTTP下单请求
type CreateOrderRequest struct {
	Items    []CreateOrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Address  AddressRequest           `json:"address" binding:"required"`
	CouponID *uint                    `json:"coupon_id" example:"3"`
	Discount int64                    `json:"discount" binding:"min=0" example:"500"` // 优惠金额(分)，仅管理员
}

// CreateOrderItemRequest 订单明细项
// warehouse_id省略时使用默认仓库；unit_price仅管理员可指定，否则按当前目录价
type CreateOrderItemRequest struct {
	BookID      uint  `json:"book_id" binding:"required" example:"1"`
	WarehouseID uint  `json:"warehouse_id" example:"1"`
	Quantity    int   `json:"quantity" binding:"required,min=1,max=999" example:"2"`
	UnitPrice   int64 `json:"unit_price" binding:"min=0" example:"5900"`
}

// AddressRequest 收货地址
type AddressRequest struct {
	ReceiverName string `json:"receiver_name" binding:"required,max=50" example:"张三"`
	Phone        string `json:"phone" binding:"required,max=20" example:"13800138000"`
	Province     string `json:"province" binding:"max=50" example:"浙江省"`
	City         string `json:"city" binding:"max=50" example:"杭州市"`
	District     string `json:"district" binding:"max=50" example:"西湖区"`
	Detail       string `json:"detail" binding:"required,max=255" example:"文三路100号"`
}

// ToDomain 转换为领域地址
func (a AddressRequest) ToDomain() order.Address {
	return order.Address{
		ReceiverName: a.ReceiverName,
		Phone:        a.Phone,
		Province:     a.Province,
		City:         a.City,
		District:     a.District,
		Detail:       a.Detail,
	}
}

// CheckoutRequest 购物车结算
type CheckoutRequest struct {
	Address  AddressRequest `json:"address" binding:"required"`
	CouponID *uint          `json:"coupon_id"`
	Discount int64          `json:"discount" binding:"min=0"`
}

// ShipOrderRequest 发货
type ShipOrderRequest struct {
	Note string `json:"note" binding:"max=255" example:"顺丰 SF1234567890"`
}

// CancelOrderRequest 取消订单
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=255" example:"不想要了"`
}

// UpdateOrderStatusRequest 管理员直接设置状态（仍需满足状态机）
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PAID SHIPPED COMPLETED CANCELLED paid shipped completed cancelled" example:"SHIPPED"`
	Note   string `json:"note" binding:"max=255"`
}

// ListOrdersRequest 订单列表
type ListOrdersRequest struct {
	PageQuery
	Status string `form:"status" binding:"omitempty,oneof=PENDING PAID SHIPPED COMPLETED CANCELLED pending paid shipped completed cancelled" example:"PAID"`
}

// DateRangeRequest 统计时间范围，格式 2006-01-02 或 RFC3339
type DateRangeRequest struct {
	From string `form:"from" example:"2024-11-01"`
	To   string `form:"to" example:"2024-12-01"`
}

// OrderItemResponse 订单明细
type OrderItemResponse struct {
	BookID        uint   `json:"book_id"`
	WarehouseID   uint   `json:"warehouse_id"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	UnitPriceYuan string `json:"unit_price_yuan"`
	Subtotal      int64  `json:"subtotal"`
}

// OrderResponse 订单详情
type OrderResponse struct {
	ID              uint                `json:"id" example:"1"`
	OrderNo         string              `json:"order_no" example:"ORD-20241106-123456"`
	UserID          uint                `json:"user_id"`
	Status          string              `json:"status" example:"PENDING"`
	StatusText      string              `json:"status_text" example:"待支付"`
	TotalAmount     int64               `json:"total_amount" example:"11800"`
	DiscountAmount  int64               `json:"discount_amount" example:"500"`
	FinalAmount     int64               `json:"final_amount" example:"11300"`
	FinalAmountYuan string              `json:"final_amount_yuan" example:"113.00"`
	CouponID        *uint               `json:"coupon_id,omitempty"`
	Address         AddressRequest      `json:"address"`
	Items           []OrderItemResponse `json:"items"`
	ShippingNote    string              `json:"shipping_note,omitempty"`
	CancelReason    string              `json:"cancel_reason,omitempty"`
	CreatedAt       string              `json:"created_at" example:"2024-11-06 10:30:00"`
	PaidAt          string              `json:"paid_at,omitempty"`
	ShippedAt       string              `json:"shipped_at,omitempty"`
	CompletedAt     string              `json:"completed_at,omitempty"`
	CancelledAt     string              `json:"cancelled_at,omitempty"`
}

// FromOrder 领域订单 → 响应
func FromOrder(o *order.Order) *OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = OrderItemResponse{
			BookID:        item.BookID,
			WarehouseID:   item.WarehouseID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			UnitPriceYuan: money.FormatYuan(item.UnitPrice),
			Subtotal:      item.Subtotal,
		}
	}
	return &OrderResponse{
		ID:              o.ID,
		OrderNo:         o.OrderNo,
		UserID:          o.UserID,
		Status:          o.Status.Code(),
		StatusText:      o.Status.String(),
		TotalAmount:     o.TotalAmount,
		DiscountAmount:  o.DiscountAmount,
		FinalAmount:     o.FinalAmount,
		FinalAmountYuan: money.FormatYuan(o.FinalAmount),
		CouponID:        o.CouponID,
		Address: AddressRequest{
			ReceiverName: o.Address.ReceiverName,
			Phone:        o.Address.Phone,
			Province:     o.Address.Province,
			City:         o.Address.City,
			District:     o.Address.District,
			Detail:       o.Address.Detail,
		},
		Items:        items,
		ShippingNote: o.ShippingNote,
		CancelReason: o.CancelReason,
		CreatedAt:    FormatTime(o.CreatedAt),
		PaidAt:       FormatTimePtr(o.PaidAt),
		ShippedAt:    FormatTimePtr(o.ShippedAt),
		CompletedAt:  FormatTimePtr(o.CompletedAt),
		CancelledAt:  FormatTimePtr(o.CancelledAt),
	}
}

// FromOrders 列表转换
func FromOrders(orders []*order.Order) []*OrderResponse {
	out := make([]*OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = FromOrder(o)
	}
	return out
}

// RevenueResponse 营收统计
type RevenueResponse struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Revenue     int64  `json:"revenue" example:"1250000"`
	RevenueYuan string `json:"revenue_yuan" example:"12500.00"`
}

// StatusCountResponse 按状态统计，key为状态编码
type StatusCountResponse struct {
	Counts map[string]int64 `json:"counts"`
	Total  int64            `json:"total"`
}

// FromStatusCounts 转换统计结果
func FromStatusCounts(counts map[order.Status]int64) *StatusCountResponse {
	resp := &StatusCountResponse{Counts: make(map[string]int64, len(counts))}
	for s, n := range counts {
		resp.Counts[s.Code()] = n
		resp.Total += n
	}
	return resp
}
