package order

import (
	"strings"
	"time"
)

// Status 订单状态
// 使用int存储，值1-5与流转方向一致
type Status int

const (
	StatusPending   Status = 1 // 待支付
	StatusPaid      Status = 2 // 已支付
	StatusShipped   Status = 3 // 已发货
	StatusCompleted Status = 4 // 已完成
	StatusCancelled Status = 5 // 已取消
)

// AllStatuses 全部状态，统计时保证每个状态都有一项
var AllStatuses = []Status{StatusPending, StatusPaid, StatusShipped, StatusCompleted, StatusCancelled}

// String 中文名，用于日志和提示信息
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "待支付"
	case StatusPaid:
		return "已支付"
	case StatusShipped:
		return "已发货"
	case StatusCompleted:
		return "已完成"
	case StatusCancelled:
		return "已取消"
	default:
		return "未知状态"
	}
}

// Code 英文编码，用于API、事件和指标标签
func (s Status) Code() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusPaid:
		return "PAID"
	case StatusShipped:
		return "SHIPPED"
	case StatusCompleted:
		return "COMPLETED"
	case StatusCancelled:
		return "CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal 终态不再接受任何流转
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ParseStatus 解析英文编码（大小写不敏感）
func ParseStatus(code string) (Status, error) {
	for _, s := range AllStatuses {
		if strings.EqualFold(strings.TrimSpace(code), s.Code()) {
			return s, nil
		}
	}
	return 0, ErrInvalidStatus.Withf("%q", code)
}

// transitions 合法的状态流转，表外的流转一律拒绝
// 只有待支付可以取消；已支付之后的退款不在订单状态机内处理
var transitions = map[Status][]Status{
	StatusPending: {StatusPaid, StatusCancelled},
	StatusPaid:    {StatusShipped},
	StatusShipped: {StatusCompleted},
}

// CanTransition 是否允许从from流转到to
func CanTransition(from, to Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Address 收货地址快照，下单后不随用户地址簿变化
type Address struct {
	ReceiverName string
	Phone        string
	Province     string
	City         string
	District     string
	Detail       string
}

// Validate 收件人、电话、详细地址必填
func (a Address) Validate() error {
	if strings.TrimSpace(a.ReceiverName) == "" || strings.TrimSpace(a.Phone) == "" || strings.TrimSpace(a.Detail) == "" {
		return ErrInvalidAddress
	}
	return nil
}

// Order 订单（聚合根）
// 不变量：FinalAmount == TotalAmount - DiscountAmount，0 <= DiscountAmount <= TotalAmount
// 明细创建后不可变；订单不删除，取消只是一种状态
type Order struct {
	ID             uint
	OrderNo        string
	UserID         uint
	Status         Status
	TotalAmount    int64 // 明细小计之和（分）
	DiscountAmount int64 // 优惠金额（分），由调用方给出
	FinalAmount    int64 // 实付金额（分）
	CouponID       *uint
	Address        Address
	Items          []OrderItem
	ShippingNote   string
	CancelReason   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
	ShippedAt      *time.Time
	CompletedAt    *time.Time
	CancelledAt    *time.Time
}

// OrderItem 订单明细
// UnitPrice是下单时的价格快照，之后改价不影响历史订单
type OrderItem struct {
	ID          uint
	OrderID     uint
	BookID      uint
	WarehouseID uint // 预留库存的仓库
	Quantity    int
	UnitPrice   int64
	Subtotal    int64 // Quantity × UnitPrice
}

// NewOrder 创建待支付订单
// 校验明细和地址，计算小计、总额，并应用优惠
func NewOrder(orderNo string, userID uint, items []OrderItem, address Address, couponID *uint, discount int64, now time.Time) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}

	lines := make([]OrderItem, len(items))
	for i, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity.Withf("图书%d 数量%d", item.BookID, item.Quantity)
		}
		if item.UnitPrice < 0 {
			return nil, ErrInvalidPrice.Withf("图书%d 单价%d", item.BookID, item.UnitPrice)
		}
		item.Subtotal = item.UnitPrice * int64(item.Quantity)
		lines[i] = item
	}

	o := &Order{
		OrderNo:   orderNo,
		UserID:    userID,
		Status:    StatusPending,
		CouponID:  couponID,
		Address:   address,
		Items:     lines,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.TotalAmount = o.CalculateTotal()
	o.FinalAmount = o.TotalAmount
	if err := o.ApplyDiscount(discount); err != nil {
		return nil, err
	}
	return o, nil
}

// ApplyDiscount 设置优惠金额并重算实付金额，只允许待支付订单
func (o *Order) ApplyDiscount(amount int64) error {
	if o.Status != StatusPending {
		return ErrDiscountNotAllowed.Withf("订单%s 当前状态%s", o.OrderNo, o.Status)
	}
	if amount < 0 || amount > o.TotalAmount {
		return ErrInvalidDiscount.Withf("优惠%d 订单总额%d", amount, o.TotalAmount)
	}
	o.DiscountAmount = amount
	o.FinalAmount = o.TotalAmount - amount
	return nil
}

// Pay 待支付 → 已支付
func (o *Order) Pay(now time.Time) error {
	if err := o.transition(StatusPaid, now); err != nil {
		return err
	}
	o.PaidAt = &now
	return nil
}

// Ship 已支付 → 已发货，记录物流备注
func (o *Order) Ship(note string, now time.Time) error {
	if err := o.transition(StatusShipped, now); err != nil {
		return err
	}
	o.ShippingNote = note
	o.ShippedAt = &now
	return nil
}

// Complete 已发货 → 已完成
func (o *Order) Complete(now time.Time) error {
	if err := o.transition(StatusCompleted, now); err != nil {
		return err
	}
	o.CompletedAt = &now
	return nil
}

// Cancel 待支付 → 已取消
// 库存预留由应用层在同一事务内释放
func (o *Order) Cancel(reason string, now time.Time) error {
	if err := o.transition(StatusCancelled, now); err != nil {
		return err
	}
	o.CancelReason = reason
	o.CancelledAt = &now
	return nil
}

// transition 先校验再修改，失败时订单保持原样
func (o *Order) transition(target Status, now time.Time) error {
	if o.Status.IsTerminal() {
		return ErrInvalidStatusTransition.Withf("订单%s 已%s，不能再变更", o.OrderNo, o.Status)
	}
	if !CanTransition(o.Status, target) {
		return ErrInvalidStatusTransition.Withf("订单%s 当前状态%s 不能变更为%s", o.OrderNo, o.Status, target)
	}
	o.Status = target
	o.UpdatedAt = now
	return nil
}

// CalculateTotal 明细小计之和
func (o *Order) CalculateTotal() int64 {
	var total int64
	for _, item := range o.Items {
		total += item.Subtotal
	}
	return total
}

// IsOwnedBy 订单是否属于该用户
func (o *Order) IsOwnedBy(userID uint) bool {
	return o.UserID == userID
}
