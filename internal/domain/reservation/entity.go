package reservation

import (
	"time"

	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// Status 预留状态
type Status string

const (
	StatusActive    Status = "ACTIVE"    // 已预留，等待支付
	StatusConfirmed Status = "CONFIRMED" // 已支付，预留转为出库
	StatusReleased  Status = "RELEASED"  // 订单取消或超时，预留已释放
)

// ErrNotActive 只有ACTIVE的预留可以确认或释放
var ErrNotActive = apperrors.New(apperrors.ErrCodeReservationNotActive, "库存预留已确认或已释放")

// Reservation 订单行的库存预留记录
// 每个订单行一条，保证同一订单对同一库存行的 预留→确认/释放 只发生一次
type Reservation struct {
	ID          uint
	OrderID     uint
	BookID      uint
	WarehouseID uint
	Quantity    int
	Status      Status
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// New 创建ACTIVE预留
func New(orderID, bookID, warehouseID uint, qty int, expiresAt time.Time) *Reservation {
	now := time.Now()
	return &Reservation{
		OrderID:     orderID,
		BookID:      bookID,
		WarehouseID: warehouseID,
		Quantity:    qty,
		Status:      StatusActive,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Confirm ACTIVE → CONFIRMED
func (r *Reservation) Confirm(now time.Time) error {
	return r.transition(StatusConfirmed, now)
}

// Release ACTIVE → RELEASED
func (r *Reservation) Release(now time.Time) error {
	return r.transition(StatusReleased, now)
}

// IsExpired 是否已过期（只对ACTIVE有意义）
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == StatusActive && !now.Before(r.ExpiresAt)
}

func (r *Reservation) transition(to Status, now time.Time) error {
	if r.Status != StatusActive {
		return ErrNotActive.Withf("订单%d 图书%d 仓库%d 当前状态%s", r.OrderID, r.BookID, r.WarehouseID, r.Status)
	}
	r.Status = to
	r.UpdatedAt = now
	return nil
}
