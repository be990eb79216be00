package order

import (
	"context"
	"time"
)

// Repository 订单仓储接口
// 订单、明细、地址在同一事务中创建；事务通过ctx传递
type Repository interface {
	// Create 创建订单（含明细和地址），订单号冲突返回ErrDuplicateOrderNo
	Create(ctx context.Context, order *Order) error

	// FindByID 查询订单（含明细和地址）
	FindByID(ctx context.Context, id uint) (*Order, error)

	// FindByIDForUpdate 锁定订单行后查询，状态流转前调用
	FindByIDForUpdate(ctx context.Context, id uint) (*Order, error)

	// Update 保存状态、金额和时间戳（明细不可变，不更新）
	Update(ctx context.Context, order *Order) error

	// ListByUserID 用户订单列表，status为nil时不过滤，按创建时间倒序
	ListByUserID(ctx context.Context, userID uint, status *Status, page, pageSize int) ([]*Order, int64, error)

	// SumRevenue 已完成订单的实付金额合计，completed_at ∈ [from, to)
	SumRevenue(ctx context.Context, from, to time.Time) (int64, error)

	// CountByStatus 按状态统计订单数，created_at ∈ [from, to)，nil表示不限
	CountByStatus(ctx context.Context, from, to *time.Time) (map[Status]int64, error)
}
