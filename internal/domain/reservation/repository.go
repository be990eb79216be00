package reservation

import (
	"context"
	"time"
)

// Repository 预留仓储接口
type Repository interface {
	// CreateBatch 批量创建（与订单同一事务）
	CreateBatch(ctx context.Context, items []*Reservation) error

	// ListActiveByOrderForUpdate 锁定订单的全部ACTIVE预留
	ListActiveByOrderForUpdate(ctx context.Context, orderID uint) ([]*Reservation, error)

	// UpdateStatus 保存状态变更
	UpdateStatus(ctx context.Context, items []*Reservation) error

	// ListExpiredOrderIDs 存在已过期ACTIVE预留的订单ID，按过期时间升序，跳过exclude中的订单
	ListExpiredOrderIDs(ctx context.Context, now time.Time, exclude []uint, limit int) ([]uint, error)
}
