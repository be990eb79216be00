package cart

import "context"

// Repository 购物车仓储接口
type Repository interface {
	// FindActiveByUser 用户的活动购物车（含明细），没有返回ErrCartNotFound
	FindActiveByUser(ctx context.Context, userID uint) (*Cart, error)

	// GetOrCreateActive 没有活动购物车时创建一个
	GetOrCreateActive(ctx context.Context, userID uint) (*Cart, error)

	// SaveItems 用c.Items覆盖购物车明细
	SaveItems(ctx context.Context, c *Cart) error

	// Deactivate 条件更新 active=1 → 0
	// 已经被结算（影响行数为0）时返回ErrCartCheckedOut
	Deactivate(ctx context.Context, cartID uint) error
}
