package book

import (
	"context"
)

// Repository 图书仓储接口（只读）
type Repository interface {
	// FindByID 不存在返回ErrBookNotFound
	FindByID(ctx context.Context, id uint) (*Book, error)

	// FindByIDs 批量查询，不存在的ID不出现在结果中
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*Book, error)
}
