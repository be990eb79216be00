package ledger

import (
	"context"
	"time"

	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter 流水查询条件，nil字段表示不过滤
type Filter struct {
	WarehouseID *uint
	BookID      *uint
	Type        *TransactionType
	From        *time.Time // 含
	To          *time.Time // 不含
	Page        int
	PageSize    int
}

// Normalize 补全分页默认值并校验时间范围
func (f Filter) Normalize() (Filter, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return f, apperrors.ErrInvalidDateRange
	}
	return f, nil
}

// Offset 分页偏移量
func (f Filter) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Repository 流水仓储接口
type Repository interface {
	// Append 追加一条流水（在调用方事务内）
	Append(ctx context.Context, tx *Transaction) error

	// List 按条件分页查询，按创建时间倒序
	List(ctx context.Context, filter Filter) ([]*Transaction, int64, error)
}
