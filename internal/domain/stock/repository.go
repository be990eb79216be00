package stock

import (
	"context"
	"time"
)

// Key 库存行的唯一键
type Key struct {
	BookID      uint
	WarehouseID uint
}

// Less 加锁顺序：先按图书，再按仓库
// 多行加锁必须按同一顺序，避免两个事务交叉加锁导致死锁
func (k Key) Less(other Key) bool {
	if k.BookID != other.BookID {
		return k.BookID < other.BookID
	}
	return k.WarehouseID < other.WarehouseID
}

// Repository 库存仓储接口
// 带ForUpdate的方法必须在事务内调用（事务通过ctx传递）
type Repository interface {
	// FindByKey 普通查询，不加锁
	FindByKey(ctx context.Context, bookID, warehouseID uint) (*StockItem, error)

	// FindByKeyForUpdate SELECT ... FOR UPDATE，不存在返回ErrStockItemNotFound
	FindByKeyForUpdate(ctx context.Context, bookID, warehouseID uint) (*StockItem, error)

	// LockOrCreate 不存在时先插入空记录再加锁（首次入库）
	// 并发首次入库时唯一索引保证只有一条记录
	LockOrCreate(ctx context.Context, bookID, warehouseID uint) (*StockItem, error)

	// Save 保存计数
	Save(ctx context.Context, item *StockItem) error

	// ListLowStock 0 < 在库 <= threshold，按在库数量升序
	ListLowStock(ctx context.Context, threshold, page, pageSize int) ([]*StockItem, int64, error)

	// ListOutOfStock 在库为0
	ListOutOfStock(ctx context.Context, page, pageSize int) ([]*StockItem, int64, error)
}

// Cache 库存读缓存
// 只缓存查询结果，写操作提交后失效，缓存不可用时直接读库
type Cache interface {
	Get(ctx context.Context, bookID, warehouseID uint) (*StockItem, error) // 未命中返回(nil, nil)
	Set(ctx context.Context, item *StockItem, ttl time.Duration) error
	Delete(ctx context.Context, keys ...Key) error
}
