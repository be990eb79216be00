package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// StockCache 库存读缓存
// Key: stock:{book_id}:{warehouse_id}，值为JSON
// 只由查询路径写入，写操作提交后删除；以数据库为准
type StockCache struct {
	client *redis.Client
}

// NewStockCache 创建库存缓存
func NewStockCache(client *redis.Client) *StockCache {
	return &StockCache{client: client}
}

var _ stock.Cache = (*StockCache)(nil)

type cachedStock struct {
	ID               uint      `json:"id"`
	BookID           uint      `json:"book_id"`
	WarehouseID      uint      `json:"warehouse_id"`
	QuantityOnHand   int       `json:"quantity_on_hand"`
	ReservedQuantity int       `json:"reserved_quantity"`
	SoldQuantity     int       `json:"sold_quantity"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func stockKey(bookID, warehouseID uint) string {
	return fmt.Sprintf("stock:%d:%d", bookID, warehouseID)
}

// Get 未命中返回(nil, nil)
func (c *StockCache) Get(ctx context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	data, err := c.client.Get(ctx, stockKey(bookID, warehouseID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "读取库存缓存失败")
	}

	var v cachedStock
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, apperrors.Wrap(err, "解析库存缓存失败")
	}
	return &stock.StockItem{
		ID:               v.ID,
		BookID:           v.BookID,
		WarehouseID:      v.WarehouseID,
		QuantityOnHand:   v.QuantityOnHand,
		ReservedQuantity: v.ReservedQuantity,
		SoldQuantity:     v.SoldQuantity,
		CreatedAt:        v.CreatedAt,
		UpdatedAt:        v.UpdatedAt,
	}, nil
}

func (c *StockCache) Set(ctx context.Context, item *stock.StockItem, ttl time.Duration) error {
	data, err := json.Marshal(cachedStock{
		ID:               item.ID,
		BookID:           item.BookID,
		WarehouseID:      item.WarehouseID,
		QuantityOnHand:   item.QuantityOnHand,
		ReservedQuantity: item.ReservedQuantity,
		SoldQuantity:     item.SoldQuantity,
		CreatedAt:        item.CreatedAt,
		UpdatedAt:        item.UpdatedAt,
	})
	if err != nil {
		return apperrors.Wrap(err, "序列化库存缓存失败")
	}
	if err := c.client.Set(ctx, stockKey(item.BookID, item.WarehouseID), data, ttl).Err(); err != nil {
		return apperrors.Wrap(err, "写入库存缓存失败")
	}
	return nil
}

func (c *StockCache) Delete(ctx context.Context, keys ...stock.Key) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = stockKey(k.BookID, k.WarehouseID)
	}
	if err := c.client.Del(ctx, redisKeys...).Err(); err != nil {
		return apperrors.Wrap(err, "删除库存缓存失败")
	}
	return nil
}
