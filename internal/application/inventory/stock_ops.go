package inventory

import (
	"context"

	"github.com/xiebiao/bookstore-order/internal/domain/stock"
)

func key(bookID, warehouseID uint) stock.Key {
	return stock.Key{BookID: bookID, WarehouseID: warehouseID}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ReserveStock 预留库存
// 库存记录不存在返回ErrStockItemNotFound，可用不足返回ErrInsufficientStock
func (s *Service) ReserveStock(ctx context.Context, bookID, warehouseID uint, qty int) (*stock.StockItem, error) {
	return s.mutate(ctx, change{
		key:      key(bookID, warehouseID),
		mutation: stock.Mutation{Op: stock.OpReserve, Quantity: qty},
	})
}

// ReleaseReserved 释放预留，最多释放到0
func (s *Service) ReleaseReserved(ctx context.Context, bookID, warehouseID uint, qty int) (*stock.StockItem, error) {
	return s.mutate(ctx, change{
		key:      key(bookID, warehouseID),
		mutation: stock.Mutation{Op: stock.OpRelease, Quantity: qty},
	})
}

// ConfirmSale 确认销售：释放预留并出库，记一条OUTBOUND流水
func (s *Service) ConfirmSale(ctx context.Context, bookID, warehouseID uint, qty int, referenceID string) (*stock.StockItem, error) {
	return s.mutate(ctx, change{
		key:         key(bookID, warehouseID),
		mutation:    stock.Mutation{Op: stock.OpConfirmSale, Quantity: qty},
		referenceID: optional(referenceID),
		note:        "确认销售",
	})
}

// ReceiveStock 入库，首次入库时创建库存记录，记一条INBOUND流水
func (s *Service) ReceiveStock(ctx context.Context, bookID, warehouseID uint, qty int, referenceID, note string) (*stock.StockItem, error) {
	if qty <= 0 {
		return nil, stock.ErrInvalidQuantity.Withf("图书%d 仓库%d 数量%d", bookID, warehouseID, qty)
	}
	return s.mutate(ctx, change{
		key:         key(bookID, warehouseID),
		mutation:    stock.Mutation{Op: stock.OpIncrease, Quantity: qty},
		referenceID: optional(referenceID),
		note:        note,
		create:      true,
	})
}

// AdjustStock 盘点调整
// operation: add / subtract / set，记一条带符号的ADJUSTMENT流水，不影响销量
func (s *Service) AdjustStock(ctx context.Context, bookID, warehouseID uint, operation string, qty int, note string) (*stock.StockItem, error) {
	op, err := stock.ParseAdjustOperation(operation)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, change{
		key:      key(bookID, warehouseID),
		mutation: stock.Mutation{Op: stock.OpAdjust, Quantity: qty},
		note:     note,
		build: func(current stock.StockItem) (stock.Mutation, error) {
			delta, err := op.Delta(current, qty)
			if err != nil {
				return stock.Mutation{}, err
			}
			return stock.Mutation{Op: stock.OpAdjust, Quantity: delta}, nil
		},
	})
}
