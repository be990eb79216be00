package stock

import (
	"strings"
	"time"
)

// StockItem 某本图书在某个仓库的库存（聚合根）
// 不变量（每次变更后都成立）：
//   - QuantityOnHand >= 0
//   - 0 <= ReservedQuantity <= QuantityOnHand
//   - SoldQuantity >= 0 且只增不减
//
// (BookID, WarehouseID) 唯一，首次入库时创建，之后不删除。
type StockItem struct {
	ID               uint
	BookID           uint
	WarehouseID      uint
	QuantityOnHand   int // 在库数量
	ReservedQuantity int // 已预留（下单未支付）
	SoldQuantity     int // 累计售出
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewStockItem 创建空库存记录
func NewStockItem(bookID, warehouseID uint) *StockItem {
	now := time.Now()
	return &StockItem{
		BookID:      bookID,
		WarehouseID: warehouseID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Available 可售数量 = 在库 - 已预留
func (s StockItem) Available() int {
	return s.QuantityOnHand - s.ReservedQuantity
}

// IsLowStock 0 < 在库 <= 阈值
func (s StockItem) IsLowStock(threshold int) bool {
	return s.QuantityOnHand > 0 && s.QuantityOnHand <= threshold
}

// IsOutOfStock 在库为0
func (s StockItem) IsOutOfStock() bool {
	return s.QuantityOnHand == 0
}

// Operation 库存操作类型
type Operation string

const (
	OpIncrease    Operation = "increase" // 入库
	OpDecrease    Operation = "decrease" // 出库（计入销量）
	OpAdjust      Operation = "adjust"   // 盘点调整（不计入销量）
	OpReserve     Operation = "reserve"  // 预留
	OpRelease     Operation = "release"  // 释放预留
	OpConfirmSale Operation = "confirm"  // 确认销售 = 释放预留 + 出库
)

// Mutation 一次库存变更
// OpAdjust时Quantity是带符号的增量，其余操作Quantity必须>0
type Mutation struct {
	Op       Operation
	Quantity int
}

// Apply 纯函数：根据当前状态计算变更后的状态
// 失败时返回原状态和错误，调用方不需要回滚任何东西。
// 持久化由调用方在行锁事务内完成（读取-Apply-保存）。
func Apply(item StockItem, m Mutation) (StockItem, error) {
	next := item

	switch m.Op {
	case OpAdjust:
		if m.Quantity == 0 {
			return item, ErrInvalidDelta.Withf("图书%d 仓库%d", item.BookID, item.WarehouseID)
		}
	case OpIncrease, OpDecrease, OpReserve, OpRelease, OpConfirmSale:
		if m.Quantity <= 0 {
			return item, ErrInvalidQuantity.Withf("图书%d 仓库%d 数量%d", item.BookID, item.WarehouseID, m.Quantity)
		}
	default:
		return item, ErrUnknownOperation.Withf("%s", m.Op)
	}

	switch m.Op {
	case OpIncrease:
		next.QuantityOnHand += m.Quantity

	case OpDecrease:
		if err := decrease(&next, m.Quantity); err != nil {
			return item, err
		}

	case OpAdjust:
		after := next.QuantityOnHand + m.Quantity
		if after < 0 {
			return item, ErrInsufficientOnHand.Withf("图书%d 仓库%d 在库%d 调整%d",
				item.BookID, item.WarehouseID, item.QuantityOnHand, m.Quantity)
		}
		if after < next.ReservedQuantity {
			return item, ErrAdjustBelowReserved.Withf("图书%d 仓库%d 调整后在库%d 已预留%d",
				item.BookID, item.WarehouseID, after, item.ReservedQuantity)
		}
		next.QuantityOnHand = after

	case OpReserve:
		if next.ReservedQuantity+m.Quantity > next.QuantityOnHand {
			return item, ErrInsufficientStock.Withf("图书%d 仓库%d 可用%d 需要%d",
				item.BookID, item.WarehouseID, item.Available(), m.Quantity)
		}
		next.ReservedQuantity += m.Quantity

	case OpRelease:
		release(&next, m.Quantity)

	case OpConfirmSale:
		release(&next, m.Quantity)
		if err := decrease(&next, m.Quantity); err != nil {
			return item, err
		}
	}

	return next, nil
}

// decrease 出库：要求qty<=在库，且出库后已预留不超过在库
func decrease(s *StockItem, qty int) error {
	if qty > s.QuantityOnHand {
		return ErrInsufficientOnHand.Withf("图书%d 仓库%d 在库%d 需要%d",
			s.BookID, s.WarehouseID, s.QuantityOnHand, qty)
	}
	if s.QuantityOnHand-qty < s.ReservedQuantity {
		return ErrInsufficientStock.Withf("图书%d 仓库%d 出库后在库%d 低于已预留%d",
			s.BookID, s.WarehouseID, s.QuantityOnHand-qty, s.ReservedQuantity)
	}
	s.QuantityOnHand -= qty
	s.SoldQuantity += qty
	return nil
}

// release 释放预留，最多释放到0
func release(s *StockItem, qty int) {
	s.ReservedQuantity -= qty
	if s.ReservedQuantity < 0 {
		s.ReservedQuantity = 0
	}
}

// Increase 入库
func (s *StockItem) Increase(qty int) error { return s.apply(OpIncrease, qty) }

// Decrease 出库并计入销量
func (s *StockItem) Decrease(qty int) error { return s.apply(OpDecrease, qty) }

// AdjustQuantity 盘点调整，delta可正可负，不影响销量
func (s *StockItem) AdjustQuantity(delta int) error { return s.apply(OpAdjust, delta) }

// Reserve 预留
func (s *StockItem) Reserve(qty int) error { return s.apply(OpReserve, qty) }

// ReleaseReserved 释放预留
func (s *StockItem) ReleaseReserved(qty int) error { return s.apply(OpRelease, qty) }

// ConfirmSale 确认销售
func (s *StockItem) ConfirmSale(qty int) error { return s.apply(OpConfirmSale, qty) }

func (s *StockItem) apply(op Operation, qty int) error {
	next, err := Apply(*s, Mutation{Op: op, Quantity: qty})
	if err != nil {
		return err
	}
	next.UpdatedAt = time.Now()
	*s = next
	return nil
}

// AdjustOperation 手工调整操作
type AdjustOperation string

const (
	AdjustAdd      AdjustOperation = "add"      // 在库 += qty
	AdjustSubtract AdjustOperation = "subtract" // 在库 -= qty
	AdjustSet      AdjustOperation = "set"      // 在库 = qty
)

// ParseAdjustOperation 大小写不敏感
func ParseAdjustOperation(s string) (AdjustOperation, error) {
	switch op := AdjustOperation(strings.ToLower(strings.TrimSpace(s))); op {
	case AdjustAdd, AdjustSubtract, AdjustSet:
		return op, nil
	default:
		return "", ErrInvalidAdjustOperation.Withf("%q", s)
	}
}

// Delta 把调整操作换算成在库数量的增量
func (op AdjustOperation) Delta(item StockItem, qty int) (int, error) {
	switch op {
	case AdjustAdd, AdjustSubtract:
		if qty <= 0 {
			return 0, ErrInvalidQuantity.Withf("图书%d 仓库%d 数量%d", item.BookID, item.WarehouseID, qty)
		}
		if op == AdjustSubtract {
			return -qty, nil
		}
		return qty, nil
	case AdjustSet:
		if qty < 0 {
			return 0, ErrInvalidQuantity.Withf("图书%d 仓库%d 目标数量%d", item.BookID, item.WarehouseID, qty)
		}
		delta := qty - item.QuantityOnHand
		if delta == 0 {
			return 0, ErrInvalidDelta.Withf("图书%d 仓库%d 目标数量与当前在库相同", item.BookID, item.WarehouseID)
		}
		return delta, nil
	default:
		return 0, ErrInvalidAdjustOperation.Withf("%q", string(op))
	}
}
