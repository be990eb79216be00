package ledger

import (
	"strings"
	"time"
)

// TransactionType 流水类型
type TransactionType string

const (
	TypeInbound    TransactionType = "INBOUND"    // 入库，数量>0
	TypeOutbound   TransactionType = "OUTBOUND"   // 出库（销售），数量<0
	TypeAdjustment TransactionType = "ADJUSTMENT" // 盘点调整，正负皆可
)

// ParseTransactionType 大小写不敏感
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(strings.ToUpper(strings.TrimSpace(s))); t {
	case TypeInbound, TypeOutbound, TypeAdjustment:
		return t, nil
	default:
		return "", ErrInvalidTransactionType.Withf("%q", s)
	}
}

// Transaction 库存流水（只追加，不修改不删除）
// 流水是审计记录，当前库存以StockItem为准，流水不保存累计值
type Transaction struct {
	ID             uint
	WarehouseID    uint
	BookID         uint
	Type           TransactionType
	QuantityChange int     // 带符号
	ReferenceID    *string // 关联单据（订单号、盘点单号）
	Note           string
	CreatedAt      time.Time
}

// NewTransaction 创建流水并校验数量符号
func NewTransaction(warehouseID, bookID uint, typ TransactionType, change int, referenceID *string, note string) (*Transaction, error) {
	if err := Validate(typ, change); err != nil {
		return nil, err
	}
	return &Transaction{
		WarehouseID:    warehouseID,
		BookID:         bookID,
		Type:           typ,
		QuantityChange: change,
		ReferenceID:    referenceID,
		Note:           note,
		CreatedAt:      time.Now(),
	}, nil
}

// Validate 校验类型和数量符号
func Validate(typ TransactionType, change int) error {
	if change == 0 {
		return ErrZeroQuantity.Withf("类型%s", typ)
	}
	switch typ {
	case TypeInbound:
		if change < 0 {
			return ErrSignMismatch.Withf("INBOUND数量必须大于0，实际%d", change)
		}
	case TypeOutbound:
		if change > 0 {
			return ErrSignMismatch.Withf("OUTBOUND数量必须小于0，实际%d", change)
		}
	case TypeAdjustment:
	default:
		return ErrInvalidTransactionType.Withf("%q", string(typ))
	}
	return nil
}
