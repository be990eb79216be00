package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// ledgerRepository 库存流水仓储（只追加）
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建流水仓储
func NewLedgerRepository(db *gorm.DB) ledger.Repository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, tx *ledger.Transaction) error {
	model := &InventoryTransactionModel{
		WarehouseID:    tx.WarehouseID,
		BookID:         tx.BookID,
		Type:           string(tx.Type),
		QuantityChange: tx.QuantityChange,
		ReferenceID:    tx.ReferenceID,
		Note:           tx.Note,
		CreatedAt:      tx.CreatedAt,
	}
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "写入库存流水失败")
	}
	tx.ID = model.ID
	return nil
}

// List 按条件分页，created_at DESC, id DESC
func (r *ledgerRepository) List(ctx context.Context, f ledger.Filter) ([]*ledger.Transaction, int64, error) {
	query := dbFrom(ctx, r.db).Model(&InventoryTransactionModel{})
	if f.WarehouseID != nil {
		query = query.Where("warehouse_id = ?", *f.WarehouseID)
	}
	if f.BookID != nil {
		query = query.Where("book_id = ?", *f.BookID)
	}
	if f.Type != nil {
		query = query.Where("type = ?", string(*f.Type))
	}
	if f.From != nil {
		query = query.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("created_at < ?", *f.To)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询流水总数失败")
	}

	var models []InventoryTransactionModel
	err := query.Order("created_at DESC, id DESC").
		Limit(f.PageSize).
		Offset(f.Offset()).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询流水失败")
	}

	list := make([]*ledger.Transaction, len(models))
	for i, m := range models {
		list[i] = &ledger.Transaction{
			ID:             m.ID,
			WarehouseID:    m.WarehouseID,
			BookID:         m.BookID,
			Type:           ledger.TransactionType(m.Type),
			QuantityChange: m.QuantityChange,
			ReferenceID:    m.ReferenceID,
			Note:           m.Note,
			CreatedAt:      m.CreatedAt,
		}
	}
	return list, total, nil
}
