package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// stockRepository 库存仓储实现(MySQL)
// 所有写操作前必须先在同一事务内 SELECT ... FOR UPDATE 锁定行
type stockRepository struct {
	db *gorm.DB
}

// NewStockRepository 创建库存仓储
func NewStockRepository(db *gorm.DB) stock.Repository {
	return &stockRepository{db: db}
}

func (r *stockRepository) FindByKey(ctx context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	return r.find(dbFrom(ctx, r.db), bookID, warehouseID)
}

// FindByKeyForUpdate SELECT * FROM stock_items WHERE book_id = ? AND warehouse_id = ? FOR UPDATE
// 其他事务对同一行的FOR UPDATE会阻塞到当前事务提交或回滚
func (r *stockRepository) FindByKeyForUpdate(ctx context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	return r.find(dbFrom(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), bookID, warehouseID)
}

// LockOrCreate 首次入库
// INSERT IGNORE 保证并发时只有一行，然后再加锁读取
func (r *stockRepository) LockOrCreate(ctx context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	db := dbFrom(ctx, r.db)
	model := &StockItemModel{BookID: bookID, WarehouseID: warehouseID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(model).Error; err != nil {
		return nil, apperrors.Wrap(err, "创建库存记录失败")
	}
	return r.find(db.Clauses(clause.Locking{Strength: "UPDATE"}), bookID, warehouseID)
}

func (r *stockRepository) find(db *gorm.DB, bookID, warehouseID uint) (*stock.StockItem, error) {
	var model StockItemModel
	err := db.Where("book_id = ? AND warehouse_id = ?", bookID, warehouseID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stock.ErrStockItemNotFound.Withf("图书%d 仓库%d", bookID, warehouseID)
		}
		return nil, apperrors.Wrap(err, "查询库存失败")
	}
	return toStockEntity(&model), nil
}

// Save 保存三个计数
func (r *stockRepository) Save(ctx context.Context, item *stock.StockItem) error {
	result := dbFrom(ctx, r.db).Model(&StockItemModel{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
		"quantity_on_hand":  item.QuantityOnHand,
		"reserved_quantity": item.ReservedQuantity,
		"sold_quantity":     item.SoldQuantity,
		"updated_at":        item.UpdatedAt,
	})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "保存库存失败")
	}
	return nil
}

func (r *stockRepository) ListLowStock(ctx context.Context, threshold, page, pageSize int) ([]*stock.StockItem, int64, error) {
	query := dbFrom(ctx, r.db).Model(&StockItemModel{}).
		Where("quantity_on_hand > 0 AND quantity_on_hand <= ?", threshold)
	return r.list(query, page, pageSize)
}

func (r *stockRepository) ListOutOfStock(ctx context.Context, page, pageSize int) ([]*stock.StockItem, int64, error) {
	query := dbFrom(ctx, r.db).Model(&StockItemModel{}).Where("quantity_on_hand = 0")
	return r.list(query, page, pageSize)
}

func (r *stockRepository) list(query *gorm.DB, page, pageSize int) ([]*stock.StockItem, int64, error) {
	// 新会话：Count之后条件可以安全复用
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存总数失败")
	}

	var models []StockItemModel
	err := query.Order("quantity_on_hand ASC, id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询库存列表失败")
	}

	items := make([]*stock.StockItem, len(models))
	for i := range models {
		items[i] = toStockEntity(&models[i])
	}
	return items, total, nil
}

func toStockEntity(m *StockItemModel) *stock.StockItem {
	return &stock.StockItem{
		ID:               m.ID,
		BookID:           m.BookID,
		WarehouseID:      m.WarehouseID,
		QuantityOnHand:   m.QuantityOnHand,
		ReservedQuantity: m.ReservedQuantity,
		SoldQuantity:     m.SoldQuantity,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
