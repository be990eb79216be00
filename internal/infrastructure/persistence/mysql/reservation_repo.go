package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookstore-order/internal/domain/reservation"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预留仓储
func NewReservationRepository(db *gorm.DB) reservation.Repository {
	return &reservationRepository{db: db}
}

func (r *reservationRepository) CreateBatch(ctx context.Context, items []*reservation.Reservation) error {
	if len(items) == 0 {
		return nil
	}
	models := make([]StockReservationModel, len(items))
	for i, item := range items {
		models[i] = toReservationModel(item)
	}
	if err := dbFrom(ctx, r.db).Create(&models).Error; err != nil {
		return apperrors.Wrap(err, "创建库存预留失败")
	}
	for i := range items {
		items[i].ID = models[i].ID
	}
	return nil
}

// ListActiveByOrderForUpdate 锁定订单的ACTIVE预留，按id顺序加锁
func (r *reservationRepository) ListActiveByOrderForUpdate(ctx context.Context, orderID uint) ([]*reservation.Reservation, error) {
	var models []StockReservationModel
	err := dbFrom(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("order_id = ? AND status = ?", orderID, string(reservation.StatusActive)).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询库存预留失败")
	}
	return toReservationEntities(models), nil
}

func (r *reservationRepository) UpdateStatus(ctx context.Context, items []*reservation.Reservation) error {
	db := dbFrom(ctx, r.db)
	for _, item := range items {
		err := db.Model(&StockReservationModel{}).Where("id = ?", item.ID).Updates(map[string]interface{}{
			"status":     string(item.Status),
			"updated_at": item.UpdatedAt,
		}).Error
		if err != nil {
			return apperrors.Wrap(err, "更新库存预留失败")
		}
	}
	return nil
}

// ListExpiredOrderIDs 走(status, expires_at)索引
func (r *reservationRepository) ListExpiredOrderIDs(ctx context.Context, now time.Time, exclude []uint, limit int) ([]uint, error) {
	query := dbFrom(ctx, r.db).Model(&StockReservationModel{}).
		Select("order_id").
		Where("status = ? AND expires_at <= ?", string(reservation.StatusActive), now)
	if len(exclude) > 0 {
		query = query.Where("order_id NOT IN ?", exclude)
	}

	var ids []uint
	err := query.Group("order_id").
		Order("MIN(expires_at) ASC").
		Limit(limit).
		Pluck("order_id", &ids).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询过期预留失败")
	}
	return ids, nil
}

func toReservationModel(r *reservation.Reservation) StockReservationModel {
	return StockReservationModel{
		ID:          r.ID,
		OrderID:     r.OrderID,
		BookID:      r.BookID,
		WarehouseID: r.WarehouseID,
		Quantity:    r.Quantity,
		Status:      string(r.Status),
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toReservationEntities(models []StockReservationModel) []*reservation.Reservation {
	out := make([]*reservation.Reservation, len(models))
	for i, m := range models {
		out[i] = &reservation.Reservation{
			ID:          m.ID,
			OrderID:     m.OrderID,
			BookID:      m.BookID,
			WarehouseID: m.WarehouseID,
			Quantity:    m.Quantity,
			Status:      reservation.Status(m.Status),
			ExpiresAt:   m.ExpiresAt,
			CreatedAt:   m.CreatedAt,
			UpdatedAt:   m.UpdatedAt,
		}
	}
	return out
}
