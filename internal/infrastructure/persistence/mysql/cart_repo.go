package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/bookstore-order/internal/domain/cart"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// cartRepository 购物车仓储
// 活动购物车的唯一性由 active_user_id 唯一索引保证（结算后置NULL，不参与唯一约束）
type cartRepository struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *gorm.DB) cart.Repository {
	return &cartRepository{db: db}
}

func (r *cartRepository) FindActiveByUser(ctx context.Context, userID uint) (*cart.Cart, error) {
	var model CartModel
	err := dbFrom(ctx, r.db).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).Where("active_user_id = ?", userID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cart.ErrCartNotFound.Withf("用户%d", userID)
		}
		return nil, apperrors.Wrap(err, "查询购物车失败")
	}
	return toCartEntity(&model), nil
}

// GetOrCreateActive 并发创建时唯一索引冲突的一方重新查询
func (r *cartRepository) GetOrCreateActive(ctx context.Context, userID uint) (*cart.Cart, error) {
	c, err := r.FindActiveByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, cart.ErrCartNotFound) {
		return nil, err
	}

	c = cart.New(userID)
	active := userID
	model := &CartModel{
		UserID:       userID,
		ActiveUserID: &active,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return r.FindActiveByUser(ctx, userID)
		}
		return nil, apperrors.Wrap(err, "创建购物车失败")
	}
	c.ID = model.ID
	return c, nil
}

// SaveItems 先删后插，覆盖购物车明细
func (r *cartRepository) SaveItems(ctx context.Context, c *cart.Cart) error {
	save := func(db *gorm.DB) error {
		if err := db.Where("cart_id = ?", c.ID).Delete(&CartItemModel{}).Error; err != nil {
			return err
		}
		if len(c.Items) > 0 {
			items := make([]CartItemModel, len(c.Items))
			for i, item := range c.Items {
				items[i] = CartItemModel{
					CartID:    c.ID,
					BookID:    item.BookID,
					Quantity:  item.Quantity,
					UnitPrice: item.UnitPrice,
					AddedAt:   item.AddedAt,
				}
			}
			if err := db.Create(&items).Error; err != nil {
				return err
			}
			for i := range c.Items {
				c.Items[i].ID = items[i].ID
				c.Items[i].CartID = c.ID
			}
		}
		return db.Model(&CartModel{}).Where("id = ?", c.ID).Update("updated_at", c.UpdatedAt).Error
	}

	var err error
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		err = save(dbFrom(ctx, r.db))
	} else {
		err = r.db.WithContext(ctx).Transaction(save)
	}
	if err != nil {
		return apperrors.Wrap(err, "保存购物车失败")
	}
	return nil
}

// Deactivate UPDATE carts SET active_user_id = NULL WHERE id = ? AND active_user_id IS NOT NULL
// 影响行数为0说明已被另一个结算请求抢先
func (r *cartRepository) Deactivate(ctx context.Context, cartID uint) error {
	result := dbFrom(ctx, r.db).Model(&CartModel{}).
		Where("id = ? AND active_user_id IS NOT NULL", cartID).
		Update("active_user_id", gorm.Expr("NULL"))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "结算购物车失败")
	}
	if result.RowsAffected == 0 {
		return cart.ErrCartCheckedOut.Withf("购物车%d", cartID)
	}
	return nil
}

func toCartEntity(m *CartModel) *cart.Cart {
	items := make([]cart.Item, len(m.Items))
	for i, item := range m.Items {
		items[i] = cart.Item{
			ID:        item.ID,
			CartID:    item.CartID,
			BookID:    item.BookID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			AddedAt:   item.AddedAt,
		}
	}
	return &cart.Cart{
		ID:        m.ID,
		UserID:    m.UserID,
		Active:    m.ActiveUserID != nil,
		Items:     items,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
