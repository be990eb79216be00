package cart

import (
	"time"

	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

var (
	// ErrCartNotFound 用户没有活动购物车
	ErrCartNotFound = apperrors.New(apperrors.ErrCodeCartNotFound, "购物车不存在")

	// ErrCartEmpty 购物车为空，不能结算
	ErrCartEmpty = apperrors.New(apperrors.ErrCodeCartEmpty, "购物车为空")

	// ErrCartCheckedOut 购物车已结算（并发结算时后到的一方）
	ErrCartCheckedOut = apperrors.New(apperrors.ErrCodeCartCheckedOut, "购物车已结算")

	// ErrItemNotFound 购物车中没有该图书
	ErrItemNotFound = apperrors.New(apperrors.ErrCodeCartItemNotFound, "购物车中没有该图书")

	// ErrInvalidQuantity 数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidQuantity, "数量必须大于0")
)

// Cart 购物车，每个用户同时只有一个活动购物车
// 结算后Active=false，下次加购创建新购物车
type Cart struct {
	ID        uint
	UserID    uint
	Active    bool
	Items     []Item
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item 购物车行，UnitPrice在加购时冻结，结算时不重新取价
type Item struct {
	ID        uint
	CartID    uint
	BookID    uint
	Quantity  int
	UnitPrice int64
	AddedAt   time.Time
}

// New 创建活动购物车
func New(userID uint) *Cart {
	now := time.Now()
	return &Cart{
		UserID:    userID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddItem 加购
// 已有该图书时累加数量，保留第一次加购时冻结的单价
func (c *Cart) AddItem(bookID uint, qty int, unitPrice int64, now time.Time) error {
	if !c.Active {
		return ErrCartCheckedOut.Withf("购物车%d", c.ID)
	}
	if qty <= 0 {
		return ErrInvalidQuantity.Withf("图书%d 数量%d", bookID, qty)
	}

	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			c.Items[i].Quantity += qty
			c.UpdatedAt = now
			return nil
		}
	}

	c.Items = append(c.Items, Item{
		CartID:    c.ID,
		BookID:    bookID,
		Quantity:  qty,
		UnitPrice: unitPrice,
		AddedAt:   now,
	})
	c.UpdatedAt = now
	return nil
}

// RemoveItem 移除整行
func (c *Cart) RemoveItem(bookID uint, now time.Time) error {
	if !c.Active {
		return ErrCartCheckedOut.Withf("购物车%d", c.ID)
	}
	for i := range c.Items {
		if c.Items[i].BookID == bookID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.UpdatedAt = now
			return nil
		}
	}
	return ErrItemNotFound.Withf("图书%d", bookID)
}

// EnsureCheckoutable 结算前检查：活动且非空
func (c *Cart) EnsureCheckoutable() error {
	if !c.Active {
		return ErrCartCheckedOut.Withf("购物车%d", c.ID)
	}
	if len(c.Items) == 0 {
		return ErrCartEmpty.Withf("用户%d", c.UserID)
	}
	return nil
}

// TotalAmount 按冻结单价计算的合计（分）
func (c *Cart) TotalAmount() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}
