package dto

import (
	"github.com/xiebiao/bookstore-order/internal/domain/cart"
	"github.com/xiebiao/bookstore-order/pkg/money"
)

// AddCartItemRequest 加购
type AddCartItemRequest struct {
	BookID   uint `json:"book_id" binding:"required" example:"1"`
	Quantity int  `json:"quantity" binding:"required,min=1,max=999" example:"1"`
}

// CartItemResponse 购物车行
type CartItemResponse struct {
	BookID        uint   `json:"book_id"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	UnitPriceYuan string `json:"unit_price_yuan"`
	AddedAt       string `json:"added_at"`
}

// CartResponse 购物车
type CartResponse struct {
	ID        uint               `json:"id"`
	Items     []CartItemResponse `json:"items"`
	Total     int64              `json:"total"`
	TotalYuan string             `json:"total_yuan"`
}

// FromCart 领域购物车 → 响应
func FromCart(c *cart.Cart) *CartResponse {
	items := make([]CartItemResponse, len(c.Items))
	for i, item := range c.Items {
		items[i] = CartItemResponse{
			BookID:        item.BookID,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			UnitPriceYuan: money.FormatYuan(item.UnitPrice),
			AddedAt:       FormatTime(item.AddedAt),
		}
	}
	total := c.TotalAmount()
	return &CartResponse{
		ID:        c.ID,
		Items:     items,
		Total:     total,
		TotalYuan: money.FormatYuan(total),
	}
}
