package book

import (
	"time"
)

// Book 图书（只读）
// 目录由图书服务维护，本服务只用它解析下单明细和加购价格
type Book struct {
	ID        uint
	ISBN      string
	Title     string
	Author    string
	Publisher string
	Price     int64 // 当前售价（分）
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsPurchasable 价格有效才能下单
func (b *Book) IsPurchasable() bool {
	return b.Price > 0
}
