package dto

import (
	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
)

// StockKeyQuery 库存行定位
type StockKeyQuery struct {
	BookID      uint `form:"book_id" binding:"required" example:"1"`
	WarehouseID uint `form:"warehouse_id" binding:"required" example:"1"`
}

// StockQuantityRequest 预留/释放/确认
type StockQuantityRequest struct {
	BookID      uint   `json:"book_id" binding:"required" example:"1"`
	WarehouseID uint   `json:"warehouse_id" binding:"required" example:"1"`
	Quantity    int    `json:"quantity" binding:"required,min=1" example:"2"`
	ReferenceID string `json:"reference_id" binding:"max=64" example:"ORD-20241106-123456"`
}

// ReceiveStockRequest 入库
type ReceiveStockRequest struct {
	BookID      uint   `json:"book_id" binding:"required" example:"1"`
	WarehouseID uint   `json:"warehouse_id" binding:"required" example:"1"`
	Quantity    int    `json:"quantity" binding:"required,min=1" example:"100"`
	ReferenceID string `json:"reference_id" binding:"max=64" example:"PO-20241106-01"`
	Note        string `json:"note" binding:"max=255" example:"供应商到货"`
}

// AdjustStockRequest 盘点调整
type AdjustStockRequest struct {
	BookID      uint   `json:"book_id" binding:"required" example:"1"`
	WarehouseID uint   `json:"warehouse_id" binding:"required" example:"1"`
	Operation   string `json:"operation" binding:"required,adjust_op" example:"subtract"`
	Quantity    int    `json:"quantity" binding:"min=0" example:"3"`
	Note        string `json:"note" binding:"max=255" example:"盘点破损"`
}

// LowStockQuery 低库存列表，threshold省略时使用配置值
type LowStockQuery struct {
	PageQuery
	Threshold int `form:"threshold" binding:"omitempty,min=1" example:"10"`
}

// CreateTransactionRequest 手工记一笔流水（不改变库存）
type CreateTransactionRequest struct {
	BookID         uint    `json:"book_id" binding:"required" example:"1"`
	WarehouseID    uint    `json:"warehouse_id" binding:"required" example:"1"`
	Type           string  `json:"type" binding:"required,ledger_type" example:"ADJUSTMENT"`
	QuantityChange int     `json:"quantity_change" binding:"required" example:"-2"`
	ReferenceID    *string `json:"reference_id" binding:"omitempty,max=64"`
	Note           string  `json:"note" binding:"max=255"`
}

// ListTransactionsQuery 流水查询，时间格式 2006-01-02 或 RFC3339
type ListTransactionsQuery struct {
	PageQuery
	BookID      *uint  `form:"book_id"`
	WarehouseID *uint  `form:"warehouse_id"`
	Type        string `form:"type" binding:"omitempty,ledger_type"`
	From        string `form:"from"`
	To          string `form:"to"`
}

// StockResponse 库存行
type StockResponse struct {
	BookID           uint   `json:"book_id"`
	WarehouseID      uint   `json:"warehouse_id"`
	QuantityOnHand   int    `json:"quantity_on_hand"`
	ReservedQuantity int    `json:"reserved_quantity"`
	Available        int    `json:"available"`
	SoldQuantity     int    `json:"sold_quantity"`
	UpdatedAt        string `json:"updated_at"`
}

// FromStock 领域库存 → 响应
func FromStock(s *stock.StockItem) *StockResponse {
	return &StockResponse{
		BookID:           s.BookID,
		WarehouseID:      s.WarehouseID,
		QuantityOnHand:   s.QuantityOnHand,
		ReservedQuantity: s.ReservedQuantity,
		Available:        s.Available(),
		SoldQuantity:     s.SoldQuantity,
		UpdatedAt:        FormatTime(s.UpdatedAt),
	}
}

// FromStocks 列表转换
func FromStocks(items []*stock.StockItem) []*StockResponse {
	out := make([]*StockResponse, len(items))
	for i, s := range items {
		out[i] = FromStock(s)
	}
	return out
}

// TransactionResponse 库存流水
type TransactionResponse struct {
	ID             uint    `json:"id"`
	BookID         uint    `json:"book_id"`
	WarehouseID    uint    `json:"warehouse_id"`
	Type           string  `json:"type"`
	QuantityChange int     `json:"quantity_change"`
	ReferenceID    *string `json:"reference_id,omitempty"`
	Note           string  `json:"note,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// FromTransaction 领域流水 → 响应
func FromTransaction(t *ledger.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:             t.ID,
		BookID:         t.BookID,
		WarehouseID:    t.WarehouseID,
		Type:           string(t.Type),
		QuantityChange: t.QuantityChange,
		ReferenceID:    t.ReferenceID,
		Note:           t.Note,
		CreatedAt:      FormatTime(t.CreatedAt),
	}
}

// FromTransactions 列表转换
func FromTransactions(list []*ledger.Transaction) []*TransactionResponse {
	out := make([]*TransactionResponse, len(list))
	for i, t := range list {
		out[i] = FromTransaction(t)
	}
	return out
}
