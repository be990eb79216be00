package handler

import (
	"github.com/gin-gonic/gin"

	appinventory "github.com/xiebiao/bookstore-order/internal/application/inventory"
	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	"github.com/xiebiao/bookstore-order/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-order/pkg/response"
)

// InventoryHandler 库存HTTP处理器，写操作只对管理员开放
type InventoryHandler struct {
	inventory *appinventory.Service
}

// NewInventoryHandler 创建库存处理器
func NewInventoryHandler(inventory *appinventory.Service) *InventoryHandler {
	return &InventoryHandler{inventory: inventory}
}

func (h *InventoryHandler) reply(c *gin.Context, item *stock.StockItem, err error) {
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromStock(item))
}

// GetStock 查询库存
// @Summary      查询库存
// @Tags         库存
// @Produce      json
// @Security     BearerAuth
// @Param        book_id query int true "图书ID"
// @Param        warehouse_id query int true "仓库ID"
// @Success      200 {object} response.Response{data=dto.StockResponse}
// @Failure      200 {object} response.Response "40404库存记录不存在"
// @Router       /inventory/stock [get]
func (h *InventoryHandler) GetStock(c *gin.Context) {
	var q dto.StockKeyQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.inventory.GetStock(c.Request.Context(), q.BookID, q.WarehouseID)
	h.reply(c, item, err)
}

// ReceiveStock 入库
// @Summary      入库
// @Description  首次入库自动创建库存记录，写INBOUND流水
// @Tags         库存
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.ReceiveStockRequest true "入库信息"
// @Success      200 {object} response.Response{data=dto.StockResponse}
// @Router       /inventory/receive [post]
func (h *InventoryHandler) ReceiveStock(c *gin.Context) {
	var req dto.ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.inventory.ReceiveStock(c.Request.Context(), req.BookID, req.WarehouseID, req.Quantity, req.ReferenceID, req.Note)
	h.reply(c, item, err)
}

// AdjustStock 盘点调整
// @Summary      盘点调整
// @Description  add/subtract/set，调整后在库不能低于已预留，写ADJUSTMENT流水
// @Tags         库存
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.AdjustStockRequest true "调整信息"
// @Success      200 {object} response.Response{data=dto.StockResponse}
// @Failure      200 {object} response.Response "40003调整后低于已预留"
// @Router       /inventory/adjust [post]
func (h *InventoryHandler) AdjustStock(c *gin.Context) {
	var req dto.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.inventory.AdjustStock(c.Request.Context(), req.BookID, req.WarehouseID, req.Operation, req.Quantity, req.Note)
	h.reply(c, item, err)
}

// ReserveStock 预留库存
// @Summary      预留库存
// @Tags         库存
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.StockQuantityRequest true "数量"
// @Success      200 {object} response.Response{data=dto.StockResponse}
// @Failure      200 {object} response.Response "40001库存不足"
// @Router       /inventory/reserve [post]
func (h *InventoryHandler) ReserveStock(c *gin.Context) {
	var req dto.StockQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.inventory.ReserveStock(c.Request.Context(), req.BookID, req.WarehouseID, req.Quantity)
	h.reply(c, item, err)
}

// ReleaseStock 释放预留
// @Summary      释放预留
// @Description  释放量超过已预留时截断为0
// @Tags         库存
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.StockQuantityRequest true "数量"
// @Success      200 {object} response.Response{data=dto.StockResponse}
// @Router       /inventory/release [post]
func (h *InventoryHandler) ReleaseStock(c *gin.Context) {
	var req dto.StockQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.inventory.ReleaseReserved(c.Request.Context(), req.BookID, req.WarehouseID, req.Quantity)
	h.reply(c, item, err)
}

// ConfirmSale 确认出库
// @Summary      确认出库
// @Description  预留转为售出，写OUTBOUND流水
// @Tags         库存
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.StockQuantityRequest true "数量和单据号"
// @Success      200 {object} response.Response{data=dto.StockResponse}
// @Router       /inventory/confirm [post]
func (h *InventoryHandler) ConfirmSale(c *gin.Context) {
	var req dto.StockQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	item, err := h.inventory.ConfirmSale(c.Request.Context(), req.BookID, req.WarehouseID, req.Quantity, req.ReferenceID)
	h.reply(c, item, err)
}

// ListLowStock 低库存列表
// @Summary      低库存列表
// @Description  0 < 在库 <= threshold，threshold省略时使用配置值
// @Tags         库存
// @Produce      json
// @Security     BearerAuth
// @Param        threshold query int false "阈值"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.StockResponse}}
// @Router       /inventory/low-stock [get]
func (h *InventoryHandler) ListLowStock(c *gin.Context) {
	var q dto.LowStockQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	list, err := h.inventory.ListLowStock(c.Request.Context(), q.Threshold, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.FromStocks(list.List), list.Total, list.Page, list.PageSize)
}

// ListOutOfStock 缺货列表
// @Summary      缺货列表
// @Tags         库存
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.StockResponse}}
// @Router       /inventory/out-of-stock [get]
func (h *InventoryHandler) ListOutOfStock(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	list, err := h.inventory.ListOutOfStock(c.Request.Context(), q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.FromStocks(list.List), list.Total, list.Page, list.PageSize)
}

// CreateTransaction 手工记流水
// @Summary      记一笔库存流水
// @Description  只追加审计记录，不改变库存；数量符号必须与类型一致
// @Tags         库存
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateTransactionRequest true "流水"
// @Success      200 {object} response.Response{data=dto.TransactionResponse}
// @Failure      200 {object} response.Response "40904数量符号与类型不符"
// @Router       /inventory/transactions [post]
func (h *InventoryHandler) CreateTransaction(c *gin.Context) {
	var req dto.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	typ, err := ledger.ParseTransactionType(req.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	tx, err := h.inventory.CreateTransaction(c.Request.Context(), req.WarehouseID, req.BookID, typ, req.QuantityChange, req.ReferenceID, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromTransaction(tx))
}

// ListTransactions 流水查询
// @Summary      库存流水
// @Tags         库存
// @Produce      json
// @Security     BearerAuth
// @Param        book_id query int false "图书ID"
// @Param        warehouse_id query int false "仓库ID"
// @Param        type query string false "类型" Enums(INBOUND, OUTBOUND, ADJUSTMENT)
// @Param        from query string false "起始时间(含)"
// @Param        to query string false "结束时间(不含)"
// @Param        page query int false "页码"
// @Param        page_size query int false "每页数量"
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.TransactionResponse}}
// @Router       /inventory/transactions [get]
func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	var q dto.ListTransactionsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	from, to, err := parseRange(q.From, q.To)
	if err != nil {
		response.Error(c, err)
		return
	}

	filter := ledger.Filter{
		WarehouseID: q.WarehouseID,
		BookID:      q.BookID,
		From:        from,
		To:          to,
		Page:        q.Page,
		PageSize:    q.PageSize,
	}
	if q.Type != "" {
		typ, err := ledger.ParseTransactionType(q.Type)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.Type = &typ
	}

	list, err := h.inventory.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.FromTransactions(list.List), list.Total, list.Page, list.PageSize)
}
