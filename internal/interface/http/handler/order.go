package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/bookstore-order/internal/application/order"
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/internal/interface/http/dto"
	"github.com/xiebiao/bookstore-order/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
	"github.com/xiebiao/bookstore-order/pkg/money"
	"github.com/xiebiao/bookstore-order/pkg/response"
)

// OrderHandler 订单HTTP处理器
type OrderHandler struct {
	orders *apporder.Service
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(orders *apporder.Service) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// actor 管理员以系统身份操作任意订单，普通用户只能操作自己的订单
func actor(c *gin.Context) uint {
	if middleware.IsAdmin(c) {
		return apporder.SystemUser
	}
	return middleware.GetUserID(c)
}

// CreateOrder 创建订单
// @Summary      创建订单
// @Description  下单并在同一事务中预留库存，库存不足时整单失败；unit_price和discount仅管理员可指定
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "订单信息"
// @Success      200 {object} response.Response{data=dto.OrderResponse} "下单成功"
// @Failure      200 {object} response.Response "40001库存不足 / 40402图书不存在 / 409xx参数错误"
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	// 普通用户的单价和优惠一律忽略，按目录价下单
	trusted := middleware.IsAdmin(c)
	items := make([]apporder.CreateOrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = apporder.CreateOrderItem{
			BookID:      item.BookID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
		}
		if trusted {
			items[i].UnitPrice = item.UnitPrice
		}
	}

	o, err := h.orders.CreateOrder(c.Request.Context(), apporder.CreateOrderRequest{
		UserID:   middleware.GetUserID(c),
		Items:    items,
		Address:  req.Address.ToDomain(),
		CouponID: req.CouponID,
		Discount: trustedDiscount(c, req.Discount),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromOrder(o))
}

// Checkout 购物车结算
// @Summary      购物车结算
// @Description  按加购时冻结的价格下单，成功后购物车失效
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CheckoutRequest true "收货信息"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      200 {object} response.Response "40004购物车为空 / 40005购物车已结算"
// @Router       /orders/checkout [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	o, err := h.orders.CreateOrderFromCart(c.Request.Context(), apporder.CheckoutRequest{
		UserID:   middleware.GetUserID(c),
		Address:  req.Address.ToDomain(),
		CouponID: req.CouponID,
		Discount: trustedDiscount(c, req.Discount),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromOrder(o))
}

// trustedDiscount 优惠金额只接受管理员传入
func trustedDiscount(c *gin.Context, discount int64) int64 {
	if middleware.IsAdmin(c) {
		return discount
	}
	return 0
}

// ListOrders 我的订单
// @Summary      我的订单
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(20)
// @Param        status query string false "状态" Enums(PENDING, PAID, SHIPPED, COMPLETED, CANCELLED)
// @Success      200 {object} response.Response{data=response.PageData{list=[]dto.OrderResponse}}
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}

	var status *order.Status
	if req.Status != "" {
		s, err := order.ParseStatus(req.Status)
		if err != nil {
			response.Error(c, err)
			return
		}
		status = &s
	}

	list, err := h.orders.ListUserOrders(c.Request.Context(), middleware.GetUserID(c), status, req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, dto.FromOrders(list.List), list.Total, list.Page, list.PageSize)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      200 {object} response.Response "40403订单不存在"
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.GetOrder(c.Request.Context(), id, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromOrder(o))
}

// PayOrder 支付回调（管理员，确认出库）
// @Summary      支付订单
// @Description  待支付 → 已支付，预留库存转为出库
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Failure      200 {object} response.Response "40002订单状态不允许此操作"
// @Router       /orders/{id}/pay [post]
func (h *OrderHandler) PayOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.PayOrder(c.Request.Context(), id, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromOrder(o))
}

// ShipOrder 发货（管理员）
// @Summary      发货
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Param        request body dto.ShipOrderRequest false "物流备注"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Router       /orders/{id}/ship [post]
func (h *OrderHandler) ShipOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ShipOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	o, err := h.orders.ShipOrder(c.Request.Context(), id, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromOrder(o))
}

// CompleteOrder 确认收货
// @Summary      确认收货
// @Tags         订单模块
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Router       /orders/{id}/complete [post]
func (h *OrderHandler) CompleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := h.orders.CompleteOrder(c.Request.Context(), id, actor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromOrder(o))
}

// CancelOrder 取消订单
// @Summary      取消订单
// @Description  只有待支付订单可以取消，预留库存同时释放
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Param        request body dto.CancelOrderRequest false "取消原因"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelOrderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	o, err := h.orders.CancelOrder(c.Request.Context(), id, actor(c), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromOrder(o))
}

// UpdateOrderStatus 设置订单状态（管理员）
// @Summary      设置订单状态
// @Description  目标状态仍需满足状态机，库存副作用与对应操作一致
// @Tags         订单模块
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Param        request body dto.UpdateOrderStatusRequest true "目标状态"
// @Success      200 {object} response.Response{data=dto.OrderResponse}
// @Router       /orders/{id}/status [put]
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	target, err := order.ParseStatus(req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	o, err := h.orders.UpdateOrderStatus(c.Request.Context(), id, target, req.Note)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromOrder(o))
}

// Revenue 营收统计（管理员）
// @Summary      营收统计
// @Description  已完成订单的实付金额合计，完成时间 ∈ [from, to)
// @Tags         统计
// @Produce      json
// @Security     BearerAuth
// @Param        from query string true "开始 2006-01-02"
// @Param        to query string true "结束 2006-01-02"
// @Success      200 {object} response.Response{data=dto.RevenueResponse}
// @Failure      200 {object} response.Response "40908时间范围非法"
// @Router       /orders/stats/revenue [get]
func (h *OrderHandler) Revenue(c *gin.Context) {
	var req dto.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	if from == nil || to == nil {
		response.Error(c, apperrors.ErrInvalidParams.Withf("from和to必填"))
		return
	}

	revenue, err := h.orders.RevenueByDateRange(c.Request.Context(), *from, *to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, &dto.RevenueResponse{
		From:        dto.FormatTime(*from),
		To:          dto.FormatTime(*to),
		Revenue:     revenue,
		RevenueYuan: money.FormatYuan(revenue),
	})
}

// StatusCounts 按状态统计订单数（管理员）
// @Summary      订单状态分布
// @Tags         统计
// @Produce      json
// @Security     BearerAuth
// @Param        from query string false "下单时间起"
// @Param        to query string false "下单时间止"
// @Success      200 {object} response.Response{data=dto.StatusCountResponse}
// @Router       /orders/stats/status-counts [get]
func (h *OrderHandler) StatusCounts(c *gin.Context) {
	var req dto.DateRangeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		bindError(c, err)
		return
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		response.Error(c, err)
		return
	}

	counts, err := h.orders.CountByStatus(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.FromStatusCounts(counts))
}
