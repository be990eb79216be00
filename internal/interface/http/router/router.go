// Package router 路由注册
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/xiebiao/bookstore-order/docs"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-order/internal/interface/http/handler"
	"github.com/xiebiao/bookstore-order/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-order/pkg/response"
)

// Handlers 全部HTTP处理器
type Handlers struct {
	Order     *handler.OrderHandler
	Cart      *handler.CartHandler
	Inventory *handler.InventoryHandler
	Auth      *handler.AuthHandler
}

// New 创建Gin引擎并注册路由
// 中间件顺序：Recovery → Tracing → Metrics → 访问日志 → 认证
func New(cfg *config.Config, log *zap.Logger, h Handlers, auth *middleware.AuthMiddleware) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(cfg.Tracing.ServiceName))
	}
	if cfg.Metrics.Enabled {
		r.Use(middleware.Metrics())
	}
	r.Use(middleware.RequestLogger(log))

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	if cfg.Metrics.Enabled {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}
	// 生产环境建议关闭或加访问控制
	if cfg.Server.Mode != "release" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	admin := auth.RequireAdmin()

	v1.POST("/auth/logout", h.Auth.Logout)

	orders := v1.Group("/orders")
	{
		orders.POST("", h.Order.CreateOrder)
		orders.POST("/checkout", h.Order.Checkout)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/stats/revenue", admin, h.Order.Revenue)
		orders.GET("/stats/status-counts", admin, h.Order.StatusCounts)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/pay", admin, h.Order.PayOrder)
		orders.POST("/:id/ship", admin, h.Order.ShipOrder)
		orders.POST("/:id/complete", h.Order.CompleteOrder)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
		orders.PUT("/:id/status", admin, h.Order.UpdateOrderStatus)
	}

	cart := v1.Group("/cart")
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddItem)
		cart.DELETE("/items/:book_id", h.Cart.RemoveItem)
	}

	inventory := v1.Group("/inventory")
	{
		inventory.GET("/stock", h.Inventory.GetStock)
		inventory.GET("/low-stock", h.Inventory.ListLowStock)
		inventory.GET("/out-of-stock", h.Inventory.ListOutOfStock)
		inventory.GET("/transactions", admin, h.Inventory.ListTransactions)

		inventory.POST("/receive", admin, h.Inventory.ReceiveStock)
		inventory.POST("/adjust", admin, h.Inventory.AdjustStock)
		inventory.POST("/reserve", admin, h.Inventory.ReserveStock)
		inventory.POST("/release", admin, h.Inventory.ReleaseStock)
		inventory.POST("/confirm", admin, h.Inventory.ConfirmSale)
		inventory.POST("/transactions", admin, h.Inventory.CreateTransaction)
	}

	return r
}
