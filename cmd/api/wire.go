//go:build wireinject
// +build wireinject

// Wire依赖注入配置，修改后运行 `wire gen ./cmd/api` 重新生成 wire_gen.go

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	appcart "github.com/xiebiao/bookstore-order/internal/application/cart"
	appinventory "github.com/xiebiao/bookstore-order/internal/application/inventory"
	apporder "github.com/xiebiao/bookstore-order/internal/application/order"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookstore-order/internal/interface/http/handler"
	"github.com/xiebiao/bookstore-order/internal/interface/http/middleware"
	"github.com/xiebiao/bookstore-order/internal/interface/http/router"
)

// infrastructureSet 数据库、Redis、消息队列
var infrastructureSet = wire.NewSet(
	provideDB,
	provideRedis,
	providePublisher,
	provideAlertConsumer,
)

// repositorySet 仓储、事务、缓存、锁
var repositorySet = wire.NewSet(
	mysql.NewBookRepository,
	mysql.NewStockRepository,
	mysql.NewLedgerRepository,
	mysql.NewReservationRepository,
	mysql.NewOrderRepository,
	mysql.NewCartRepository,
	mysql.NewTxManager,
	wire.Bind(new(appinventory.TxManager), new(*mysql.TxManager)),
	wire.Bind(new(apporder.TxManager), new(*mysql.TxManager)),
	provideStockCache,
	redis.NewLocker,
	redis.NewTokenBlacklist,
)

// applicationSet 应用服务
var applicationSet = wire.NewSet(
	provideInventoryConfig,
	appinventory.NewService,
	wire.Bind(new(apporder.StockReserver), new(*appinventory.Service)),
	provideOrderConfig,
	apporder.NewService,
	appcart.NewService,
)

// interfaceSet HTTP、后台任务
var interfaceSet = wire.NewSet(
	provideJWTManager,
	wire.Bind(new(middleware.RevocationChecker), new(*redis.TokenBlacklist)),
	wire.Bind(new(handler.TokenRevoker), new(*redis.TokenBlacklist)),
	middleware.NewAuthMiddleware,
	handler.NewOrderHandler,
	handler.NewCartHandler,
	handler.NewInventoryHandler,
	handler.NewAuthHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
	provideSweeper,
)

// InitializeApp 组装整个应用，cleanup按创建的逆序释放资源
func InitializeApp(cfg *config.Config, log *zap.Logger) (*App, func(), error) {
	wire.Build(
		infrastructureSet,
		repositorySet,
		applicationSet,
		interfaceSet,
		newApp,
	)
	return nil, nil, nil
}
