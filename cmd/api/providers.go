package main

import (
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	appinventory "github.com/xiebiao/bookstore-order/internal/application/inventory"
	apporder "github.com/xiebiao/bookstore-order/internal/application/order"
	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/messaging"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookstore-order/internal/interface/job"
	"github.com/xiebiao/bookstore-order/pkg/circuitbreaker"
	"github.com/xiebiao/bookstore-order/pkg/jwt"
	"github.com/xiebiao/bookstore-order/pkg/mq"
)

// App 进程内需要启动的组件
type App struct {
	Engine        *gin.Engine
	Sweeper       *job.ExpirySweeper         // 未启用时为nil
	AlertConsumer *messaging.StockAlertConsumer // 未启用时为nil
}

func newApp(engine *gin.Engine, sweeper *job.ExpirySweeper, consumer *messaging.StockAlertConsumer) *App {
	return &App{Engine: engine, Sweeper: sweeper, AlertConsumer: consumer}
}

// provideDB 数据库连接，cleanup关闭连接池
func provideDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	db, err := mysql.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

// provideRedis Redis连接，cleanup关闭客户端
func provideRedis(cfg *config.Config, log *zap.Logger) (*goredis.Client, func(), error) {
	client, err := redis.NewClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// provideStockCache 缓存关闭时返回nil，库存服务直接读库
func provideStockCache(cfg *config.Config, client *goredis.Client) stock.Cache {
	if !cfg.Inventory.CacheEnabled {
		return nil
	}
	return redis.NewStockCache(client)
}

// providePublisher 消息队列未启用时不发布事件
// 启用时经过熔断器发布，RabbitMQ不可用不拖慢下单
func providePublisher(cfg *config.Config, log *zap.Logger) (event.Publisher, func(), error) {
	if !cfg.MQ.Enabled {
		return event.NopPublisher{}, func() {}, nil
	}
	pub, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, log)
	if err != nil {
		return nil, nil, err
	}
	breaker := circuitbreaker.New("mq-publisher", circuitbreaker.DefaultConfig(), log)
	return messaging.NewEventPublisher(pub, breaker, log), func() { _ = pub.Close() }, nil
}

// provideAlertConsumer 配置了alert_queue时订阅stock.low
func provideAlertConsumer(cfg *config.Config, log *zap.Logger) (*messaging.StockAlertConsumer, func(), error) {
	if !cfg.MQ.Enabled || cfg.MQ.AlertQueue == "" {
		return nil, func() {}, nil
	}
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, cfg.MQ.AlertQueue,
		[]string{string(event.StockLow)}, log)
	if err != nil {
		return nil, nil, err
	}
	return messaging.NewStockAlertConsumer(consumer, log), func() { _ = consumer.Close() }, nil
}

func provideInventoryConfig(cfg *config.Config) appinventory.Config {
	return appinventory.Config{
		LowStockThreshold:  cfg.Inventory.LowStockThreshold,
		CacheTTL:           cfg.Inventory.CacheTTL,
		CacheRedeleteDelay: cfg.Inventory.CacheRedeleteDelay,
	}
}

func provideOrderConfig(cfg *config.Config) apporder.Config {
	return apporder.Config{
		DefaultWarehouseID: cfg.Inventory.DefaultWarehouseID,
		ReservationTTL:     cfg.Order.ReservationTTL,
		OrderNoRetries:     cfg.Order.OrderNoRetries,
		CheckoutTimeout:    cfg.Order.CheckoutTimeout,
	}
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpire)
}

// provideSweeper 未启用时返回nil
func provideSweeper(cfg *config.Config, orders *apporder.Service, locker *redis.Locker, log *zap.Logger) *job.ExpirySweeper {
	if !cfg.Order.SweepEnabled {
		return nil
	}
	return job.NewExpirySweeper(orders, locker, cfg.Order.SweepInterval, cfg.Order.SweepBatch, log)
}
