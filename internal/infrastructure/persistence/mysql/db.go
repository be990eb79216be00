package mysql

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xiebiao/bookstore-order/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 1. GORM v2 + MySQL驱动
// 2. 配置连接池（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. debug模式打印SQL
// 4. 按配置自动迁移表结构
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	logLevel := gormlogger.Silent
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logLevel),
		NowFunc: time.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}
	log.Info("database connected", zap.String("host", cfg.Database.Host), zap.String("db", cfg.Database.DBName))

	// 生产环境应使用版本化的迁移脚本
	if cfg.Database.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			return nil, fmt.Errorf("数据库迁移失败: %w", err)
		}
	}
	return db, nil
}

// AutoMigrate 自动迁移表结构
// 只会创建表、添加字段和索引，不会删除或修改现有字段
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&BookModel{},
		&StockItemModel{},
		&InventoryTransactionModel{},
		&StockReservationModel{},
		&OrderModel{},
		&OrderItemModel{},
		&OrderAddressModel{},
		&CartModel{},
		&CartItemModel{},
	)
}

// BookModel 图书（目录由图书服务维护，这里只读）
// 价格使用int64存储"分"
type BookModel struct {
	ID        uint           `gorm:"primaryKey"`
	ISBN      string         `gorm:"uniqueIndex;size:20;not null;comment:ISBN号"`
	Title     string         `gorm:"size:200;not null;comment:书名"`
	Author    string         `gorm:"size:100;not null;comment:作者"`
	Publisher string         `gorm:"size:100;comment:出版社"`
	Price     int64          `gorm:"not null;comment:价格(分)"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

func (BookModel) TableName() string {
	return "books"
}

// StockItemModel 库存
// (book_id, warehouse_id) 唯一：并发首次入库只会有一行
type StockItemModel struct {
	ID               uint      `gorm:"primaryKey"`
	BookID           uint      `gorm:"uniqueIndex:uk_book_warehouse,priority:1;not null;comment:图书ID"`
	WarehouseID      uint      `gorm:"uniqueIndex:uk_book_warehouse,priority:2;not null;comment:仓库ID"`
	QuantityOnHand   int       `gorm:"index;not null;default:0;comment:在库数量"`
	ReservedQuantity int       `gorm:"not null;default:0;comment:已预留数量"`
	SoldQuantity     int       `gorm:"not null;default:0;comment:累计售出"`
	CreatedAt        time.Time `gorm:"comment:创建时间"`
	UpdatedAt        time.Time `gorm:"comment:更新时间"`
}

func (StockItemModel) TableName() string {
	return "stock_items"
}

// InventoryTransactionModel 库存流水（只追加）
type InventoryTransactionModel struct {
	ID             uint      `gorm:"primaryKey"`
	WarehouseID    uint      `gorm:"index:idx_warehouse_created,priority:1;not null;comment:仓库ID"`
	BookID         uint      `gorm:"index;not null;comment:图书ID"`
	Type           string    `gorm:"size:16;index;not null;comment:INBOUND/OUTBOUND/ADJUSTMENT"`
	QuantityChange int       `gorm:"not null;comment:数量变化(带符号)"`
	ReferenceID    *string   `gorm:"size:64;index;comment:关联单据号"`
	Note           string    `gorm:"size:255;comment:备注"`
	CreatedAt      time.Time `gorm:"index:idx_warehouse_created,priority:2;index;comment:创建时间"`
}

func (InventoryTransactionModel) TableName() string {
	return "inventory_transactions"
}

// StockReservationModel 订单行库存预留
// (status, expires_at) 索引供过期清理扫描
type StockReservationModel struct {
	ID          uint      `gorm:"primaryKey"`
	OrderID     uint      `gorm:"index;not null;comment:订单ID"`
	BookID      uint      `gorm:"not null;comment:图书ID"`
	WarehouseID uint      `gorm:"not null;comment:仓库ID"`
	Quantity    int       `gorm:"not null;comment:预留数量"`
	Status      string    `gorm:"size:16;index:idx_status_expires,priority:1;not null;comment:ACTIVE/CONFIRMED/RELEASED"`
	ExpiresAt   time.Time `gorm:"index:idx_status_expires,priority:2;not null;comment:过期时间"`
	CreatedAt   time.Time `gorm:"comment:创建时间"`
	UpdatedAt   time.Time `gorm:"comment:更新时间"`
}

func (StockReservationModel) TableName() string {
	return "stock_reservations"
}

// OrderModel 订单
// OrderNo唯一索引（业务主键）；Status使用tinyint存储
type OrderModel struct {
	ID             uint              `gorm:"primaryKey"`
	OrderNo        string            `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	UserID         uint              `gorm:"index:idx_user_created,priority:1;not null;comment:买家用户ID"`
	Status         int               `gorm:"index;type:tinyint;default:1;comment:订单状态(1待支付2已支付3已发货4已完成5已取消)"`
	TotalAmount    int64             `gorm:"not null;comment:订单总金额(分)"`
	DiscountAmount int64             `gorm:"not null;default:0;comment:优惠金额(分)"`
	FinalAmount    int64             `gorm:"not null;comment:实付金额(分)"`
	CouponID       *uint             `gorm:"comment:优惠券ID"`
	ShippingNote   string            `gorm:"size:255;comment:物流备注"`
	CancelReason   string            `gorm:"size:255;comment:取消原因"`
	Items          []OrderItemModel  `gorm:"foreignKey:OrderID"`
	Address        OrderAddressModel `gorm:"foreignKey:OrderID"`
	CreatedAt      time.Time         `gorm:"index:idx_user_created,priority:2;index;comment:创建时间"`
	UpdatedAt      time.Time         `gorm:"comment:更新时间"`
	PaidAt         *time.Time        `gorm:"comment:支付时间"`
	ShippedAt      *time.Time        `gorm:"comment:发货时间"`
	CompletedAt    *time.Time        `gorm:"index;comment:完成时间"`
	CancelledAt    *time.Time        `gorm:"comment:取消时间"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel 订单明细，UnitPrice是下单时的价格快照
type OrderItemModel struct {
	ID          uint  `gorm:"primaryKey"`
	OrderID     uint  `gorm:"index;not null;comment:订单ID"`
	BookID      uint  `gorm:"index;not null;comment:图书ID"`
	WarehouseID uint  `gorm:"not null;comment:发货仓库ID"`
	Quantity    int   `gorm:"not null;comment:购买数量"`
	UnitPrice   int64 `gorm:"not null;comment:下单时单价(分)"`
	Subtotal    int64 `gorm:"not null;comment:小计(分)"`
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderAddressModel 收货地址快照，与订单一对一
type OrderAddressModel struct {
	ID           uint   `gorm:"primaryKey"`
	OrderID      uint   `gorm:"uniqueIndex;not null;comment:订单ID"`
	ReceiverName string `gorm:"size:50;not null;comment:收件人"`
	Phone        string `gorm:"size:20;not null;comment:电话"`
	Province     string `gorm:"size:50;comment:省"`
	City         string `gorm:"size:50;comment:市"`
	District     string `gorm:"size:50;comment:区"`
	Detail       string `gorm:"size:255;not null;comment:详细地址"`
}

func (OrderAddressModel) TableName() string {
	return "order_addresses"
}

// CartModel 购物车
// ActiveUserID 活动时等于UserID，结算后置NULL；唯一索引保证每个用户最多一个活动购物车
type CartModel struct {
	ID           uint            `gorm:"primaryKey"`
	UserID       uint            `gorm:"index;not null;comment:用户ID"`
	ActiveUserID *uint           `gorm:"uniqueIndex;comment:活动购物车所属用户"`
	Items        []CartItemModel `gorm:"foreignKey:CartID"`
	CreatedAt    time.Time       `gorm:"comment:创建时间"`
	UpdatedAt    time.Time       `gorm:"comment:更新时间"`
}

func (CartModel) TableName() string {
	return "carts"
}

// CartItemModel 购物车行，UnitPrice加购时冻结
type CartItemModel struct {
	ID        uint      `gorm:"primaryKey"`
	CartID    uint      `gorm:"uniqueIndex:uk_cart_book,priority:1;not null;comment:购物车ID"`
	BookID    uint      `gorm:"uniqueIndex:uk_cart_book,priority:2;not null;comment:图书ID"`
	Quantity  int       `gorm:"not null;comment:数量"`
	UnitPrice int64     `gorm:"not null;comment:加购时单价(分)"`
	AddedAt   time.Time `gorm:"comment:加购时间"`
}

func (CartItemModel) TableName() string {
	return "cart_items"
}
