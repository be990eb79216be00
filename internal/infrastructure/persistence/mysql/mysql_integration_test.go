//go:build integration

package mysql

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appinventory "github.com/xiebiao/bookstore-order/internal/application/inventory"
	apporder "github.com/xiebiao/bookstore-order/internal/application/order"
	"github.com/xiebiao/bookstore-order/internal/domain/book"
	"github.com/xiebiao/bookstore-order/internal/domain/cart"
	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/internal/domain/reservation"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	"github.com/xiebiao/bookstore-order/internal/infrastructure/config"
)

// 运行: go test -tags=integration ./internal/infrastructure/persistence/mysql/...
type MySQLSuite struct {
	suite.Suite
	ctx       context.Context
	container *tcmysql.MySQLContainer
	db        *gorm.DB
	txm       *TxManager
}

func TestMySQLSuite(t *testing.T) {
	suite.Run(t, new(MySQLSuite))
}

var testTables = []string{
	"order_items", "order_addresses", "orders",
	"stock_reservations", "inventory_transactions", "stock_items",
	"cart_items", "carts", "books",
}

var testAddress = order.Address{ReceiverName: "张三", Phone: "13800138000", City: "杭州市", Detail: "文三路100号"}

func (s *MySQLSuite) SetupSuite() {
	s.ctx = context.Background()

	var err error
	s.container, err = tcmysql.Run(s.ctx, "mysql:8.0",
		tcmysql.WithDatabase("bookstore_test"),
		tcmysql.WithUsername("bookstore"),
		tcmysql.WithPassword("bookstore"),
	)
	s.Require().NoError(err)

	dsn, err := s.container.ConnectionString(s.ctx, "charset=utf8mb4", "parseTime=True", "loc=Local")
	s.Require().NoError(err)

	s.db, err = gorm.Open(gormmysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(32)
	s.Require().NoError(AutoMigrate(s.db))

	cfg := &config.Config{}
	cfg.Database.TxMaxRetries = 10
	cfg.Database.TxRetryBackoff = 10 * time.Millisecond
	s.txm = NewTxManager(s.db, cfg, zap.NewNop())
}

func (s *MySQLSuite) TearDownSuite() {
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if s.container != nil {
		if err := s.container.Terminate(s.ctx); err != nil {
			s.T().Logf("terminate mysql container: %v", err)
		}
	}
}

// SetupTest 清空所有表；外键检查是会话级的，固定在同一个连接上执行
func (s *MySQLSuite) SetupTest() {
	err := s.db.Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("SET FOREIGN_KEY_CHECKS = 0").Error; err != nil {
			return err
		}
		for _, table := range testTables {
			if err := conn.Exec("TRUNCATE TABLE " + table).Error; err != nil {
				return err
			}
		}
		return conn.Exec("SET FOREIGN_KEY_CHECKS = 1").Error
	})
	s.Require().NoError(err)
}

func (s *MySQLSuite) inventoryService() *appinventory.Service {
	return appinventory.NewService(
		NewStockRepository(s.db), NewLedgerRepository(s.db), NewReservationRepository(s.db),
		nil, s.txm, nil,
		appinventory.Config{LowStockThreshold: 0},
		zap.NewNop(),
	)
}

func (s *MySQLSuite) putStock(bookID, warehouseID uint, onHand int) {
	s.Require().NoError(s.db.Create(&StockItemModel{BookID: bookID, WarehouseID: warehouseID, QuantityOnHand: onHand}).Error)
}

func (s *MySQLSuite) createOrder(orderNo string, userID uint, unitPrice int64, createdAt time.Time) *order.Order {
	o, err := order.NewOrder(orderNo, userID, []order.OrderItem{
		{BookID: 1, WarehouseID: 1, Quantity: 2, UnitPrice: unitPrice},
	}, testAddress, nil, 0, createdAt)
	s.Require().NoError(err)
	s.Require().NoError(NewOrderRepository(s.db).Create(s.ctx, o))
	return o
}

// 15本库存，12个订单各预留2本：行锁串行化后恰好7个成功，预留数永远不超过在库
func (s *MySQLSuite) TestReserveForOrder_ConcurrentNeverOversells() {
	t := s.T()
	const (
		onHand  = 15
		perLine = 2
		buyers  = 12
	)
	s.putStock(1, 1, onHand)
	svc := s.inventoryService()
	expiresAt := time.Now().Add(time.Hour)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		success      int
		insufficient int
		other        []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(orderID uint) {
			defer wg.Done()
			err := svc.ReserveForOrder(s.ctx, orderID, []appinventory.Line{{BookID: 1, WarehouseID: 1, Quantity: perLine}}, expiresAt)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				success++
			case errors.Is(err, stock.ErrInsufficientStock):
				insufficient++
			default:
				other = append(other, err)
			}
		}(uint(100 + i))
	}
	wg.Wait()

	require.Empty(t, other)
	assert.Equal(t, onHand/perLine, success)
	assert.Equal(t, buyers-onHand/perLine, insufficient)

	item, err := NewStockRepository(s.db).FindByKey(s.ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, onHand, item.QuantityOnHand)
	assert.Equal(t, success*perLine, item.ReservedQuantity)
	assert.LessOrEqual(t, item.ReservedQuantity, item.QuantityOnHand)

	var active int64
	require.NoError(t, s.db.Model(&StockReservationModel{}).
		Where("status = ?", string(reservation.StatusActive)).Count(&active).Error)
	assert.Equal(t, int64(success), active, "失败的订单不留下预留记录")
}

// 并发首次入库：冲突方走DO NOTHING再加锁读，死锁由事务重试兜底，最终只有一行
func (s *MySQLSuite) TestLockOrCreate_SingleRowUnderConcurrency() {
	t := s.T()
	repo := NewStockRepository(s.db)
	const workers = 4

	var wg sync.WaitGroup
	ids := make(chan uint, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var id uint
			err := s.txm.Transaction(s.ctx, func(ctx context.Context) error {
				item, err := repo.LockOrCreate(ctx, 7, 2)
				if err != nil {
					return err
				}
				id = item.ID
				return nil
			})
			if err != nil {
				errs <- err
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var first uint
	count := 0
	for id := range ids {
		if first == 0 {
			first = id
		}
		assert.Equal(t, first, id)
		count++
	}
	assert.Equal(t, workers, count)

	var rows int64
	require.NoError(t, s.db.Model(&StockItemModel{}).Where("book_id = ? AND warehouse_id = ?", 7, 2).Count(&rows).Error)
	assert.Equal(t, int64(1), rows)

	_, err := repo.FindByKey(s.ctx, 7, 3)
	assert.ErrorIs(t, err, stock.ErrStockItemNotFound)
}

func (s *MySQLSuite) TestListExpiredOrderIDs() {
	t := s.T()
	now := time.Now().Truncate(time.Second)
	rows := []StockReservationModel{
		{OrderID: 1, BookID: 1, WarehouseID: 1, Quantity: 1, Status: string(reservation.StatusActive), ExpiresAt: now.Add(-10 * time.Minute)},
		{OrderID: 1, BookID: 2, WarehouseID: 1, Quantity: 1, Status: string(reservation.StatusActive), ExpiresAt: now.Add(time.Hour)},
		{OrderID: 2, BookID: 1, WarehouseID: 1, Quantity: 1, Status: string(reservation.StatusActive), ExpiresAt: now.Add(-30 * time.Minute)},
		{OrderID: 3, BookID: 1, WarehouseID: 1, Quantity: 1, Status: string(reservation.StatusReleased), ExpiresAt: now.Add(-20 * time.Minute)},
		{OrderID: 4, BookID: 1, WarehouseID: 1, Quantity: 1, Status: string(reservation.StatusActive), ExpiresAt: now.Add(time.Hour)},
		{OrderID: 5, BookID: 1, WarehouseID: 1, Quantity: 1, Status: string(reservation.StatusActive), ExpiresAt: now.Add(-5 * time.Minute)},
	}
	for i := range rows {
		rows[i].CreatedAt, rows[i].UpdatedAt = now, now
	}
	require.NoError(t, s.db.Create(&rows).Error)

	repo := NewReservationRepository(s.db)

	ids, err := repo.ListExpiredOrderIDs(s.ctx, now, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 1, 5}, ids, "按最早过期时间排序，已释放和未过期的不返回")

	ids, err = repo.ListExpiredOrderIDs(s.ctx, now, nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 1}, ids)

	ids, err = repo.ListExpiredOrderIDs(s.ctx, now, []uint{2}, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 5}, ids)

	err = s.txm.Transaction(s.ctx, func(ctx context.Context) error {
		locked, err := repo.ListActiveByOrderForUpdate(ctx, 1)
		if err != nil {
			return err
		}
		require.Len(t, locked, 2)
		for _, r := range locked {
			require.NoError(t, r.Release(now))
		}
		return repo.UpdateStatus(ctx, locked)
	})
	require.NoError(t, err)

	ids, err = repo.ListExpiredOrderIDs(s.ctx, now, nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{2, 5}, ids)
}

func (s *MySQLSuite) TestOrderRepository_CreateFindAndPaginate() {
	t := s.T()
	repo := NewOrderRepository(s.db)
	base := time.Now().Truncate(time.Second).Add(-time.Hour)

	var created []*order.Order
	for i := 0; i < 5; i++ {
		created = append(created, s.createOrder(fmt.Sprintf("ORD-20240101-%06d", i), 9, 1000, base.Add(time.Duration(i)*time.Minute)))
	}
	s.createOrder("ORD-20240101-999999", 10, 1000, base)

	dup, err := order.NewOrder(created[0].OrderNo, 9, []order.OrderItem{
		{BookID: 1, WarehouseID: 1, Quantity: 1, UnitPrice: 1000},
	}, testAddress, nil, 0, base)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(s.ctx, dup), order.ErrDuplicateOrderNo)

	got, err := repo.FindByID(s.ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, created[0].OrderNo, got.OrderNo)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2000), got.Items[0].Subtotal)
	assert.Equal(t, testAddress.Detail, got.Address.Detail)
	assert.Equal(t, order.StatusPending, got.Status)

	_, err = repo.FindByID(s.ctx, 9999)
	assert.ErrorIs(t, err, order.ErrOrderNotFound)

	list, total, err := repo.ListByUserID(s.ctx, 9, nil, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, list, 2)
	assert.Equal(t, created[2].ID, list[0].ID, "按创建时间倒序，第二页")
	assert.Equal(t, created[1].ID, list[1].ID)
	assert.Len(t, list[0].Items, 1, "列表也带明细")

	err = s.txm.Transaction(s.ctx, func(ctx context.Context) error {
		o, err := repo.FindByIDForUpdate(ctx, created[3].ID)
		if err != nil {
			return err
		}
		if err := o.Cancel("不想要了", time.Now()); err != nil {
			return err
		}
		return repo.Update(ctx, o)
	})
	require.NoError(t, err)

	cancelled := order.StatusCancelled
	list, total, err = repo.ListByUserID(s.ctx, 9, &cancelled, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, "不想要了", list[0].CancelReason)
	assert.NotNil(t, list[0].CancelledAt)
}

func (s *MySQLSuite) TestOrderRepository_RevenueAndStatusCounts() {
	t := s.T()
	repo := NewOrderRepository(s.db)
	day := time.Now().Truncate(24 * time.Hour).Add(-48 * time.Hour)

	complete := func(no string, price int64, at time.Time) {
		o := s.createOrder(no, 9, price, at.Add(-time.Hour))
		require.NoError(t, o.Pay(at))
		require.NoError(t, o.Ship("", at))
		require.NoError(t, o.Complete(at))
		require.NoError(t, repo.Update(s.ctx, o))
	}
	complete("ORD-20240101-000001", 1_500_000_000, day.Add(2*time.Hour))
	complete("ORD-20240101-000002", 2500, day.Add(23*time.Hour))
	complete("ORD-20240101-000003", 7000, day.Add(24*time.Hour))
	s.createOrder("ORD-20240101-000004", 9, 9900, day.Add(time.Hour))

	revenue, err := repo.SumRevenue(s.ctx, day, day.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2*1_500_000_000+2*2500), revenue, "超过int32范围也不溢出，[from, to)不含to")

	revenue, err = repo.SumRevenue(s.ctx, day.Add(-72*time.Hour), day)
	require.NoError(t, err)
	assert.Zero(t, revenue, "没有数据时为0")

	counts, err := repo.CountByStatus(s.ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[order.StatusCompleted])
	assert.Equal(t, int64(1), counts[order.StatusPending])

	from := day.Add(23 * time.Hour)
	counts, err = repo.CountByStatus(s.ctx, &from, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[order.StatusCompleted], "按下单时间过滤")
}

func (s *MySQLSuite) TestLedgerRepository_FilterAndOrder() {
	t := s.T()
	repo := NewLedgerRepository(s.db)
	base := time.Now().Truncate(time.Second).Add(-time.Hour)
	ref := "PO-1"

	entries := []struct {
		bookID uint
		typ    ledger.TransactionType
		change int
	}{
		{1, ledger.TypeInbound, 10},
		{1, ledger.TypeOutbound, -2},
		{1, ledger.TypeAdjustment, -1},
		{2, ledger.TypeInbound, 5},
	}
	for i, e := range entries {
		tx, err := ledger.NewTransaction(1, e.bookID, e.typ, e.change, &ref, "")
		require.NoError(t, err)
		tx.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Append(s.ctx, tx))
		assert.NotZero(t, tx.ID)
	}

	bookID := uint(1)
	list, total, err := repo.List(s.ctx, ledger.Filter{BookID: &bookID, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, list, 2)
	assert.Equal(t, ledger.TypeAdjustment, list[0].Type, "最新的在前")
	assert.Equal(t, ledger.TypeOutbound, list[1].Type)
	require.NotNil(t, list[0].ReferenceID)
	assert.Equal(t, ref, *list[0].ReferenceID)

	inbound := ledger.TypeInbound
	from := base.Add(2 * time.Minute)
	list, total, err = repo.List(s.ctx, ledger.Filter{Type: &inbound, From: &from, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, uint(2), list[0].BookID)
}

func (s *MySQLSuite) TestCartRepository_Lifecycle() {
	t := s.T()
	repo := NewCartRepository(s.db)
	now := time.Now().Truncate(time.Second)

	c, err := repo.GetOrCreateActive(s.ctx, 9)
	require.NoError(t, err)
	require.NoError(t, c.AddItem(1, 2, 5900, now))
	require.NoError(t, c.AddItem(2, 1, 9900, now))
	require.NoError(t, repo.SaveItems(s.ctx, c))

	again, err := repo.GetOrCreateActive(s.ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID, "每个用户只有一个活动购物车")
	require.Len(t, again.Items, 2)
	assert.Equal(t, int64(2*5900+9900), again.TotalAmount())

	require.NoError(t, again.RemoveItem(2, now))
	require.NoError(t, repo.SaveItems(s.ctx, again))
	loaded, err := repo.FindActiveByUser(s.ctx, 9)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)

	require.NoError(t, repo.Deactivate(s.ctx, c.ID))
	assert.ErrorIs(t, repo.Deactivate(s.ctx, c.ID), cart.ErrCartCheckedOut)

	_, err = repo.FindActiveByUser(s.ctx, 9)
	assert.ErrorIs(t, err, cart.ErrCartNotFound)

	fresh, err := repo.GetOrCreateActive(s.ctx, 9)
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, fresh.ID)
}

func (s *MySQLSuite) TestBookRepository_SkipsSoftDeleted() {
	t := s.T()
	require.NoError(t, s.db.Create(&[]BookModel{
		{ID: 1, ISBN: "9787111544357", Title: "Go程序设计语言", Author: "Donovan", Price: 5900},
		{ID: 2, ISBN: "9787115381378", Title: "下架图书", Author: "佚名", Price: 100},
	}).Error)
	require.NoError(t, s.db.Delete(&BookModel{}, 2).Error)

	repo := NewBookRepository(s.db)
	books, err := repo.FindByIDs(s.ctx, []uint{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, int64(5900), books[1].Price)

	_, err = repo.FindByID(s.ctx, 2)
	assert.ErrorIs(t, err, book.ErrBookNotFound)
}

func (s *MySQLSuite) TestTxManager_RollbackAndAfterCommit() {
	t := s.T()
	repo := NewStockRepository(s.db)
	boom := errors.New("boom")

	hookRan := false
	err := s.txm.Transaction(s.ctx, func(ctx context.Context) error {
		if _, err := repo.LockOrCreate(ctx, 5, 1); err != nil {
			return err
		}
		s.txm.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, hookRan, "回滚时丢弃提交后回调")
	_, err = repo.FindByKey(s.ctx, 5, 1)
	assert.ErrorIs(t, err, stock.ErrStockItemNotFound, "回滚后没有残留行")

	err = s.txm.Transaction(s.ctx, func(ctx context.Context) error {
		// 嵌套调用加入外层事务
		return s.txm.Transaction(ctx, func(ctx context.Context) error {
			if _, err := repo.LockOrCreate(ctx, 5, 1); err != nil {
				return err
			}
			s.txm.AfterCommit(ctx, func(context.Context) { hookRan = true })
			return nil
		})
	})
	require.NoError(t, err)
	assert.True(t, hookRan)
	_, err = repo.FindByKey(s.ctx, 5, 1)
	assert.NoError(t, err)
}

// 下单预留 → 支付出库，全部走真实SQL
func (s *MySQLSuite) TestOrderFlowAgainstDatabase() {
	t := s.T()
	require.NoError(t, s.db.Create(&BookModel{ID: 1, ISBN: "9787111544357", Title: "Go程序设计语言", Author: "Donovan", Price: 5900}).Error)
	s.putStock(1, 1, 5)

	inventory := s.inventoryService()
	orders := apporder.NewService(
		NewOrderRepository(s.db), NewBookRepository(s.db), NewCartRepository(s.db),
		inventory, s.txm, nil,
		apporder.Config{DefaultWarehouseID: 1, ReservationTTL: 30 * time.Minute, OrderNoRetries: 3, CheckoutTimeout: 5 * time.Second},
		zap.NewNop(),
	)

	o, err := orders.CreateOrder(s.ctx, apporder.CreateOrderRequest{
		UserID:  9,
		Items:   []apporder.CreateOrderItem{{BookID: 1, Quantity: 3}},
		Address: testAddress,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3*5900), o.FinalAmount)

	_, err = orders.CreateOrder(s.ctx, apporder.CreateOrderRequest{
		UserID:  10,
		Items:   []apporder.CreateOrderItem{{BookID: 1, Quantity: 3}},
		Address: testAddress,
	})
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)

	var orderRows int64
	require.NoError(t, s.db.Model(&OrderModel{}).Count(&orderRows).Error)
	assert.Equal(t, int64(1), orderRows, "预留失败时订单一起回滚")

	paid, err := orders.PayOrder(s.ctx, o.ID, apporder.SystemUser)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPaid, paid.Status)

	item, err := NewStockRepository(s.db).FindByKey(s.ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, item.QuantityOnHand)
	assert.Equal(t, 0, item.ReservedQuantity)
	assert.Equal(t, 3, item.SoldQuantity)

	outbound := ledger.TypeOutbound
	list, _, err := NewLedgerRepository(s.db).List(s.ctx, ledger.Filter{Type: &outbound, Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, -3, list[0].QuantityChange)
	require.NotNil(t, list[0].ReferenceID)
	assert.Equal(t, o.OrderNo, *list[0].ReferenceID)
}
