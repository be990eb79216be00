package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/application/apptest"
	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/reservation"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

type fixture struct {
	store     *apptest.Store
	cache     *apptest.Cache
	publisher *apptest.Publisher
	clock     *apptest.Clock
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := apptest.NewStore()
	f := &fixture{
		store:     store,
		cache:     apptest.NewCache(),
		publisher: &apptest.Publisher{},
		clock:     apptest.NewClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.svc = NewService(
		apptest.NewStockRepo(store),
		apptest.NewLedgerRepo(store),
		apptest.NewReservationRepo(store),
		f.cache,
		apptest.NewTx(store),
		f.publisher,
		Config{LowStockThreshold: 5, CacheTTL: time.Minute},
		zap.NewNop(),
	).WithClock(f.clock.Now)
	return f
}

func (f *fixture) put(bookID, warehouseID uint, onHand, reserved int) {
	f.store.PutStock(stock.StockItem{
		BookID:           bookID,
		WarehouseID:      warehouseID,
		QuantityOnHand:   onHand,
		ReservedQuantity: reserved,
	})
}

func (f *fixture) stock(t *testing.T, bookID, warehouseID uint) stock.StockItem {
	t.Helper()
	item, ok := f.store.Stock(bookID, warehouseID)
	require.True(t, ok)
	return item
}

// 在库10：预留3 → 可用7；确认销售3 → 在库7 已预留0 销量3，记一条-3的出库流水
func TestReserveThenConfirm(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 10, 0)

	item, err := f.svc.ReserveStock(ctx, 1, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 7, item.Available())
	assert.Empty(t, f.store.Ledger(), "预留不产生流水")

	item, err = f.svc.ConfirmSale(ctx, 1, 1, 3, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, 7, item.QuantityOnHand)
	assert.Equal(t, 0, item.ReservedQuantity)
	assert.Equal(t, 3, item.SoldQuantity)

	entries := f.store.Ledger()
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.TypeOutbound, entries[0].Type)
	assert.Equal(t, -3, entries[0].QuantityChange)
	require.NotNil(t, entries[0].ReferenceID)
	assert.Equal(t, "ORD-1", *entries[0].ReferenceID)
}

func TestReserveStock_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 10, 8)

	_, err := f.svc.ReserveStock(ctx, 1, 1, 3)
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)
	assert.True(t, apperrors.IsDomainState(err))
	assert.Equal(t, 8, f.stock(t, 1, 1).ReservedQuantity, "失败不修改库存")

	_, err = f.svc.ReserveStock(ctx, 2, 1, 1)
	assert.ErrorIs(t, err, stock.ErrStockItemNotFound)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.ReserveStock(ctx, 1, 1, 0)
	assert.True(t, apperrors.IsValidation(err))
}

func TestReleaseReserved_ClampsAtZero(t *testing.T) {
	f := newFixture(t)
	f.put(1, 1, 10, 2)

	item, err := f.svc.ReleaseReserved(context.Background(), 1, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 0, item.ReservedQuantity)
	assert.Equal(t, 10, item.QuantityOnHand)
	assert.Empty(t, f.store.Ledger())
}

func TestReceiveStock_CreatesOnFirstReceipt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.svc.ReceiveStock(ctx, 7, 2, 50, "PO-1", "首批到货")
	require.NoError(t, err)
	assert.Equal(t, 50, item.QuantityOnHand)
	assert.NotZero(t, item.ID)

	item, err = f.svc.ReceiveStock(ctx, 7, 2, 10, "", "")
	require.NoError(t, err)
	assert.Equal(t, 60, item.QuantityOnHand)

	entries := f.store.Ledger()
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.TypeInbound, entries[0].Type)
	assert.Equal(t, 50, entries[0].QuantityChange)
	assert.Equal(t, "PO-1", *entries[0].ReferenceID)
	assert.Nil(t, entries[1].ReferenceID)

	_, err = f.svc.ReceiveStock(ctx, 7, 2, 0, "", "")
	assert.ErrorIs(t, err, stock.ErrInvalidQuantity)
}

func TestAdjustStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 20, 5)

	item, err := f.svc.AdjustStock(ctx, 1, 1, "subtract", 3, "盘亏")
	require.NoError(t, err)
	assert.Equal(t, 17, item.QuantityOnHand)
	assert.Equal(t, 0, item.SoldQuantity, "调整不计入销量")

	item, err = f.svc.AdjustStock(ctx, 1, 1, "SET", 30, "盘点")
	require.NoError(t, err)
	assert.Equal(t, 30, item.QuantityOnHand)

	item, err = f.svc.AdjustStock(ctx, 1, 1, "add", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 32, item.QuantityOnHand)

	entries := f.store.Ledger()
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Equal(t, ledger.TypeAdjustment, e.Type)
	}
	assert.Equal(t, []int{-3, 13, 2}, []int{entries[0].QuantityChange, entries[1].QuantityChange, entries[2].QuantityChange})

	_, err = f.svc.AdjustStock(ctx, 1, 1, "set", 4, "")
	assert.ErrorIs(t, err, stock.ErrAdjustBelowReserved)

	_, err = f.svc.AdjustStock(ctx, 1, 1, "set", 32, "")
	assert.ErrorIs(t, err, stock.ErrInvalidDelta)

	_, err = f.svc.AdjustStock(ctx, 1, 1, "multiply", 2, "")
	assert.ErrorIs(t, err, stock.ErrInvalidAdjustOperation)
	assert.True(t, apperrors.IsValidation(err))

	assert.Len(t, f.store.Ledger(), 3, "失败的调整不记流水")
	assert.Equal(t, 32, f.stock(t, 1, 1).QuantityOnHand)
}

// 流水写入失败时库存变更一起回滚
func TestMutation_RollsBackWhenLedgerFails(t *testing.T) {
	f := newFixture(t)
	f.put(1, 1, 10, 3)
	f.store.Fail["ledger.Append"] = apperrors.ErrDatabaseError

	_, err := f.svc.ConfirmSale(context.Background(), 1, 1, 3, "ORD-1")
	require.Error(t, err)

	item := f.stock(t, 1, 1)
	assert.Equal(t, 10, item.QuantityOnHand)
	assert.Equal(t, 3, item.ReservedQuantity)
	assert.Equal(t, 0, item.SoldQuantity)
	assert.Empty(t, f.cache.Deleted, "未提交不失效缓存")
}

// 只有跌入低库存区间的那一次发布事件
func TestLowStockEvent_PublishedOnCrossing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 8, 0)

	_, err := f.svc.AdjustStock(ctx, 1, 1, "subtract", 2, "")
	require.NoError(t, err)
	assert.Empty(t, f.publisher.Types())

	_, err = f.svc.AdjustStock(ctx, 1, 1, "subtract", 2, "")
	require.NoError(t, err)
	_, err = f.svc.AdjustStock(ctx, 1, 1, "subtract", 1, "")
	require.NoError(t, err)

	events := f.publisher.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.StockLow, events[0].Type)
	payload := events[0].Payload.(event.StockLowPayload)
	assert.Equal(t, 4, payload.QuantityOnHand)
	assert.Equal(t, 5, payload.Threshold)
}

func TestLowStockEvent_PublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture(t)
	f.put(1, 1, 6, 0)
	f.publisher.Err = errors.New("broker down")

	item, err := f.svc.AdjustStock(context.Background(), 1, 1, "subtract", 2, "")
	require.NoError(t, err)
	assert.Equal(t, 4, item.QuantityOnHand)
	assert.Equal(t, 4, f.stock(t, 1, 1).QuantityOnHand)
}

func TestGetStock_ReadThroughAndInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 10, 0)

	item, err := f.svc.GetStock(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, item.QuantityOnHand)

	cached, _ := f.cache.Get(ctx, 1, 1)
	require.NotNil(t, cached)

	_, err = f.svc.ReserveStock(ctx, 1, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []stock.Key{{BookID: 1, WarehouseID: 1}}, f.cache.Deleted)

	item, err = f.svc.GetStock(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, item.ReservedQuantity, "失效后重新读库")

	_, err = f.svc.GetStock(ctx, 9, 9)
	assert.ErrorIs(t, err, stock.ErrStockItemNotFound)
}

// 查询在提交前读到旧值、提交后才回写缓存：延迟的第二次删除把旧值清掉
func TestGetStock_StaleWriteBackClearedByRedelete(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.CacheRedeleteDelay = 20 * time.Millisecond
	ctx := context.Background()
	f.put(1, 1, 10, 0)

	stale, err := f.svc.stockRepo.FindByKey(ctx, 1, 1)
	require.NoError(t, err)

	_, err = f.svc.ReserveStock(ctx, 1, 1, 4)
	require.NoError(t, err)

	require.NoError(t, f.cache.Set(ctx, stale, time.Minute))
	cached, _ := f.cache.Get(ctx, 1, 1)
	require.NotNil(t, cached)
	assert.Equal(t, 0, cached.ReservedQuantity, "旧值已被回写")

	assert.Eventually(t, func() bool {
		cached, _ := f.cache.Get(ctx, 1, 1)
		return cached == nil
	}, time.Second, 5*time.Millisecond)

	item, err := f.svc.GetStock(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, item.ReservedQuantity)
}

func TestReserveForOrder_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 10, 0)
	f.put(2, 1, 1, 0)
	expires := f.clock.Now().Add(30 * time.Minute)

	err := f.svc.ReserveForOrder(ctx, 100, []Line{
		{BookID: 1, WarehouseID: 1, Quantity: 2},
		{BookID: 2, WarehouseID: 1, Quantity: 2},
	}, expires)
	assert.ErrorIs(t, err, stock.ErrInsufficientStock)
	assert.Equal(t, 0, f.stock(t, 1, 1).ReservedQuantity, "第一行的预留随事务回滚")
	assert.Empty(t, f.store.Reservations(100))

	// 同一库存行的两行需求合并预留
	err = f.svc.ReserveForOrder(ctx, 100, []Line{
		{BookID: 1, WarehouseID: 1, Quantity: 2},
		{BookID: 1, WarehouseID: 1, Quantity: 3},
		{BookID: 2, WarehouseID: 1, Quantity: 1},
	}, expires)
	require.NoError(t, err)
	assert.Equal(t, 5, f.stock(t, 1, 1).ReservedQuantity)
	assert.Equal(t, 1, f.stock(t, 2, 1).ReservedQuantity)

	rows := f.store.Reservations(100)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, reservation.StatusActive, r.Status)
		assert.Equal(t, expires, r.ExpiresAt)
	}
}

func TestConfirmForOrder_OnlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 10, 0)
	f.put(2, 3, 10, 0)

	require.NoError(t, f.svc.ReserveForOrder(ctx, 100, []Line{
		{BookID: 2, WarehouseID: 3, Quantity: 4},
		{BookID: 1, WarehouseID: 1, Quantity: 2},
	}, f.clock.Now().Add(time.Hour)))

	require.NoError(t, f.svc.ConfirmForOrder(ctx, 100, "ORD-100"))
	a, b := f.stock(t, 1, 1), f.stock(t, 2, 3)
	assert.Equal(t, [3]int{8, 0, 2}, [3]int{a.QuantityOnHand, a.ReservedQuantity, a.SoldQuantity})
	assert.Equal(t, [3]int{6, 0, 4}, [3]int{b.QuantityOnHand, b.ReservedQuantity, b.SoldQuantity})
	assert.Len(t, f.store.Ledger(), 2)

	for _, r := range f.store.Reservations(100) {
		assert.Equal(t, reservation.StatusConfirmed, r.Status)
	}

	err := f.svc.ConfirmForOrder(ctx, 100, "ORD-100")
	assert.ErrorIs(t, err, reservation.ErrNotActive)
	assert.Equal(t, 8, f.stock(t, 1, 1).QuantityOnHand, "重复确认不再出库")

	assert.NoError(t, f.svc.ReleaseForOrder(ctx, 100), "已确认的预留不会被释放")
	assert.Equal(t, 0, f.stock(t, 1, 1).ReservedQuantity)
}

func TestReleaseForOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 10, 0)

	require.NoError(t, f.svc.ReserveForOrder(ctx, 100, []Line{{BookID: 1, WarehouseID: 1, Quantity: 6}}, f.clock.Now()))
	require.NoError(t, f.svc.ReleaseForOrder(ctx, 100))

	item := f.stock(t, 1, 1)
	assert.Equal(t, 0, item.ReservedQuantity)
	assert.Equal(t, 10, item.QuantityOnHand)
	assert.Equal(t, reservation.StatusReleased, f.store.Reservations(100)[0].Status)

	require.NoError(t, f.svc.ReleaseForOrder(ctx, 100), "重复释放什么都不做")
	assert.Equal(t, 0, f.stock(t, 1, 1).ReservedQuantity)

	assert.ErrorIs(t, f.svc.ConfirmForOrder(ctx, 100, "x"), reservation.ErrNotActive)
}

func TestListExpiredOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 10, 0)
	now := f.clock.Now()

	require.NoError(t, f.svc.ReserveForOrder(ctx, 1, []Line{{BookID: 1, WarehouseID: 1, Quantity: 1}}, now.Add(time.Minute)))
	require.NoError(t, f.svc.ReserveForOrder(ctx, 2, []Line{{BookID: 1, WarehouseID: 1, Quantity: 1}}, now.Add(time.Hour)))

	ids, err := f.svc.ListExpiredOrders(ctx, now.Add(2*time.Minute), nil, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, ids)

	ids, err = f.svc.ListExpiredOrders(ctx, now.Add(2*time.Hour), []uint{1}, 10)
	require.NoError(t, err)
	assert.Equal(t, []uint{2}, ids, "排除的订单不返回")
}

// 并发预留不超卖
func TestReserveStock_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	f.put(1, 1, 10, 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.ReserveStock(context.Background(), 1, 1, 1); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, success)
	assert.Equal(t, 10, f.stock(t, 1, 1).ReservedQuantity)
}

func TestListLowAndOutOfStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.put(1, 1, 0, 0)
	f.put(2, 1, 3, 0)
	f.put(3, 1, 5, 0)
	f.put(4, 1, 6, 0)

	low, err := f.svc.ListLowStock(ctx, 0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), low.Total, "阈值默认取配置，0不算低库存")
	assert.Equal(t, 1, low.Page)
	assert.Equal(t, ledger.DefaultPageSize, low.PageSize)

	low, err = f.svc.ListLowStock(ctx, 10, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(3), low.Total)
	assert.Equal(t, ledger.MaxPageSize, low.PageSize)

	out, err := f.svc.ListOutOfStock(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, out.List, 1)
	assert.Equal(t, uint(1), out.List[0].BookID)
}

func TestCreateAndListTransactions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateTransaction(ctx, 1, 1, ledger.TypeInbound, -5, nil, "")
	assert.ErrorIs(t, err, ledger.ErrSignMismatch)
	_, err = f.svc.CreateTransaction(ctx, 1, 1, ledger.TransactionType("LOST"), 5, nil, "")
	assert.ErrorIs(t, err, ledger.ErrInvalidTransactionType)
	assert.Empty(t, f.store.Ledger())

	ref := "CHK-1"
	entry, err := f.svc.CreateTransaction(ctx, 1, 1, ledger.TypeAdjustment, -2, &ref, "盘点")
	require.NoError(t, err)
	assert.NotZero(t, entry.ID)

	f.clock.Advance(time.Hour)
	_, err = f.svc.CreateTransaction(ctx, 2, 1, ledger.TypeInbound, 5, nil, "")
	require.NoError(t, err)

	list, err := f.svc.ListTransactions(ctx, ledger.Filter{})
	require.NoError(t, err)
	require.Len(t, list.List, 2)
	assert.Equal(t, uint(2), list.List[0].WarehouseID, "最新的在前")

	wh := uint(1)
	list, err = f.svc.ListTransactions(ctx, ledger.Filter{WarehouseID: &wh})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)

	from, to := f.clock.Now(), f.clock.Now().Add(-time.Hour)
	_, err = f.svc.ListTransactions(ctx, ledger.Filter{From: &from, To: &to})
	assert.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
}
