// Package apptest 应用层测试用的内存仓储
//
// 所有仓储共享一个Store；Tx在最外层事务开始时对Store做快照，
// fn返回错误时恢复快照，用来验证"失败不产生部分修改"。
// 最外层事务之间互斥执行，相当于对所有行加了排他锁。
package apptest

import (
	"context"
	"sync"
	"time"

	"github.com/xiebiao/bookstore-order/internal/domain/book"
	"github.com/xiebiao/bookstore-order/internal/domain/cart"
	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/internal/domain/reservation"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
)

// Store 内存数据
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	data   data
	nextID uint

	// Fail 按操作名注入错误，如 Fail["order.Create"] = err
	Fail map[string]error
}

type data struct {
	books        map[uint]book.Book
	stocks       map[stock.Key]stock.StockItem
	ledger       []ledger.Transaction
	reservations map[uint]reservation.Reservation
	orders       map[uint]order.Order
	carts        map[uint]cart.Cart
}

// NewStore 创建空Store
func NewStore() *Store {
	return &Store{
		data: data{
			books:        map[uint]book.Book{},
			stocks:       map[stock.Key]stock.StockItem{},
			reservations: map[uint]reservation.Reservation{},
			orders:       map[uint]order.Order{},
			carts:        map[uint]cart.Cart{},
		},
		Fail: map[string]error{},
	}
}

func (s *Store) id() uint {
	s.nextID++
	return s.nextID
}

func (s *Store) fail(op string) error {
	return s.Fail[op]
}

func (d data) clone() data {
	c := data{
		books:        make(map[uint]book.Book, len(d.books)),
		stocks:       make(map[stock.Key]stock.StockItem, len(d.stocks)),
		ledger:       append([]ledger.Transaction(nil), d.ledger...),
		reservations: make(map[uint]reservation.Reservation, len(d.reservations)),
		orders:       make(map[uint]order.Order, len(d.orders)),
		carts:        make(map[uint]cart.Cart, len(d.carts)),
	}
	for k, v := range d.books {
		c.books[k] = v
	}
	for k, v := range d.stocks {
		c.stocks[k] = v
	}
	for k, v := range d.reservations {
		c.reservations[k] = v
	}
	for k, v := range d.orders {
		v.Items = append([]order.OrderItem(nil), v.Items...)
		c.orders[k] = v
	}
	for k, v := range d.carts {
		v.Items = append([]cart.Item(nil), v.Items...)
		c.carts[k] = v
	}
	return c
}

// PutBook 准备图书数据
func (s *Store) PutBook(b book.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.books[b.ID] = b
}

// PutStock 准备库存数据
func (s *Store) PutStock(item stock.StockItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == 0 {
		item.ID = s.id()
	}
	s.data.stocks[stock.Key{BookID: item.BookID, WarehouseID: item.WarehouseID}] = item
}

// Stock 读取库存（不存在返回零值和false）
func (s *Store) Stock(bookID, warehouseID uint) (stock.StockItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.data.stocks[stock.Key{BookID: bookID, WarehouseID: warehouseID}]
	return item, ok
}

// Ledger 全部流水
func (s *Store) Ledger() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Transaction(nil), s.data.ledger...)
}

// Reservations 某订单的全部预留
func (s *Store) Reservations(orderID uint) []reservation.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservation.Reservation
	for _, r := range s.data.reservations {
		if r.OrderID == orderID {
			out = append(out, r)
		}
	}
	return out
}

// Order 读取订单
func (s *Store) Order(id uint) (order.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.data.orders[id]
	return o, ok
}

// OrderCount 订单总数
func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.orders)
}

// PutOrder 直接写入订单（用于准备统计数据）
func (s *Store) PutOrder(o order.Order) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == 0 {
		o.ID = s.id()
	}
	s.data.orders[o.ID] = o
	return o.ID
}

// PutReservation 直接写入预留
func (s *Store) PutReservation(r reservation.Reservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.id()
	}
	s.data.reservations[r.ID] = r
}

// Cart 读取购物车
func (s *Store) Cart(id uint) (cart.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data.carts[id]
	return c, ok
}

// =========================================
// 事务
// =========================================

type txKey struct{}

type txState struct {
	hooks []func(context.Context)
}

// Tx 内存事务管理器
type Tx struct {
	store *Store
}

// NewTx 创建事务管理器
func NewTx(store *Store) *Tx {
	return &Tx{store: store}
}

// Transaction 最外层事务：互斥执行、失败回滚、成功后执行提交回调
// 嵌套调用加入外层事务
func (t *Tx) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	t.store.mu.Lock()
	snapshot := t.store.data.clone()
	nextID := t.store.nextID
	t.store.mu.Unlock()

	state := &txState{}
	err := fn(context.WithValue(ctx, txKey{}, state))
	if err != nil {
		t.store.mu.Lock()
		t.store.data = snapshot
		t.store.nextID = nextID
		t.store.mu.Unlock()
	}
	t.store.txMu.Unlock()

	if err != nil {
		return err
	}
	for _, hook := range state.hooks {
		hook(ctx)
	}
	return nil
}

// AfterCommit 在事务内登记提交后回调，不在事务内时立即执行
func (t *Tx) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.hooks = append(state.hooks, fn)
		return
	}
	fn(ctx)
}

// InTx ctx是否处于事务中
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// Clock 可控时钟
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock 从指定时间开始
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now 当前时间
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance 拨快时钟
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
