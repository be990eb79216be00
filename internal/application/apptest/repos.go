package apptest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/xiebiao/bookstore-order/internal/domain/book"
	"github.com/xiebiao/bookstore-order/internal/domain/cart"
	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/internal/domain/reservation"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
)

func paginate[T any](items []T, page, pageSize int) []T {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// =========================================
// 图书
// =========================================

// BookRepo 内存图书仓储
type BookRepo struct{ s *Store }

func NewBookRepo(s *Store) *BookRepo { return &BookRepo{s: s} }

func (r *BookRepo) FindByID(_ context.Context, id uint) (*book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.data.books[id]
	if !ok {
		return nil, book.ErrBookNotFound.Withf("图书%d", id)
	}
	return &b, nil
}

func (r *BookRepo) FindByIDs(_ context.Context, ids []uint) (map[uint]*book.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make(map[uint]*book.Book, len(ids))
	for _, id := range ids {
		if b, ok := r.s.data.books[id]; ok {
			b := b
			out[id] = &b
		}
	}
	return out, nil
}

// =========================================
// 库存
// =========================================

// StockRepo 内存库存仓储
type StockRepo struct{ s *Store }

func NewStockRepo(s *Store) *StockRepo { return &StockRepo{s: s} }

func (r *StockRepo) FindByKey(_ context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.data.stocks[stock.Key{BookID: bookID, WarehouseID: warehouseID}]
	if !ok {
		return nil, stock.ErrStockItemNotFound.Withf("图书%d 仓库%d", bookID, warehouseID)
	}
	return &item, nil
}

func (r *StockRepo) FindByKeyForUpdate(ctx context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	if err := r.s.fail("stock.Lock"); err != nil {
		return nil, err
	}
	return r.FindByKey(ctx, bookID, warehouseID)
}

func (r *StockRepo) LockOrCreate(_ context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := stock.Key{BookID: bookID, WarehouseID: warehouseID}
	item, ok := r.s.data.stocks[key]
	if !ok {
		item = *stock.NewStockItem(bookID, warehouseID)
		item.ID = r.s.id()
		r.s.data.stocks[key] = item
	}
	return &item, nil
}

func (r *StockRepo) Save(_ context.Context, item *stock.StockItem) error {
	if err := r.s.fail("stock.Save"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.stocks[stock.Key{BookID: item.BookID, WarehouseID: item.WarehouseID}] = *item
	return nil
}

func (r *StockRepo) list(match func(stock.StockItem) bool, page, pageSize int) ([]*stock.StockItem, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []stock.StockItem
	for _, item := range r.s.data.stocks {
		if match(item) {
			all = append(all, item)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].QuantityOnHand != all[j].QuantityOnHand {
			return all[i].QuantityOnHand < all[j].QuantityOnHand
		}
		return all[i].ID < all[j].ID
	})
	var out []*stock.StockItem
	for _, item := range paginate(all, page, pageSize) {
		item := item
		out = append(out, &item)
	}
	return out, int64(len(all)), nil
}

func (r *StockRepo) ListLowStock(_ context.Context, threshold, page, pageSize int) ([]*stock.StockItem, int64, error) {
	return r.list(func(s stock.StockItem) bool { return s.IsLowStock(threshold) }, page, pageSize)
}

func (r *StockRepo) ListOutOfStock(_ context.Context, page, pageSize int) ([]*stock.StockItem, int64, error) {
	return r.list(func(s stock.StockItem) bool { return s.IsOutOfStock() }, page, pageSize)
}

// =========================================
// 流水
// =========================================

// LedgerRepo 内存流水仓储
type LedgerRepo struct{ s *Store }

func NewLedgerRepo(s *Store) *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) Append(_ context.Context, tx *ledger.Transaction) error {
	if err := r.s.fail("ledger.Append"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tx.ID = r.s.id()
	r.s.data.ledger = append(r.s.data.ledger, *tx)
	return nil
}

func (r *LedgerRepo) List(_ context.Context, f ledger.Filter) ([]*ledger.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []ledger.Transaction
	for _, tx := range r.s.data.ledger {
		switch {
		case f.WarehouseID != nil && tx.WarehouseID != *f.WarehouseID,
			f.BookID != nil && tx.BookID != *f.BookID,
			f.Type != nil && tx.Type != *f.Type,
			f.From != nil && tx.CreatedAt.Before(*f.From),
			f.To != nil && !tx.CreatedAt.Before(*f.To):
			continue
		}
		all = append(all, tx)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	var out []*ledger.Transaction
	for _, tx := range paginate(all, f.Page, f.PageSize) {
		tx := tx
		out = append(out, &tx)
	}
	return out, int64(len(all)), nil
}

// =========================================
// 预留
// =========================================

// ReservationRepo 内存预留仓储
type ReservationRepo struct{ s *Store }

func NewReservationRepo(s *Store) *ReservationRepo { return &ReservationRepo{s: s} }

func (r *ReservationRepo) CreateBatch(_ context.Context, items []*reservation.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range items {
		item.ID = r.s.id()
		r.s.data.reservations[item.ID] = *item
	}
	return nil
}

func (r *ReservationRepo) activeByOrder(orderID uint) []*reservation.Reservation {
	var out []*reservation.Reservation
	for _, item := range r.s.data.reservations {
		if item.OrderID != orderID || item.Status != reservation.StatusActive {
			continue
		}
		item := item
		out = append(out, &item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *ReservationRepo) ListActiveByOrderForUpdate(_ context.Context, orderID uint) ([]*reservation.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.activeByOrder(orderID), nil
}

func (r *ReservationRepo) UpdateStatus(_ context.Context, items []*reservation.Reservation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range items {
		r.s.data.reservations[item.ID] = *item
	}
	return nil
}

func (r *ReservationRepo) ListExpiredOrderIDs(_ context.Context, now time.Time, exclude []uint, limit int) ([]uint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := map[uint]bool{}
	for _, id := range exclude {
		seen[id] = true
	}
	var expired []reservation.Reservation
	for _, item := range r.s.data.reservations {
		if item.IsExpired(now) {
			expired = append(expired, item)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })

	var ids []uint
	for _, item := range expired {
		if seen[item.OrderID] {
			continue
		}
		seen[item.OrderID] = true
		ids = append(ids, item.OrderID)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

// =========================================
// 订单
// =========================================

// OrderRepo 内存订单仓储，订单号唯一
type OrderRepo struct{ s *Store }

func NewOrderRepo(s *Store) *OrderRepo { return &OrderRepo{s: s} }

func (r *OrderRepo) Create(_ context.Context, o *order.Order) error {
	if err := r.s.fail("order.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.data.orders {
		if existing.OrderNo == o.OrderNo {
			return order.ErrDuplicateOrderNo.Withf("%s", o.OrderNo)
		}
	}
	o.ID = r.s.id()
	for i := range o.Items {
		o.Items[i].ID = r.s.id()
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = append([]order.OrderItem(nil), o.Items...)
	r.s.data.orders[o.ID] = stored
	return nil
}

func (r *OrderRepo) FindByID(_ context.Context, id uint) (*order.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound.Withf("订单%d", id)
	}
	o.Items = append([]order.OrderItem(nil), o.Items...)
	return &o, nil
}

func (r *OrderRepo) FindByIDForUpdate(ctx context.Context, id uint) (*order.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *OrderRepo) Update(_ context.Context, o *order.Order) error {
	if err := r.s.fail("order.Update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *o
	stored.Items = append([]order.OrderItem(nil), o.Items...)
	r.s.data.orders[o.ID] = stored
	return nil
}

func (r *OrderRepo) ListByUserID(_ context.Context, userID uint, status *order.Status, page, pageSize int) ([]*order.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var all []order.Order
	for _, o := range r.s.data.orders {
		if o.UserID != userID || (status != nil && o.Status != *status) {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	var out []*order.Order
	for _, o := range paginate(all, page, pageSize) {
		o := o
		out = append(out, &o)
	}
	return out, int64(len(all)), nil
}

func (r *OrderRepo) SumRevenue(_ context.Context, from, to time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sum int64
	for _, o := range r.s.data.orders {
		if o.Status != order.StatusCompleted || o.CompletedAt == nil {
			continue
		}
		if o.CompletedAt.Before(from) || !o.CompletedAt.Before(to) {
			continue
		}
		sum += o.FinalAmount
	}
	return sum, nil
}

func (r *OrderRepo) CountByStatus(_ context.Context, from, to *time.Time) (map[order.Status]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[order.Status]int64{}
	for _, o := range r.s.data.orders {
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !o.CreatedAt.Before(*to) {
			continue
		}
		counts[o.Status]++
	}
	return counts, nil
}

// =========================================
// 购物车
// =========================================

// CartRepo 内存购物车仓储
type CartRepo struct{ s *Store }

func NewCartRepo(s *Store) *CartRepo { return &CartRepo{s: s} }

func (r *CartRepo) FindActiveByUser(_ context.Context, userID uint) (*cart.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.data.carts {
		if c.UserID == userID && c.Active {
			c.Items = append([]cart.Item(nil), c.Items...)
			return &c, nil
		}
	}
	return nil, cart.ErrCartNotFound.Withf("用户%d", userID)
}

func (r *CartRepo) GetOrCreateActive(ctx context.Context, userID uint) (*cart.Cart, error) {
	if c, err := r.FindActiveByUser(ctx, userID); err == nil {
		return c, nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := cart.New(userID)
	c.ID = r.s.id()
	r.s.data.carts[c.ID] = *c
	return c, nil
}

func (r *CartRepo) SaveItems(_ context.Context, c *cart.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range c.Items {
		c.Items[i].CartID = c.ID
		if c.Items[i].ID == 0 {
			c.Items[i].ID = r.s.id()
		}
	}
	stored := *c
	stored.Items = append([]cart.Item(nil), c.Items...)
	r.s.data.carts[c.ID] = stored
	return nil
}

func (r *CartRepo) Deactivate(_ context.Context, cartID uint) error {
	if err := r.s.fail("cart.Deactivate"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.carts[cartID]
	if !ok || !c.Active {
		return cart.ErrCartCheckedOut.Withf("购物车%d", cartID)
	}
	c.Active = false
	r.s.data.carts[cartID] = c
	return nil
}

// =========================================
// 事件与缓存
// =========================================

// Publisher 记录发布的事件
type Publisher struct {
	mu     sync.Mutex
	events []event.Event
	Err    error
}

func (p *Publisher) Publish(_ context.Context, e event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, e)
	return nil
}

// Types 按发布顺序返回事件类型
func (p *Publisher) Types() []event.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]event.Type, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// Events 已发布事件
func (p *Publisher) Events() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Event(nil), p.events...)
}

// Cache 内存库存缓存
type Cache struct {
	mu      sync.Mutex
	items   map[stock.Key]stock.StockItem
	Deleted []stock.Key
}

func NewCache() *Cache { return &Cache{items: map[stock.Key]stock.StockItem{}} }

func (c *Cache) Get(_ context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[stock.Key{BookID: bookID, WarehouseID: warehouseID}]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (c *Cache) Set(_ context.Context, item *stock.StockItem, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[stock.Key{BookID: item.BookID, WarehouseID: item.WarehouseID}] = *item
	return nil
}

func (c *Cache) Delete(_ context.Context, keys ...stock.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
		c.Deleted = append(c.Deleted, k)
	}
	return nil
}
