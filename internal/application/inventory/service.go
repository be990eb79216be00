package inventory

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/reservation"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/metrics"
	"github.com/xiebiao/bookstore-order/pkg/tracing"
)

const tracerName = "inventory"

// TxManager 事务边界
// 事务通过ctx传递；嵌套调用加入外层事务；AfterCommit在最外层提交后执行
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}

// Config 库存服务配置
type Config struct {
	LowStockThreshold int           // 在库 <= 阈值 视为低库存
	CacheTTL          time.Duration // 库存查询缓存时间

	// CacheRedeleteDelay 提交后延迟再删一次缓存，清掉提交前读到旧值的查询回写的数据；0表示不延迟删除
	CacheRedeleteDelay time.Duration
}

// Service 库存应用服务，库存的唯一写入口
//
// 每个写操作在一个事务内完成：
//  1. SELECT ... FOR UPDATE 锁定库存行
//  2. stock.Apply 计算新状态（纯函数）
//  3. 保存库存行
//  4. 在库数量有变化时追加流水
//
// 提交后失效缓存、发布低库存事件。
type Service struct {
	stockRepo       stock.Repository
	ledgerRepo      ledger.Repository
	reservationRepo reservation.Repository
	cache           stock.Cache
	tx              TxManager
	publisher       event.Publisher
	cfg             Config
	logger          *zap.Logger
	now             func() time.Time
}

// NewService 创建库存服务，cache可以为nil
func NewService(
	stockRepo stock.Repository,
	ledgerRepo ledger.Repository,
	reservationRepo reservation.Repository,
	cache stock.Cache,
	tx TxManager,
	publisher event.Publisher,
	cfg Config,
	log *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	return &Service{
		stockRepo:       stockRepo,
		ledgerRepo:      ledgerRepo,
		reservationRepo: reservationRepo,
		cache:           cache,
		tx:              tx,
		publisher:       publisher,
		cfg:             cfg,
		logger:          log,
		now:             time.Now,
	}
}

// WithClock 替换时钟（测试用）
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// change 一次库存变更的参数
type change struct {
	key         stock.Key
	mutation    stock.Mutation
	referenceID *string
	note        string
	create      bool // 不存在时创建（首次入库）

	// build 依赖当前计数的变更（如 set 调整），在加锁后计算
	build func(current stock.StockItem) (stock.Mutation, error)
}

// ledgerType 在库数量变化对应的流水类型
func ledgerType(op stock.Operation) ledger.TransactionType {
	switch op {
	case stock.OpIncrease:
		return ledger.TypeInbound
	case stock.OpDecrease, stock.OpConfirmSale:
		return ledger.TypeOutbound
	default:
		return ledger.TypeAdjustment
	}
}

// applyLocked 在当前事务内锁定并变更一行库存
// 调用方负责开启事务，多行变更时按stock.Key顺序调用
func (s *Service) applyLocked(ctx context.Context, c change) (before, after stock.StockItem, err error) {
	var current *stock.StockItem
	if c.create {
		current, err = s.stockRepo.LockOrCreate(ctx, c.key.BookID, c.key.WarehouseID)
	} else {
		current, err = s.stockRepo.FindByKeyForUpdate(ctx, c.key.BookID, c.key.WarehouseID)
	}
	if err != nil {
		return before, after, err
	}

	before = *current
	m := c.mutation
	if c.build != nil {
		if m, err = c.build(before); err != nil {
			return before, before, err
		}
	}
	after, err = stock.Apply(before, m)
	if err != nil {
		return before, before, err
	}
	after.UpdatedAt = s.now()

	if err := s.stockRepo.Save(ctx, &after); err != nil {
		return before, before, err
	}

	if delta := after.QuantityOnHand - before.QuantityOnHand; delta != 0 {
		entry, err := ledger.NewTransaction(c.key.WarehouseID, c.key.BookID, ledgerType(m.Op), delta, c.referenceID, c.note)
		if err != nil {
			return before, before, err
		}
		entry.CreatedAt = s.now()
		if err := s.ledgerRepo.Append(ctx, entry); err != nil {
			return before, before, err
		}
	}

	s.afterCommit(ctx, before, after)
	return before, after, nil
}

// afterCommit 提交后：失效缓存，首次跌入低库存区间时发布事件
func (s *Service) afterCommit(ctx context.Context, before, after stock.StockItem) {
	threshold := s.cfg.LowStockThreshold
	becameLow := after.IsLowStock(threshold) && !before.IsLowStock(threshold)

	s.tx.AfterCommit(ctx, func(ctx context.Context) {
		s.invalidate(ctx, stock.Key{BookID: after.BookID, WarehouseID: after.WarehouseID})
		if !becameLow {
			return
		}
		metrics.IncCounter(metrics.LowStockEventsTotal)
		s.publish(ctx, event.New(event.StockLow, event.StockLowPayload{
			BookID:         after.BookID,
			WarehouseID:    after.WarehouseID,
			QuantityOnHand: after.QuantityOnHand,
			Threshold:      threshold,
		}))
	})
}

// mutate 单行变更：独立事务（或加入调用方事务）
func (s *Service) mutate(ctx context.Context, c change) (*stock.StockItem, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "InventoryService."+string(c.mutation.Op))
	defer span.End()
	span.SetAttributes(
		attribute.Int("book_id", int(c.key.BookID)),
		attribute.Int("warehouse_id", int(c.key.WarehouseID)),
		attribute.Int("quantity", c.mutation.Quantity),
	)

	var result stock.StockItem
	err := s.tx.Transaction(ctx, func(ctx context.Context) error {
		_, after, err := s.applyLocked(ctx, c)
		result = after
		return err
	})
	metrics.RecordStockMutation(string(c.mutation.Op), err)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logger.Debug(ctx, s.logger, "stock mutated",
		zap.String("op", string(c.mutation.Op)),
		zap.Uint("book_id", c.key.BookID),
		zap.Uint("warehouse_id", c.key.WarehouseID),
		zap.Int("on_hand", result.QuantityOnHand),
		zap.Int("reserved", result.ReservedQuantity),
	)
	return &result, nil
}

// invalidate 延迟双删：提交后立即删除，CacheRedeleteDelay后再删一次
func (s *Service) invalidate(ctx context.Context, keys ...stock.Key) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	s.deleteCache(ctx, keys)

	if delay := s.cfg.CacheRedeleteDelay; delay > 0 {
		ctx := context.WithoutCancel(ctx)
		time.AfterFunc(delay, func() { s.deleteCache(ctx, keys) })
	}
}

func (s *Service) deleteCache(ctx context.Context, keys []stock.Key) {
	if err := s.cache.Delete(ctx, keys...); err != nil {
		// 缓存TTL兜底，失效失败只记录
		logger.Warn(ctx, s.logger, "stock cache invalidate failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, e event.Event) {
	if err := s.publisher.Publish(ctx, e); err != nil {
		logger.Warn(ctx, s.logger, "publish event failed",
			zap.String("type", string(e.Type)),
			zap.String("event_id", e.ID),
			zap.Error(err),
		)
	}
}

// sortedKeys 按加锁顺序排列
func sortedKeys[V any](m map[stock.Key]V) []stock.Key {
	keys := make([]stock.Key, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}
