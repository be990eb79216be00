package order

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/application/inventory"
	"github.com/xiebiao/bookstore-order/internal/domain/book"
	"github.com/xiebiao/bookstore-order/internal/domain/cart"
	"github.com/xiebiao/bookstore-order/internal/domain/event"
	"github.com/xiebiao/bookstore-order/internal/domain/order"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/metrics"
)

const tracerName = "order"

// TxManager 事务边界，事务通过ctx传递
type TxManager interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
	AfterCommit(ctx context.Context, fn func(ctx context.Context))
}

// StockReserver 订单对库存的依赖
// 这些方法加入调用方事务，订单状态和库存在同一事务提交
type StockReserver interface {
	ReserveForOrder(ctx context.Context, orderID uint, lines []inventory.Line, expiresAt time.Time) error
	ReleaseForOrder(ctx context.Context, orderID uint) error
	ConfirmForOrder(ctx context.Context, orderID uint, referenceID string) error
	ListExpiredOrders(ctx context.Context, now time.Time, exclude []uint, limit int) ([]uint, error)
}

// Config 订单服务配置
type Config struct {
	DefaultWarehouseID uint          // 明细未指定仓库时使用
	ReservationTTL     time.Duration // 预留有效期（待支付时长）
	OrderNoRetries     int           // 订单号冲突时重新生成的次数
	CheckoutTimeout    time.Duration // 购物车结算saga超时
}

// Service 订单应用服务
// 订单状态流转和对应的库存变更（预留、确认、释放）在同一事务内完成；
// 事件在提交后发布，发布失败不影响已提交的结果。
type Service struct {
	orderRepo  order.Repository
	bookRepo   book.Repository
	cartRepo   cart.Repository
	stock      StockReserver
	tx         TxManager
	publisher  event.Publisher
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time
	genOrderNo order.OrderNoGenerator
}

// NewService 创建订单服务
func NewService(
	orderRepo order.Repository,
	bookRepo book.Repository,
	cartRepo cart.Repository,
	stock StockReserver,
	tx TxManager,
	publisher event.Publisher,
	cfg Config,
	log *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = event.NopPublisher{}
	}
	if cfg.OrderNoRetries <= 0 {
		cfg.OrderNoRetries = 3
	}
	if cfg.ReservationTTL <= 0 {
		cfg.ReservationTTL = 30 * time.Minute
	}
	return &Service{
		orderRepo:  orderRepo,
		bookRepo:   bookRepo,
		cartRepo:   cartRepo,
		stock:      stock,
		tx:         tx,
		publisher:  publisher,
		cfg:        cfg,
		logger:     log,
		now:        time.Now,
		genOrderNo: order.GenerateOrderNo,
	}
}

// WithClock 替换时钟（测试用）
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithOrderNoGenerator 替换订单号生成函数（测试用）
func (s *Service) WithOrderNoGenerator(gen order.OrderNoGenerator) *Service {
	s.genOrderNo = gen
	return s
}

// publishOrderEvent 提交后发布订单事件
func (s *Service) publishOrderEvent(ctx context.Context, t event.Type, o *order.Order) {
	payload := event.OrderPayload{
		OrderID:     o.ID,
		OrderNo:     o.OrderNo,
		UserID:      o.UserID,
		Status:      o.Status.Code(),
		FinalAmount: o.FinalAmount,
		Reason:      o.CancelReason,
	}
	s.tx.AfterCommit(ctx, func(ctx context.Context) {
		e := event.New(t, payload)
		if err := s.publisher.Publish(ctx, e); err != nil {
			logger.Warn(ctx, s.logger, "publish order event failed",
				zap.String("type", string(t)),
				zap.String("order_no", payload.OrderNo),
				zap.String("event_id", e.ID),
				zap.Error(err),
			)
		}
	})
}

func transitionLabel(s order.Status) string {
	return strings.ToLower(s.Code())
}

func recordTransition(to order.Status) {
	metrics.RecordOrderTransition(transitionLabel(to))
}
