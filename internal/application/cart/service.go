package cart

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/book"
	"github.com/xiebiao/bookstore-order/internal/domain/cart"
	"github.com/xiebiao/bookstore-order/pkg/logger"
)

// Service 购物车应用服务
// 加购时冻结当前售价，结算由订单服务完成
type Service struct {
	cartRepo cart.Repository
	bookRepo book.Repository
	logger   *zap.Logger
	now      func() time.Time
}

// NewService 创建购物车服务
func NewService(cartRepo cart.Repository, bookRepo book.Repository, log *zap.Logger) *Service {
	return &Service{
		cartRepo: cartRepo,
		bookRepo: bookRepo,
		logger:   log,
		now:      time.Now,
	}
}

// Get 用户的活动购物车，没有时返回空购物车（不落库）
func (s *Service) Get(ctx context.Context, userID uint) (*cart.Cart, error) {
	c, err := s.cartRepo.FindActiveByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, cart.ErrCartNotFound) {
		return cart.New(userID), nil
	}
	return nil, err
}

// AddItem 加购，单价取图书当前售价并冻结
func (s *Service) AddItem(ctx context.Context, userID, bookID uint, qty int) (*cart.Cart, error) {
	if qty <= 0 {
		return nil, cart.ErrInvalidQuantity.Withf("图书%d 数量%d", bookID, qty)
	}

	b, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !b.IsPurchasable() {
		return nil, book.ErrNotPurchasable.Withf("《%s》", b.Title)
	}

	c, err := s.cartRepo.GetOrCreateActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.AddItem(bookID, qty, b.Price, s.now()); err != nil {
		return nil, err
	}
	if err := s.cartRepo.SaveItems(ctx, c); err != nil {
		return nil, err
	}

	logger.Debug(ctx, s.logger, "cart item added",
		zap.Uint("user_id", userID),
		zap.Uint("book_id", bookID),
		zap.Int("quantity", qty),
	)
	return c, nil
}

// RemoveItem 移除购物车中的一本书
func (s *Service) RemoveItem(ctx context.Context, userID, bookID uint) (*cart.Cart, error) {
	c, err := s.cartRepo.FindActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := c.RemoveItem(bookID, s.now()); err != nil {
		return nil, err
	}
	if err := s.cartRepo.SaveItems(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
