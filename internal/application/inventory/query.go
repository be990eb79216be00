package inventory

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/metrics"
)

// StockList 库存分页结果
type StockList struct {
	List     []*stock.StockItem
	Total    int64
	Page     int
	PageSize int
}

// TransactionList 流水分页结果
type TransactionList struct {
	List     []*ledger.Transaction
	Total    int64
	Page     int
	PageSize int
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = ledger.DefaultPageSize
	}
	if pageSize > ledger.MaxPageSize {
		pageSize = ledger.MaxPageSize
	}
	return page, pageSize
}

// GetStock 查询库存，优先读缓存
// 缓存不可用时直接读库，只记录警告
func (s *Service) GetStock(ctx context.Context, bookID, warehouseID uint) (*stock.StockItem, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, bookID, warehouseID)
		switch {
		case err != nil:
			metrics.RecordStockCache("error")
			logger.Warn(ctx, s.logger, "stock cache get failed", zap.Error(err))
		case cached != nil:
			metrics.RecordStockCache("hit")
			return cached, nil
		default:
			metrics.RecordStockCache("miss")
		}
	}

	item, err := s.stockRepo.FindByKey(ctx, bookID, warehouseID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.cfg.CacheTTL > 0 {
		if err := s.cache.Set(ctx, item, s.cfg.CacheTTL); err != nil {
			logger.Warn(ctx, s.logger, "stock cache set failed", zap.Error(err))
		}
	}
	return item, nil
}

// ListLowStock 低库存列表，threshold<=0时使用配置的阈值
func (s *Service) ListLowStock(ctx context.Context, threshold, page, pageSize int) (*StockList, error) {
	if threshold <= 0 {
		threshold = s.cfg.LowStockThreshold
	}
	page, pageSize = normalizePage(page, pageSize)
	items, total, err := s.stockRepo.ListLowStock(ctx, threshold, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &StockList{List: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListOutOfStock 缺货列表
func (s *Service) ListOutOfStock(ctx context.Context, page, pageSize int) (*StockList, error) {
	page, pageSize = normalizePage(page, pageSize)
	items, total, err := s.stockRepo.ListOutOfStock(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}
	return &StockList{List: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// ListTransactions 按条件查询流水，最新的在前
func (s *Service) ListTransactions(ctx context.Context, filter ledger.Filter) (*TransactionList, error) {
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}
	items, total, err := s.ledgerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &TransactionList{List: items, Total: total, Page: filter.Page, PageSize: filter.PageSize}, nil
}

// CreateTransaction 手工记录一条流水（只校验并追加，不修改库存）
func (s *Service) CreateTransaction(ctx context.Context, warehouseID, bookID uint, typ ledger.TransactionType, quantityChange int, referenceID *string, note string) (*ledger.Transaction, error) {
	entry, err := ledger.NewTransaction(warehouseID, bookID, typ, quantityChange, referenceID, note)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = s.now()
	if err := s.ledgerRepo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
