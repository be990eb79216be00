package mysql

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xiebiao/bookstore-order/internal/infrastructure/config"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
	"github.com/xiebiao/bookstore-order/pkg/logger"
	"github.com/xiebiao/bookstore-order/pkg/metrics"
)

type txKey struct{}

// txState 一次最外层事务尝试的状态
type txState struct {
	tx    *gorm.DB
	hooks []func(ctx context.Context)
}

// TxManager 事务管理器
//  1. 事务DB通过context传递，Repository用dbFrom取出
//  2. 嵌套调用直接加入外层事务（不开Savepoint），由最外层决定提交或回滚
//  3. 死锁(1213)/锁等待超时(1205)时整体重试最外层事务，fn必须可重入
//  4. AfterCommit登记的回调在最外层提交成功后执行，回滚或重试时丢弃
//
// 使用示例:
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    item, err := stockRepo.FindByKeyForUpdate(ctx, bookID, warehouseID)
//	    ...
//	    txManager.AfterCommit(ctx, func(ctx context.Context) { cache.Delete(ctx, key) })
//	    return stockRepo.Save(ctx, item)
//	})
type TxManager struct {
	db         *gorm.DB
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB, cfg *config.Config, log *zap.Logger) *TxManager {
	return &TxManager{
		db:         db,
		maxRetries: cfg.Database.TxMaxRetries,
		backoff:    cfg.Database.TxRetryBackoff,
		logger:     log,
	}
}

// Transaction 执行事务
// fn返回error时ROLLBACK，返回nil时COMMIT
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txState); ok {
		return fn(ctx)
	}

	var committed *txState
	err := withRetry(ctx, m.maxRetries, m.backoff, func() error {
		state := &txState{}
		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			state.tx = tx
			return fn(context.WithValue(ctx, txKey{}, state))
		})
		if err == nil {
			committed = state
		}
		return err
	}, func(attempt int, reason string, err error) {
		logger.Warn(ctx, m.logger, "transaction conflict, retrying",
			zap.Int("attempt", attempt),
			zap.String("reason", reason),
			zap.Error(err),
		)
	})
	if err != nil {
		return err
	}

	for _, hook := range committed.hooks {
		hook(ctx)
	}
	return nil
}

// AfterCommit 登记提交后回调；不在事务内时立即执行
func (m *TxManager) AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.hooks = append(state.hooks, fn)
		return
	}
	fn(ctx)
}

// withRetry 可重试错误最多重试maxRetries次，线性退避
// 重试耗尽返回ErrConcurrencyConflict（保留原始错误）
func withRetry(ctx context.Context, maxRetries int, backoff time.Duration, fn func() error, onRetry func(attempt int, reason string, err error)) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		reason, retryable := retryReason(err)
		if !retryable {
			return err
		}
		if attempt >= maxRetries {
			return &apperrors.AppError{
				Code:    apperrors.ErrConcurrencyConflict.Code,
				Message: apperrors.ErrConcurrencyConflict.Message,
				Err:     err,
			}
		}

		metrics.RecordTxRetry(reason)
		if onRetry != nil {
			onRetry(attempt+1, reason, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt+1)):
		}
	}
}

// dbFrom 优先使用ctx中的事务DB
func dbFrom(ctx context.Context, db *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return db.WithContext(ctx)
}
