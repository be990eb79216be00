package mysql

import (
	"context"
	"errors"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

var deadlock = &gomysql.MySQLError{Number: errDeadlockDetected, Message: "Deadlock found when trying to get lock"}

func TestWithRetry_SucceedsAfterDeadlock(t *testing.T) {
	calls := 0
	var reasons []string
	err := withRetry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return deadlock
		}
		return nil
	}, func(attempt int, reason string, err error) {
		reasons = append(reasons, reason)
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []string{"deadlock", "deadlock"}, reasons)
}

func TestWithRetry_ExhaustedReturnsConcurrencyConflict(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 2, time.Millisecond, func() error {
		calls++
		return deadlock
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 3, calls, "首次执行 + 2次重试")
	assert.True(t, errors.Is(err, apperrors.ErrConcurrencyConflict))
	assert.True(t, apperrors.IsTransient(err))

	var mysqlErr *gomysql.MySQLError
	assert.True(t, errors.As(err, &mysqlErr), "保留原始驱动错误")
}

func TestWithRetry_NonRetryableReturnsImmediately(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), 5, time.Millisecond, func() error {
		calls++
		return apperrors.ErrInvalidParams
	}, nil)

	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidParams))
}

func TestWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := withRetry(ctx, 5, time.Hour, func() error { return deadlock }, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTxManager_AfterCommitOutsideTransactionRunsImmediately(t *testing.T) {
	m := &TxManager{logger: zap.NewNop()}

	ran := false
	m.AfterCommit(context.Background(), func(ctx context.Context) { ran = true })
	assert.True(t, ran)
}

func TestTxManager_NestedTransactionJoinsOuter(t *testing.T) {
	m := &TxManager{logger: zap.NewNop()}
	state := &txState{}
	ctx := context.WithValue(context.Background(), txKey{}, state)

	ran := false
	err := m.Transaction(ctx, func(inner context.Context) error {
		m.AfterCommit(inner, func(context.Context) { ran = true })
		return nil
	})

	require.NoError(t, err)
	assert.False(t, ran, "由最外层事务提交后执行")
	require.Len(t, state.hooks, 1)
}
