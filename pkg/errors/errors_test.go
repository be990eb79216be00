package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_WithfKeepsIdentity(t *testing.T) {
	sentinel := New(ErrCodeInsufficientStock, "库存不足")

	err := sentinel.Withf("图书%d 仓库%d", 7, 2)

	assert.True(t, errors.Is(err, sentinel), "带上下文的错误应匹配原哨兵错误")
	assert.Equal(t, "库存不足: 图书7 仓库2", err.Message)
	assert.Equal(t, "库存不足", sentinel.Message, "哨兵错误本身不能被修改")
}

func TestAppError_IsThroughWrapping(t *testing.T) {
	sentinel := New(ErrCodeOrderNotFound, "订单不存在")
	wrapped := fmt.Errorf("加载订单: %w", sentinel.Withf("订单%d", 42))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.False(t, errors.Is(wrapped, ErrConcurrencyConflict))
}

func TestGetAppError(t *testing.T) {
	t.Run("AppError原样返回", func(t *testing.T) {
		appErr := GetAppError(ErrForbidden)
		assert.Equal(t, ErrCodeForbidden, appErr.Code)
	})

	t.Run("普通错误包装为内部错误", func(t *testing.T) {
		cause := errors.New("connection refused")
		appErr := GetAppError(cause)
		require.NotNil(t, appErr)
		assert.Equal(t, ErrCodeInternal, appErr.Code)
		assert.ErrorIs(t, appErr, cause)
	})
}

func TestClassifiers(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		validation bool
		notFound   bool
		domain     bool
		transient  bool
	}{
		{"参数错误", New(ErrCodeSignMismatch, "x"), true, false, false, false},
		{"不存在", New(ErrCodeStockItemNotFound, "x"), false, true, false, false},
		{"状态错误", New(ErrCodeInvalidOrderStatus, "x"), false, false, true, false},
		{"并发冲突", ErrConcurrencyConflict, false, false, false, true},
		{"普通错误", errors.New("boom"), false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.validation, IsValidation(tt.err))
			assert.Equal(t, tt.notFound, IsNotFound(tt.err))
			assert.Equal(t, tt.domain, IsDomainState(tt.err))
			assert.Equal(t, tt.transient, IsTransient(tt.err))
		})
	}
}
