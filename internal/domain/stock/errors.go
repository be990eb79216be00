package stock

import (
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// 库存领域错误定义
// 返回时通过Withf附加图书、仓库和当前计数，方便调用方直接定位问题
var (
	// ErrStockItemNotFound 库存记录不存在
	ErrStockItemNotFound = apperrors.New(apperrors.ErrCodeStockItemNotFound, "库存记录不存在")

	// ErrInvalidQuantity 数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidQuantity, "数量必须大于0")

	// ErrInvalidDelta 调整数量不能为0
	ErrInvalidDelta = apperrors.New(apperrors.ErrCodeInvalidDelta, "调整数量不能为0")

	// ErrInsufficientStock 可用库存不足（在库-已预留）
	ErrInsufficientStock = apperrors.New(apperrors.ErrCodeInsufficientStock, "可用库存不足")

	// ErrInsufficientOnHand 在库数量不足
	ErrInsufficientOnHand = apperrors.New(apperrors.ErrCodeInsufficientOnHand, "在库数量不足")

	// ErrAdjustBelowReserved 调整后在库数量低于已预留数量
	ErrAdjustBelowReserved = apperrors.New(apperrors.ErrCodeAdjustBelowReserved, "调整后在库数量低于已预留数量")

	// ErrInvalidAdjustOperation 调整操作只能是add、subtract、set
	ErrInvalidAdjustOperation = apperrors.New(apperrors.ErrCodeInvalidAdjustOperation, "调整操作非法，只支持add、subtract、set")

	// ErrUnknownOperation 未知的库存操作
	ErrUnknownOperation = apperrors.New(apperrors.ErrCodeUnknownStockOperation, "未知的库存操作")
)
