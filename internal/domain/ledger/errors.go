package ledger

import (
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

var (
	// ErrInvalidTransactionType 流水类型只能是INBOUND、OUTBOUND、ADJUSTMENT
	ErrInvalidTransactionType = apperrors.New(apperrors.ErrCodeInvalidTransactionType, "流水类型非法，只支持INBOUND、OUTBOUND、ADJUSTMENT")

	// ErrSignMismatch 入库数量必须为正，出库数量必须为负
	ErrSignMismatch = apperrors.New(apperrors.ErrCodeSignMismatch, "流水数量符号与类型不符")

	// ErrZeroQuantity 变更数量不能为0
	ErrZeroQuantity = apperrors.New(apperrors.ErrCodeZeroLedgerChange, "流水变更数量不能为0")
)
