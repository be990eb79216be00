package order

import (
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在（查询他人订单也返回此错误，不暴露订单是否存在）
	ErrOrderNotFound = apperrors.New(apperrors.ErrCodeOrderNotFound, "订单不存在")

	// ErrInvalidStatusTransition 当前状态不允许此操作
	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidOrderStatus, "订单状态不允许此操作")

	// ErrInvalidStatus 无法识别的订单状态
	ErrInvalidStatus = apperrors.New(apperrors.ErrCodeInvalidStatus, "订单状态非法")

	// ErrEmptyItems 订单明细不能为空
	ErrEmptyItems = apperrors.New(apperrors.ErrCodeEmptyOrderItems, "订单明细不能为空")

	// ErrInvalidQuantity 购买数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidQuantity, "购买数量必须大于0")

	// ErrInvalidPrice 单价不能为负
	ErrInvalidPrice = apperrors.New(apperrors.ErrCodeInvalidPrice, "单价不能为负数")

	// ErrInvalidAddress 收货地址不完整
	ErrInvalidAddress = apperrors.New(apperrors.ErrCodeInvalidAddress, "收货地址不完整")

	// ErrInvalidDiscount 优惠金额必须在0到订单总额之间
	ErrInvalidDiscount = apperrors.New(apperrors.ErrCodeInvalidDiscount, "优惠金额非法")

	// ErrDiscountNotAllowed 只有待支付订单可以调整优惠
	ErrDiscountNotAllowed = apperrors.New(apperrors.ErrCodeDiscountNotAllowed, "当前订单状态不允许调整优惠")

	// ErrDuplicateOrderNo 订单号冲突（唯一索引），由应用层重新生成后重试
	ErrDuplicateOrderNo = apperrors.New(apperrors.ErrCodeDuplicateEntry, "订单号重复")

	// ErrOrderNoExhausted 多次重新生成订单号仍冲突
	ErrOrderNoExhausted = apperrors.New(apperrors.ErrCodeOrderNoExhausted, "订单号生成失败，请稍后重试")
)
