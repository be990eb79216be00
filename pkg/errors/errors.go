package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息，包含定位问题所需的上下文（图书、仓库、订单）
// 3. Err是内部错误，仅记录到日志，不返回给客户端
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 按错误码匹配
// 带上下文的错误（Withf）与原始哨兵错误视为同一种错误
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Withf 在哨兵错误的基础上追加上下文信息
//
//	return stock.ErrInsufficientStock.Withf("图书%d 仓库%d 可用%d 需要%d", bookID, warehouseID, available, qty)
func (e *AppError) Withf(format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    e.Code,
		Message: e.Message + ": " + fmt.Sprintf(format, args...),
		Err:     e.Err,
	}
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 400xx: 领域状态错误（状态机不允许、库存不足）
// - 401xx: 认证授权错误
// - 404xx: 资源不存在
// - 409xx: 参数校验错误（用户可修正的输入）
// - 500xx: 服务端错误
// - 503xx: 暂时性错误（并发冲突重试耗尽，可稍后重试）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误
	ErrCodeMQError       = 50003 // 消息队列错误

	// 暂时性错误（50300-50399）
	ErrCodeConcurrencyConflict = 50300 // 并发冲突（重试耗尽）

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized = 40100 // 未登录
	ErrCodeInvalidToken = 40101 // Token无效
	ErrCodeTokenExpired = 40102 // Token过期
	ErrCodeForbidden    = 40104 // 无权限

	// 资源错误（40400-40499）
	ErrCodeNotFound          = 40400 // 资源不存在(通用)
	ErrCodeBookNotFound      = 40402 // 图书不存在
	ErrCodeOrderNotFound     = 40403 // 订单不存在
	ErrCodeStockItemNotFound = 40404 // 库存记录不存在
	ErrCodeCartNotFound      = 40405 // 购物车不存在
	ErrCodeCartItemNotFound  = 40406 // 购物车中没有该图书

	// 领域状态错误（40000-40099）
	ErrCodeBusinessError           = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock       = 40001 // 库存不足
	ErrCodeInvalidOrderStatus      = 40002 // 订单状态非法
	ErrCodeAdjustBelowReserved     = 40003 // 调整后库存低于已预留数量
	ErrCodeCartEmpty               = 40004 // 购物车为空
	ErrCodeCartCheckedOut          = 40005 // 购物车已结算
	ErrCodeOrderNoExhausted        = 40006 // 订单号生成冲突次数过多
	ErrCodeInsufficientOnHand      = 40007 // 在库数量不足
	ErrCodeDiscountNotAllowed      = 40008 // 当前状态不允许调整优惠
	ErrCodeDuplicateEntry          = 40009 // 重复记录(通用)
	ErrCodeReservationNotActive    = 40010 // 预留已确认或已释放
	ErrCodeBookNotPurchasable      = 40011 // 图书暂不可购买

	// 参数错误（40900-40999）
	ErrCodeInvalidParams          = 40900 // 参数错误
	ErrCodeBindError              = 40901 // 参数绑定失败
	ErrCodeInvalidQuantity        = 40902 // 数量非法
	ErrCodeInvalidTransactionType = 40903 // 流水类型非法
	ErrCodeSignMismatch           = 40904 // 流水数量符号与类型不符
	ErrCodeInvalidAdjustOperation = 40905 // 调整操作非法
	ErrCodeEmptyOrderItems        = 40906 // 订单明细为空
	ErrCodeInvalidDiscount        = 40907 // 优惠金额非法
	ErrCodeInvalidDateRange       = 40908 // 时间范围非法
	ErrCodeInvalidStatus          = 40909 // 目标状态非法
	ErrCodeInvalidDelta           = 40910 // 调整数量为0
	ErrCodeZeroLedgerChange       = 40911 // 流水变更数量为0
	ErrCodeInvalidPrice           = 40912 // 单价非法
	ErrCodeInvalidAddress         = 40913 // 收货地址不完整
	ErrCodeUnknownStockOperation  = 40914 // 未知的库存操作
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")

	// 暂时性错误
	ErrConcurrencyConflict = New(ErrCodeConcurrencyConflict, "系统繁忙，并发冲突，请稍后重试")

	// 认证授权
	ErrUnauthorized = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired = New(ErrCodeTokenExpired, "Token已过期")
	ErrForbidden    = New(ErrCodeForbidden, "无权限访问")

	// 参数错误
	ErrInvalidParams    = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError        = New(ErrCodeBindError, "参数格式错误")
	ErrInvalidDateRange = New(ErrCodeInvalidDateRange, "时间范围非法，开始时间必须早于结束时间")
)

// =========================================
// 辅助函数
// =========================================

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// IsValidation 用户输入错误，不应重试
func IsValidation(err error) bool {
	return codeInRange(err, 40900, 40999)
}

// IsNotFound 资源不存在
func IsNotFound(err error) bool {
	return codeInRange(err, 40400, 40499)
}

// IsDomainState 资源存在但当前状态不允许该操作
func IsDomainState(err error) bool {
	return codeInRange(err, 40000, 40099)
}

// IsTransient 暂时性错误，调用方可以稍后重试
func IsTransient(err error) bool {
	return codeInRange(err, 50300, 50399)
}

func codeInRange(err error, low, high int) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code >= low && appErr.Code <= high
}
