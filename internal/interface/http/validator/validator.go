// Package validator gin绑定用的自定义校验规则
package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/xiebiao/bookstore-order/internal/domain/ledger"
	"github.com/xiebiao/bookstore-order/internal/domain/stock"
)

// Register 在gin默认校验器上注册自定义tag
//   - ledger_type: INBOUND / OUTBOUND / ADJUSTMENT
//   - adjust_op:   add / subtract / set
func Register() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin校验器不是go-playground/validator")
	}
	return RegisterTo(v)
}

// RegisterTo 注册到指定校验器
func RegisterTo(v *validator.Validate) error {
	if err := v.RegisterValidation("ledger_type", func(fl validator.FieldLevel) bool {
		_, err := ledger.ParseTransactionType(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("注册ledger_type失败: %w", err)
	}
	if err := v.RegisterValidation("adjust_op", func(fl validator.FieldLevel) bool {
		_, err := stock.ParseAdjustOperation(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("注册adjust_op失败: %w", err)
	}
	return nil
}

// FormatError 把校验错误转换为可读的提示
func FormatError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s不能为空", field))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s不能小于%s", field, e.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s不能大于%s", field, e.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s必须大于%s", field, e.Param()))
		case "ledger_type":
			msgs = append(msgs, fmt.Sprintf("%s只支持INBOUND、OUTBOUND、ADJUSTMENT", field))
		case "adjust_op":
			msgs = append(msgs, fmt.Sprintf("%s只支持add、subtract、set", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s格式错误", field))
		}
	}
	return strings.Join(msgs, "; ")
}
