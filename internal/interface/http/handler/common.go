package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/bookstore-order/internal/interface/http/validator"
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
	"github.com/xiebiao/bookstore-order/pkg/response"
)

// bindError 参数绑定/校验失败
func bindError(c *gin.Context, err error) {
	response.Error(c, apperrors.ErrBindError.Withf("%s", validator.FormatError(err)))
}

// pathID 解析路径中的正整数ID
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, apperrors.ErrInvalidParams.Withf("%s=%q", name, c.Param(name)))
		return 0, false
	}
	return uint(id), true
}

// parseTime 支持 2006-01-02（本地时区零点）和 RFC3339，空串返回nil
func parseTime(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, apperrors.ErrInvalidParams.Withf("%s=%q 时间格式应为2006-01-02或RFC3339", name, value)
	}
	return &t, nil
}

// parseRange 解析from/to
func parseRange(from, to string) (*time.Time, *time.Time, error) {
	f, err := parseTime("from", from)
	if err != nil {
		return nil, nil, err
	}
	t, err := parseTime("to", to)
	if err != nil {
		return nil, nil, err
	}
	return f, t, nil
}
