package book

import (
	apperrors "github.com/xiebiao/bookstore-order/pkg/errors"
)

var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "图书不存在")

	// ErrNotPurchasable 图书未定价，暂不可购买
	ErrNotPurchasable = apperrors.New(apperrors.ErrCodeBookNotPurchasable, "图书暂不可购买")
)
