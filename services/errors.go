package services

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound 发布、订单或购物车条目不存在
	ErrNotFound = errors.New("not found")

	// ErrForbidden 请求者不是订单的买家/卖家或条目的所有者
	ErrForbidden = errors.New("forbidden")

	// ErrInventoryConflict 库存已被并发修改，数量约束将被破坏
	ErrInventoryConflict = errors.New("inventory conflict")

	// ErrAlreadyDelivered 订单已发货，不能再退货或重复发货
	ErrAlreadyDelivered = errors.New("order already delivered")

	// ErrInvalidPayment 缺少收货地址或支付凭证
	ErrInvalidPayment = errors.New("invalid payment details")

	// ErrInvalidListing 发布数量或价格不合法
	ErrInvalidListing = errors.New("invalid listing")
)

// notFound 将gorm的未找到错误转换为ErrNotFound
func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &lookupError{what: what, err: ErrNotFound}
	}
	return err
}

type lookupError struct {
	what string
	err  error
}

func (e *lookupError) Error() string { return e.what + " " + e.err.Error() }

func (e *lookupError) Unwrap() error { return e.err }

// outcome 指标标签
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInventoryConflict):
		return "conflict"
	case errors.Is(err, ErrAlreadyDelivered):
		return "already_delivered"
	case errors.Is(err, ErrInvalidPayment), errors.Is(err, ErrInvalidListing):
		return "invalid"
	default:
		return "error"
	}
}
