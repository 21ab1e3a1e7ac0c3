package domain

import "errors"

var (
	ErrInvalidOrder      = errors.New("invalid purchase order")
	ErrOrderNotFound     = errors.New("purchase order not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDuplicateRequest  = errors.New("duplicate request")
	ErrDuplicateOrderID  = errors.New("duplicate order id")
	ErrInvalidSupplier   = errors.New("invalid supplier")
	ErrSupplierNotFound  = errors.New("supplier not found")
)
