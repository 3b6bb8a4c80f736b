package domain

import "errors"

// Protocol failure taxonomy. Every operation either commits all of its
// document effects or surfaces one of these and leaves the store untouched.
var (
	ErrOutOfStock        = errors.New("product out of stock")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrTableNotFound     = errors.New("table not found")
	ErrTableBusy         = errors.New("table is in use")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotOpen      = errors.New("order is not open")
	ErrItemNotFound      = errors.New("item not in order")
	ErrWaiterNotFound    = errors.New("waiter not found")
	ErrInvalidInput      = errors.New("invalid input")
)
