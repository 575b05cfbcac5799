package vending

import (
	"errors"
	"fmt"
)

// Business-rule failures. They are expected outcomes the buyer can correct,
// and never leave state changed.
var (
	ErrInsufficientCredit = errors.New("you do not have enough credit")
	ErrOutOfStock         = errors.New("product is out of stock")
)

// Faults. They point at bad input from upstream or a broken store.
var (
	ErrInvalidPrice        = errors.New("product price is negative")
	ErrSlotProductMismatch = errors.New("slot does not hold the requested product")
)

// OutOfStockError names the product that ran out. It matches ErrOutOfStock.
type OutOfStockError struct {
	Product string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("%s is out of stock.", e.Product)
}

func (e *OutOfStockError) Is(target error) bool {
	return target == ErrOutOfStock
}

// ErrorKind classifies an error from PlaceOrder for callers that report it
type ErrorKind string

const (
	KindInsufficientCredit ErrorKind = "insufficient_credit"
	KindOutOfStock         ErrorKind = "out_of_stock"
	KindInternal           ErrorKind = "internal"
)

// Classify maps err to its kind. Anything that is not a business-rule
// failure is KindInternal.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInsufficientCredit):
		return KindInsufficientCredit
	case errors.Is(err, ErrOutOfStock):
		return KindOutOfStock
	default:
		return KindInternal
	}
}

// IsBusinessError reports whether err is a buyer-correctable rejection
func IsBusinessError(err error) bool {
	return Classify(err) != KindInternal
}
