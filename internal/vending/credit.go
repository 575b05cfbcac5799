package vending

import (
	"fmt"

	"vending_machine/internal/domain"

	"github.com/shopspring/decimal"
)

// AuthorizeAndDebit returns user with price taken off its credit.
// It refuses, leaving user untouched, when the credit does not cover the
// price; the result therefore never goes below zero. Nothing is persisted.
func AuthorizeAndDebit(user domain.User, price decimal.Decimal) (domain.User, error) {
	if price.IsNegative() {
		return user, fmt.Errorf("%w: %s", ErrInvalidPrice, price.StringFixed(2))
	}
	if user.Credit.LessThan(price) {
		return user, ErrInsufficientCredit
	}
	user.Credit = user.Credit.Sub(price)
	return user, nil
}
