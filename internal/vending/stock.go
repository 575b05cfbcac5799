package vending

import "vending_machine/internal/domain"

// AuthorizeAndDecrement returns slot with one unit removed. The quantity is
// checked before anything is changed; an empty slot yields *OutOfStockError.
// Nothing is persisted.
func AuthorizeAndDecrement(slot domain.Slot) (domain.Slot, error) {
	if slot.Quantity <= 0 {
		return slot, &OutOfStockError{Product: slot.Product.Name}
	}
	slot.Quantity--
	return slot, nil
}
