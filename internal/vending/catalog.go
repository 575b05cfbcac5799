package vending

import (
	"context"
	"fmt"

	"vending_machine/internal/domain"
	"vending_machine/internal/ledger"

	"github.com/google/uuid"
)

// ProductView is the public shape of a product
type ProductView struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price string    `json:"price"` // Fixed to 2 decimal places
}

// SlotView is the public shape of a slot. Coordinates are [column, row].
type SlotView struct {
	ID          uuid.UUID   `json:"id"`
	Quantity    int         `json:"quantity"`
	Coordinates [2]int      `json:"coordinates"`
	Product     ProductView `json:"product"`
}

// NewSlotView projects a stored slot
func NewSlotView(s domain.Slot) SlotView {
	return SlotView{
		ID:          s.ID,
		Quantity:    s.Quantity,
		Coordinates: [2]int{s.Column, s.Row},
		Product: ProductView{
			ID:    s.Product.ID,
			Name:  s.Product.Name,
			Price: s.Product.Price.StringFixed(2),
		},
	}
}

// Catalog lists slots. It never writes.
type Catalog struct {
	store ledger.Store
}

func NewCatalog(store ledger.Store) *Catalog {
	return &Catalog{store: store}
}

// ListSlots returns every slot, or only those holding at most maxQuantity
// units when maxQuantity is set, ordered by row then column.
func (c *Catalog) ListSlots(ctx context.Context, maxQuantity *int) ([]SlotView, error) {
	slots, err := c.store.ListSlots(ctx, ledger.SlotFilter{MaxQuantity: maxQuantity})
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	views := make([]SlotView, len(slots))
	for i, s := range slots {
		views[i] = NewSlotView(s)
	}
	return views, nil
}
