// Package ledger stores users, products, slots and orders and applies
// purchase writes as one all-or-nothing unit under optimistic versioning.
package ledger

import (
	"context"

	"vending_machine/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SlotFilter narrows a slot listing
type SlotFilter struct {
	MaxQuantity *int // Inclusive upper bound on quantity, nil for no bound
}

// Batch is a set of writes committed together.
//
// Users and Slots carry the Version they were read at; Commit fails with
// ErrVersionConflict unless every stored version still matches, and on
// success stores each record with Version+1. Orders are always inserted.
type Batch struct {
	Users  []domain.User
	Slots  []domain.Slot
	Orders []domain.Order
}

// Store is the durable record storage behind the order service
type Store interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	GetSlot(ctx context.Context, id uuid.UUID) (*domain.Slot, error)
	ListSlots(ctx context.Context, filter SlotFilter) ([]domain.Slot, error)

	CreateUser(ctx context.Context, user *domain.User) error
	CreateProduct(ctx context.Context, product *domain.Product) error
	CreateSlot(ctx context.Context, slot *domain.Slot) error

	Commit(ctx context.Context, batch Batch) error

	SetUserCredit(ctx context.Context, id uuid.UUID, credit decimal.Decimal) error
	SetSlotQuantity(ctx context.Context, id uuid.UUID, quantity int) error

	Ping(ctx context.Context) error
}

var (
	_ Store = (*GormStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
