package ledger

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"vending_machine/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is a process-local Store. It is safe for concurrent use and
// honours the same versioning rules as GormStore.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]domain.User
	products map[uuid.UUID]domain.Product
	slots    map[uuid.UUID]domain.Slot
	orders   []domain.Order

	// BeforeCommit, when set, runs under the commit lock after version checks
	// pass and before anything is written. A non-nil error aborts the commit.
	BeforeCommit func(Batch) error
}

// NewMemoryStore returns an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uuid.UUID]domain.User),
		products: make(map[uuid.UUID]domain.Product),
		slots:    make(map[uuid.UUID]domain.Slot),
	}
}

func (m *MemoryStore) GetUser(_ context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
}

func (m *MemoryStore) GetProduct(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *MemoryStore) GetSlot(_ context.Context, id uuid.UUID) (*domain.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, fmt.Errorf("slot %s: %w", id, ErrNotFound)
	}
	s.Product = m.products[s.ProductID]
	return &s, nil
}

func (m *MemoryStore) ListSlots(_ context.Context, filter SlotFilter) ([]domain.Slot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	slots := make([]domain.Slot, 0, len(m.slots))
	for _, s := range m.slots {
		if filter.MaxQuantity != nil && s.Quantity > *filter.MaxQuantity {
			continue
		}
		s.Product = m.products[s.ProductID]
		slots = append(slots, s)
	}
	slices.SortFunc(slots, func(a, b domain.Slot) int {
		return cmp.Or(
			cmp.Compare(a.Row, b.Row),
			cmp.Compare(a.Column, b.Column),
			cmp.Compare(a.ID.String(), b.ID.String()),
		)
	})
	return slots, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *domain.User) error {
	if err := user.BeforeCreate(nil); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return fmt.Errorf("create user: username %q already exists", user.Username)
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) CreateProduct(_ context.Context, product *domain.Product) error {
	if err := product.BeforeCreate(nil); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = *product
	return nil
}

func (m *MemoryStore) CreateSlot(_ context.Context, slot *domain.Slot) error {
	if err := slot.BeforeCreate(nil); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[slot.ProductID]; !ok {
		return fmt.Errorf("create slot: product %s: %w", slot.ProductID, ErrNotFound)
	}
	stored := *slot
	stored.Product = domain.Product{}
	m.slots[slot.ID] = stored
	return nil
}

// Commit validates every version before writing anything
func (m *MemoryStore) Commit(ctx context.Context, batch Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, u := range batch.Users {
		cur, ok := m.users[u.ID]
		if !ok || cur.Version != u.Version {
			return fmt.Errorf("update user %s: %w", u.ID, ErrVersionConflict)
		}
	}
	for _, s := range batch.Slots {
		cur, ok := m.slots[s.ID]
		if !ok || cur.Version != s.Version {
			return fmt.Errorf("update slot %s: %w", s.ID, ErrVersionConflict)
		}
	}
	for _, o := range batch.Orders {
		if err := m.checkOrderRefs(o); err != nil {
			return err
		}
	}
	if m.BeforeCommit != nil {
		if err := m.BeforeCommit(batch); err != nil {
			return err
		}
	}
	for _, u := range batch.Users {
		cur := m.users[u.ID]
		cur.Credit = u.Credit
		cur.Version++
		m.users[u.ID] = cur
	}
	for _, s := range batch.Slots {
		cur := m.slots[s.ID]
		cur.Quantity = s.Quantity
		cur.Version++
		m.slots[s.ID] = cur
	}
	for i := range batch.Orders {
		if err := batch.Orders[i].BeforeCreate(nil); err != nil {
			return err
		}
		m.orders = append(m.orders, batch.Orders[i])
	}
	return nil
}

// checkOrderRefs mirrors the orders table's foreign keys. Caller holds mu.
func (m *MemoryStore) checkOrderRefs(o domain.Order) error {
	if _, ok := m.users[o.UserID]; !ok {
		return fmt.Errorf("create order: user %s: %w", o.UserID, ErrNotFound)
	}
	if _, ok := m.products[o.ProductID]; !ok {
		return fmt.Errorf("create order: product %s: %w", o.ProductID, ErrNotFound)
	}
	if _, ok := m.slots[o.SlotID]; !ok {
		return fmt.Errorf("create order: slot %s: %w", o.SlotID, ErrNotFound)
	}
	return nil
}

func (m *MemoryStore) SetUserCredit(_ context.Context, id uuid.UUID, credit decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	u.Credit = credit
	u.Version++
	m.users[id] = u
	return nil
}

func (m *MemoryStore) SetSlotQuantity(_ context.Context, id uuid.UUID, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return fmt.Errorf("slot %s: %w", id, ErrNotFound)
	}
	s.Quantity = quantity
	s.Version++
	m.slots[id] = s
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Orders returns a copy of every committed order, oldest first
func (m *MemoryStore) Orders() []domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.orders)
}
