package ledger

import (
	"context" // Request-scoped cancellation
	"errors"  // Error inspection
	"fmt"     // Error wrapping

	"vending_machine/internal/domain" // Importing domain models

	"github.com/google/uuid"        // UUID identities
	"github.com/shopspring/decimal" // Fixed-point currency
	"gorm.io/gorm"                  // GORM ORM library
	"gorm.io/gorm/clause"           // Association clauses
)

// GormStore is a Store backed by a relational database through GORM
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// first loads a single record by primary key, mapping a miss to ErrNotFound
func (s *GormStore) first(ctx context.Context, dest any, query *gorm.DB, what string, id any) error {
	if err := query.WithContext(ctx).First(dest, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
		}
		return fmt.Errorf("load %s %v: %w", what, id, err)
	}
	return nil
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := s.first(ctx, &user, s.db, "user", id); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("load user %q: %w", username, err)
	}
	return &user, nil
}

func (s *GormStore) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var product domain.Product
	if err := s.first(ctx, &product, s.db, "product", id); err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *GormStore) GetSlot(ctx context.Context, id uuid.UUID) (*domain.Slot, error) {
	var slot domain.Slot
	if err := s.first(ctx, &slot, s.db.Preload("Product"), "slot", id); err != nil {
		return nil, err
	}
	return &slot, nil
}

// ListSlots returns slots with their product, ordered by position
func (s *GormStore) ListSlots(ctx context.Context, filter SlotFilter) ([]domain.Slot, error) {
	query := s.db.WithContext(ctx).Preload("Product") // Start building the query
	if filter.MaxQuantity != nil {
		query = query.Where("quantity <= ?", *filter.MaxQuantity) // Inclusive bound
	}
	var slots []domain.Slot
	if err := query.Order("row_no, column_no, id").Find(&slots).Error; err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *GormStore) CreateProduct(ctx context.Context, product *domain.Product) error {
	if err := s.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (s *GormStore) CreateSlot(ctx context.Context, slot *domain.Slot) error {
	// Omit the association so a slot never upserts its product
	if err := s.db.WithContext(ctx).Omit("Product").Create(slot).Error; err != nil {
		return fmt.Errorf("create slot: %w", err)
	}
	return nil
}

// Commit applies the batch in a single database transaction.
// Each versioned update matches on (id, version); zero affected rows means
// another writer got there first and the whole transaction is rolled back.
func (s *GormStore) Commit(ctx context.Context, batch Batch) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range batch.Users {
			res := tx.Model(&domain.User{}).
				Where("id = ? AND version = ?", u.ID, u.Version).
				Updates(map[string]any{"credit": u.Credit, "version": u.Version + 1})
			if err := checkVersioned(res, "user", u.ID); err != nil {
				return err // Return error to rollback
			}
		}
		for _, sl := range batch.Slots {
			res := tx.Model(&domain.Slot{}).
				Where("id = ? AND version = ?", sl.ID, sl.Version).
				Updates(map[string]any{"quantity": sl.Quantity, "version": sl.Version + 1})
			if err := checkVersioned(res, "slot", sl.ID); err != nil {
				return err // Return error to rollback
			}
		}
		for i := range batch.Orders {
			// References are enforced by foreign keys, never upserted
			if err := tx.Omit(clause.Associations).Create(&batch.Orders[i]).Error; err != nil {
				return fmt.Errorf("create order: %w", err) // Return error to rollback
			}
		}
		return nil // Commit transaction
	})
}

func checkVersioned(res *gorm.DB, what string, id uuid.UUID) error {
	if res.Error != nil {
		return fmt.Errorf("update %s %s: %w", what, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %s %s: %w", what, id, ErrVersionConflict)
	}
	return nil
}

// SetUserCredit overwrites a user's credit and bumps its version
func (s *GormStore) SetUserCredit(ctx context.Context, id uuid.UUID, credit decimal.Decimal) error {
	res := s.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).
		Updates(map[string]any{"credit": credit, "version": gorm.Expr("version + ?", 1)})
	return checkUpdated(res, "user", id)
}

// SetSlotQuantity overwrites a slot's quantity and bumps its version
func (s *GormStore) SetSlotQuantity(ctx context.Context, id uuid.UUID, quantity int) error {
	res := s.db.WithContext(ctx).Model(&domain.Slot{}).Where("id = ?", id).
		Updates(map[string]any{"quantity": quantity, "version": gorm.Expr("version + ?", 1)})
	return checkUpdated(res, "slot", id)
}

func checkUpdated(res *gorm.DB, what string, id uuid.UUID) error {
	if res.Error != nil {
		return fmt.Errorf("update %s %s: %w", what, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

// Ping checks the underlying connection
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
