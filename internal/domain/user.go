package domain

import (
	"github.com/google/uuid"        // UUID identities
	"github.com/shopspring/decimal" // Fixed-point currency
	"gorm.io/gorm"                  // GORM ORM library
)

// Roles a user can hold
const (
	RoleUser  = "user"  // Regular customer
	RoleAdmin = "admin" // May adjust credit and stock
)

// User Model
type User struct {
	ID       uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`                         // Primary key
	Username string          `gorm:"size:100;uniqueIndex;not null" json:"username"`              // Unique username
	Role     string          `gorm:"size:20;default:user" json:"-"`                              // Role: user or admin
	Credit   decimal.Decimal `gorm:"type:decimal(6,2);not null;check:credit >= 0" json:"credit"` // Credit balance
	Version  int64           `gorm:"not null;default:0" json:"-"`                                // Optimistic concurrency counter
}

// BeforeCreate assigns an ID when none was provided
func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user may use administrative routes
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
