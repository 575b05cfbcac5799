package domain

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Slot bounds
const (
	MaxSlotQuantity = 100 // Units a single slot can hold
	MaxSlotRow      = 10  // Rows in the machine
	MaxSlotColumn   = 10  // Columns in the machine
)

// Slot Model: a machine compartment holding units of one product
type Slot struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`                                               // Primary key
	ProductID uuid.UUID `gorm:"type:char(36);not null;index" json:"product_id"`                                   // Fixed at creation
	Product   Product   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE;" json:"product"`                 // Stocked product
	Quantity  int       `gorm:"not null;check:quantity >= 0 AND quantity <= 100" json:"quantity"`                 // Units left
	Row       int       `gorm:"column:row_no;not null;check:row_no >= 1 AND row_no <= 10" json:"row"`             // Row, 1-10
	Column    int       `gorm:"column:column_no;not null;check:column_no >= 1 AND column_no <= 10" json:"column"` // Column, 1-10
	Version   int64     `gorm:"not null;default:0" json:"-"`                                                      // Optimistic concurrency counter
}

// BeforeCreate assigns an ID when none was provided
func (s *Slot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
