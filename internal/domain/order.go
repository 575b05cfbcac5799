package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Order Model: append-only record of one successful purchase
type Order struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`          // Primary key
	UserID    uuid.UUID `gorm:"type:char(36);not null;index" json:"user_id"` // Buyer
	ProductID uuid.UUID `gorm:"type:char(36);not null" json:"product_id"`    // Product obtained
	SlotID    uuid.UUID `gorm:"type:char(36);not null" json:"slot_id"`       // Slot it came from
	CreatedAt time.Time `gorm:"not null" json:"created_at"`                  // Purchase time

	User    User    `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT;" json:"-"`    // Buyer record
	Product Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT;" json:"-"` // Product record
	Slot    Slot    `gorm:"foreignKey:SlotID;constraint:OnDelete:RESTRICT;" json:"-"`    // Slot record
}

// BeforeCreate assigns an ID when none was provided
func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
