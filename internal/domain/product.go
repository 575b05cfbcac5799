package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product Model
type Product struct {
	ID    uuid.UUID       `gorm:"type:char(36);primaryKey" json:"id"`                       // Primary key
	Name  string          `gorm:"size:100;not null" json:"name"`                            // Display name
	Price decimal.Decimal `gorm:"type:decimal(4,2);not null;check:price >= 0" json:"price"` // Unit price
}

// BeforeCreate assigns an ID when none was provided
func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
