package model

import (
	"time"

	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Discount struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	Code        string         `gorm:"uniqueIndex;not null" json:"code"` // stored uppercase
	Description string         `gorm:"type:text" json:"description"`
	Type        DiscountType   `gorm:"type:varchar(20);not null" json:"type"`
	Value       float64        `gorm:"not null" json:"value"` // percent for percentage, IDR for fixed
	MinPurchase float64        `gorm:"default:0" json:"min_purchase"`
	ValidFrom   *time.Time     `json:"valid_from,omitempty"`
	ValidUntil  *time.Time     `json:"valid_until,omitempty"`
	IsActive    bool           `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Discount) TableName() string {
	return "discounts"
}

// AmountFor computes the discount amount for a given subtotal.
// Fixed discounts never exceed the subtotal.
func (d *Discount) AmountFor(subtotal float64) float64 {
	switch d.Type {
	case DiscountPercentage:
		return subtotal * d.Value / 100
	case DiscountFixed:
		if d.Value > subtotal {
			return subtotal
		}
		return d.Value
	}
	return 0
}
