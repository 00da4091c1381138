package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Customization is a customer's selection against a product's
// CustomizationOptions schema. Mirrors the two schema shapes: a flat
// variant list for legacy single-group products, or per-group selections
// under variant_types.
type Customization struct {
	Variants     []string            `json:"variants,omitempty"`
	VariantTypes map[string][]string `json:"variant_types,omitempty"`
}

// Selections returns the picks as named groups regardless of shape.
func (c *Customization) Selections() map[string][]string {
	if c == nil {
		return nil
	}
	if len(c.VariantTypes) > 0 {
		return c.VariantTypes
	}
	if len(c.Variants) == 0 {
		return nil
	}
	return map[string][]string{legacyGroupKey: c.Variants}
}

// IsZero reports whether no selection was made.
func (c *Customization) IsZero() bool {
	return c == nil || (len(c.Variants) == 0 && len(c.VariantTypes) == 0)
}

// Equal reports whether two selections are the same. Comparison is on
// the canonical JSON encoding: map keys sort, slice order is
// significant. Two lines merge in the cart only when this holds.
func (c *Customization) Equal(other *Customization) bool {
	if c.IsZero() && other.IsZero() {
		return true
	}
	if c.IsZero() || other.IsZero() {
		return false
	}
	a, err := json.Marshal(c.Selections())
	if err != nil {
		return false
	}
	b, err := json.Marshal(other.Selections())
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func (c *Customization) Value() (driver.Value, error) {
	if c == nil || c.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *Customization) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported customization column type %T", value)
	}
	return json.Unmarshal(data, c)
}

type CartItem struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	UserID        uint           `gorm:"not null;index" json:"user_id"`
	ProductID     uint           `gorm:"not null;index" json:"product_id"`
	Quantity      int            `gorm:"not null;default:1" json:"quantity"`
	UnitPrice     float64        `gorm:"not null" json:"unit_price"` // base + variant upcharges, captured at add time
	Customization *Customization `gorm:"type:text" json:"customization,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal returns the line total.
func (i *CartItem) Subtotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}
