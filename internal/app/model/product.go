package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type ProductCategory string

const (
	CategoryCookies ProductCategory = "cookies"
	CategoryBabka   ProductCategory = "babka"
	CategoryCake    ProductCategory = "cake"
	CategoryHampers ProductCategory = "hampers"
)

// ValidCategory reports whether s names a known product category.
func ValidCategory(s string) bool {
	switch ProductCategory(s) {
	case CategoryCookies, CategoryBabka, CategoryCake, CategoryHampers:
		return true
	}
	return false
}

type Product struct {
	ID                    uint                  `gorm:"primarykey" json:"id"`
	Name                  string                `gorm:"not null" json:"name"`
	Description           string                `gorm:"type:text" json:"description"`
	Price                 float64               `gorm:"not null" json:"price"` // base price in IDR
	Category              ProductCategory       `gorm:"type:varchar(50);index" json:"category"`
	ImageURL              string                `json:"image_url"`
	RequiresCustomization bool                  `gorm:"default:false" json:"requires_customization"`
	CustomizationOptions  *CustomizationOptions `gorm:"type:text" json:"customization_options,omitempty"`
	StockQuantity         int                   `gorm:"default:0" json:"stock_quantity"`
	IsActive              bool                  `gorm:"default:true" json:"is_active"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
	DeletedAt             gorm.DeletedAt        `gorm:"index" json:"-"`

	// Relationships
	OrderItems []OrderItem `gorm:"foreignKey:ProductID" json:"-"`
	CartItems  []CartItem  `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// Variant is one selectable flavour within a variant group. Catalog data
// stores variants either as bare strings ("Chocolate") or as objects with
// an upcharge ({"name": "Pistachio", "additional_price": 15000}); both
// shapes decode into this type.
type Variant struct {
	Name            string  `json:"name"`
	AdditionalPrice float64 `json:"additional_price,omitempty"`
}

func (v *Variant) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v.Name = s
		v.AdditionalPrice = 0
		return nil
	}

	type variantObject Variant
	var obj variantObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid variant: %w", err)
	}
	*v = Variant(obj)
	return nil
}

// VariantGroup is one named group of variants the customer picks from,
// with an exact required selection count.
type VariantGroup struct {
	Label         string    `json:"label"`
	RequiredCount int       `json:"required_count"`
	Variants      []Variant `json:"variants"`
}

// CustomizationOptions is the per-product selection schema. Two shapes
// exist in the catalog: the legacy single-group form (required_count +
// variants at the top level) and the current multi-group form under
// variant_types. Groups() normalizes both.
type CustomizationOptions struct {
	RequiredCount int                     `json:"required_count,omitempty"`
	Variants      []Variant               `json:"variants,omitempty"`
	VariantTypes  map[string]VariantGroup `json:"variant_types,omitempty"`
}

// legacyGroupKey names the implicit group of the legacy schema shape.
const legacyGroupKey = "variants"

// Groups returns the schema as named groups regardless of shape.
func (o *CustomizationOptions) Groups() map[string]VariantGroup {
	if o == nil {
		return nil
	}
	if len(o.VariantTypes) > 0 {
		return o.VariantTypes
	}
	if len(o.Variants) == 0 {
		return nil
	}
	return map[string]VariantGroup{
		legacyGroupKey: {
			Label:         "variants",
			RequiredCount: o.RequiredCount,
			Variants:      o.Variants,
		},
	}
}

// FindVariant looks up a variant by name within a group.
func (g VariantGroup) FindVariant(name string) (Variant, bool) {
	for _, v := range g.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

func (o *CustomizationOptions) Value() (driver.Value, error) {
	if o == nil {
		return nil, nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (o *CustomizationOptions) Scan(value interface{}) error {
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
		return fmt.Errorf("unsupported customization options column type %T", value)
	}
	return json.Unmarshal(data, o)
}
