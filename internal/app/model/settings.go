package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringSlice stores a JSON array of strings in a text column.
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported string slice column type %T", value)
	}
	return json.Unmarshal(data, s)
}

// ShippingSettings is the singleton storefront configuration row.
type ShippingSettings struct {
	ID              uint        `gorm:"primarykey" json:"id"`
	DeliveryFee     float64     `gorm:"not null" json:"delivery_fee"` // flat fee for delivery orders, IDR
	PickupFee       float64     `gorm:"default:0" json:"pickup_fee"`
	WhatsAppNumber  string      `gorm:"size:30" json:"whatsapp_number"` // order notifications land here
	PickupLocations StringSlice `gorm:"type:text" json:"pickup_locations"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

func (ShippingSettings) TableName() string {
	return "shipping_settings"
}

// DefaultShippingSettings returns the row seeded on first migration.
func DefaultShippingSettings() ShippingSettings {
	return ShippingSettings{
		DeliveryFee:     25000,
		PickupFee:       0,
		WhatsAppNumber:  "6281234567890",
		PickupLocations: StringSlice{"Milkbites Kemang", "Milkbites PIK"},
	}
}
