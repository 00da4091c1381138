package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string
type DeliveryType string

const (
	OrderStatusPending    OrderStatus = "pending"    // awaiting payment proof / confirmation
	OrderStatusConfirmed  OrderStatus = "confirmed"  // payment verified
	OrderStatusProcessing OrderStatus = "processing" // being baked and packed
	OrderStatusCompleted  OrderStatus = "completed"  // delivered or picked up
	OrderStatusCancelled  OrderStatus = "cancelled"

	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

// statusTransitions is the forward path an order may take. Cancellation
// is allowed from any state except completed.
var statusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

// ValidStatus reports whether s names a known order status.
func ValidStatus(s string) bool {
	_, ok := statusTransitions[OrderStatus(s)]
	return ok
}

// CanTransitionTo reports whether the status may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID              uint           `gorm:"primarykey" json:"id"`
	OrderNumber     string         `gorm:"uniqueIndex;not null" json:"order_number"` // MB<yyyymmdd><seq>
	UserID          uint           `gorm:"not null;index" json:"user_id"`
	TotalAmount     float64        `gorm:"not null" json:"total_amount"` // items subtotal
	ShippingFee     float64        `gorm:"not null" json:"shipping_fee"`
	DiscountAmount  float64        `gorm:"default:0" json:"discount_amount"`
	DiscountCode    string         `gorm:"type:varchar(50)" json:"discount_code,omitempty"`
	FinalAmount     float64        `gorm:"not null" json:"final_amount"` // subtotal + fee - discount
	DeliveryType    DeliveryType   `gorm:"type:varchar(20);default:'delivery'" json:"delivery_type"`
	DeliveryAddress string         `gorm:"type:text" json:"delivery_address,omitempty"`
	PickupLocation  string         `gorm:"type:varchar(100)" json:"pickup_location,omitempty"`
	PickupDate      *time.Time     `json:"pickup_date,omitempty"`
	Notes           string         `gorm:"type:text" json:"notes,omitempty"`
	PaymentProofURL string         `json:"payment_proof_url,omitempty"`
	Status          OrderStatus    `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	User       User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

type OrderItem struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	OrderID       uint           `gorm:"not null;index" json:"order_id"`
	ProductID     uint           `gorm:"not null;index" json:"product_id"`
	ProductName   string         `gorm:"not null" json:"product_name"` // snapshot, survives catalog edits
	Quantity      int            `gorm:"not null" json:"quantity"`
	UnitPrice     float64        `gorm:"not null" json:"unit_price"`
	Customization *Customization `gorm:"type:text" json:"customization,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
