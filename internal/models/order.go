package models

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
)

// Order statuses. Only Status and PaymentStatus may change after creation.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// OrderItem is an immutable snapshot of a cart line at commit time.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// Order is created exactly once per checkout commit.
type Order struct {
	gorm.Model
	OrderID         string      `gorm:"uniqueIndex;not null" json:"order_id"`
	BusinessID      uint        `gorm:"index" json:"business_id"`
	CustomerPhone   string      `gorm:"index" json:"customer_phone"`
	CustomerName    string      `json:"customer_name,omitempty"`
	DeliveryAddress string      `json:"delivery_address,omitempty"`
	Items           []OrderItem `gorm:"serializer:json" json:"items"`
	Total           float64     `json:"total"`
	Status          string      `gorm:"default:'pending'" json:"status"`
	PaymentMethod   string      `json:"payment_method"`
	PaymentStatus   string      `gorm:"default:'pending'" json:"payment_status"`
	CreditDays      int         `json:"credit_days,omitempty"`
	Source          string      `gorm:"default:'whatsapp'" json:"source"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderID == "" {
		o.OrderID = GenerateOrderID()
	}
	return nil
}

// GenerateOrderID builds a time-ordered, human-shareable order id like
// ORD2408311542071234.
func GenerateOrderID() string {
	return fmt.Sprintf("ORD%s%04d", time.Now().Format("0601021504"), rand.Intn(10000))
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
