package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer is the durable customer record for a business. Upserted whenever a
// checkout completes with info provided; independent of session lifetime.
type Customer struct {
	gorm.Model
	BusinessID  uint       `gorm:"uniqueIndex:idx_customer_biz_phone" json:"business_id"`
	Phone       string     `gorm:"uniqueIndex:idx_customer_biz_phone" json:"phone"`
	Name        string     `json:"name"`
	Address     string     `json:"address"`
	TotalOrders int        `json:"total_orders"`
	TotalSpent  float64    `json:"total_spent"`
	LastOrderAt *time.Time `json:"last_order_at,omitempty"`
}
