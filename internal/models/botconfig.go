package models

import (
	"gorm.io/gorm"
)

// MenuOption is one row of the configured welcome menu.
type MenuOption struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// OrderBotConfig is the per-business configuration for the default commerce
// automation. Read-only to the conversation engine.
type OrderBotConfig struct {
	gorm.Model
	BusinessID     uint         `gorm:"uniqueIndex" json:"business_id"`
	Enabled        bool         `gorm:"default:true" json:"enabled"`
	WelcomeMessage string       `json:"welcome_message"`
	MenuOptions    []MenuOption `gorm:"serializer:json" json:"menu_options"`
	AcceptCOD      bool         `gorm:"default:true" json:"accept_cod"`
	AcceptOnline   bool         `json:"accept_online"`
	AcceptCredit   bool         `json:"accept_credit"`
	CreditDays     int          `gorm:"default:7" json:"credit_days"`
}

// EnabledPaymentMethods returns the payment methods the business accepts, in
// a fixed order so resolution is deterministic.
func (c *OrderBotConfig) EnabledPaymentMethods() []string {
	var methods []string
	if c.AcceptCOD {
		methods = append(methods, PaymentCOD)
	}
	if c.AcceptOnline {
		methods = append(methods, PaymentOnline)
	}
	if c.AcceptCredit {
		methods = append(methods, PaymentCredit)
	}
	return methods
}
