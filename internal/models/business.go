package models

import (
	"gorm.io/gorm"
)

// Channel providers
const (
	ProviderCloudAPI = "cloud_api"
	ProviderTwilio   = "twilio"
)

// Business is a tenant: one WhatsApp-enabled merchant with its own channel
// credentials, catalog, flows and bot config.
type Business struct {
	gorm.Model
	Name          string `json:"name"`
	Phone         string `gorm:"index" json:"phone"`
	WabaID        string `gorm:"index" json:"waba_id"`
	PhoneNumberID string `gorm:"index" json:"phone_number_id"`
	AccessToken   string `json:"-"`
	Provider      string `gorm:"default:'cloud_api'" json:"provider"`
	Currency      string `gorm:"default:'₹'" json:"currency"`
	IsActive      bool   `gorm:"default:true" json:"is_active"`
}
