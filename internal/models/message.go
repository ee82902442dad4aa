package models

import (
	"gorm.io/gorm"
)

// Message directions
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message is an append-only log entry per message sent or received. PlatformID
// is the messaging platform's message id and is the deduplication key for
// inbound deliveries; only Status is ever updated, by delivery-status events
// echoed back for outbound messages.
type Message struct {
	gorm.Model
	BusinessID    uint   `gorm:"uniqueIndex:idx_msg_biz_platform" json:"business_id"`
	PlatformID    string `gorm:"uniqueIndex:idx_msg_biz_platform" json:"platform_id"`
	Direction     string `json:"direction"`
	CustomerPhone string `gorm:"index" json:"customer_phone"`
	Type          string `json:"type"`
	Body          string `json:"body"`
	Status        string `json:"status,omitempty"`
}
