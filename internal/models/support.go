package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SupportTicket collects customer support messages into a per-customer
// transcript. One open ticket per (business, customer); new messages append.
type SupportTicket struct {
	gorm.Model
	TicketID      string `gorm:"uniqueIndex;not null" json:"ticket_id"`
	BusinessID    uint   `gorm:"index" json:"business_id"`
	CustomerPhone string `gorm:"index" json:"customer_phone"`
	Transcript    string `json:"transcript"`
	Status        string `gorm:"default:'open'" json:"status"` // open, in_progress, resolved, closed
	Priority      string `gorm:"default:'medium'" json:"priority"`
}

func (st *SupportTicket) BeforeCreate(tx *gorm.DB) error {
	if st.TicketID == "" {
		st.TicketID = fmt.Sprintf("TK%d", time.Now().UnixNano())
	}
	return nil
}
