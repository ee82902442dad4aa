package services

import (
	"log"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

// Messenger wraps a Gateway and appends every send to the message log. The
// log write is best-effort: a failed write never blocks or fails the reply
// path, and a failed send never rolls back state committed before it.
type Messenger struct {
	store   storage.Store
	gateway Gateway
}

// NewMessenger creates a logging messenger over the given gateway.
func NewMessenger(store storage.Store, gateway Gateway) *Messenger {
	return &Messenger{store: store, gateway: gateway}
}

func (m *Messenger) logOutbound(business *models.Business, to, msgType, body, platformID string) {
	if platformID == "" {
		return
	}
	record := &models.Message{
		BusinessID:    business.ID,
		PlatformID:    platformID,
		Direction:     models.DirectionOutbound,
		CustomerPhone: to,
		Type:          msgType,
		Body:          body,
		Status:        "sent",
	}
	if err := m.store.CreateMessage(record); err != nil {
		log.Printf("⚠️  Failed to log outbound message %s: %v", platformID, err)
	}
}

// Text sends a plain text message.
func (m *Messenger) Text(business *models.Business, to, body string) error {
	id, err := m.gateway.SendText(business, to, body)
	if err != nil {
		log.Printf("❌ Failed to send text to %s: %v", to, err)
		return err
	}
	m.logOutbound(business, to, "text", body, id)
	return nil
}

// Buttons sends an interactive message with up to 3 reply buttons.
func (m *Messenger) Buttons(business *models.Business, to, body string, buttons []Button) error {
	id, err := m.gateway.SendButtons(business, to, body, buttons)
	if err != nil {
		log.Printf("❌ Failed to send buttons to %s: %v", to, err)
		return err
	}
	m.logOutbound(business, to, "interactive", body, id)
	return nil
}

// List sends an interactive list message.
func (m *Messenger) List(business *models.Business, to, body, buttonLabel string, sections []ListSection) error {
	id, err := m.gateway.SendList(business, to, body, buttonLabel, sections)
	if err != nil {
		log.Printf("❌ Failed to send list to %s: %v", to, err)
		return err
	}
	m.logOutbound(business, to, "interactive", body, id)
	return nil
}
