package models

import (
	"time"

	"gorm.io/gorm"
)

// SessionState is the conversation state of a customer session.
type SessionState string

const (
	StateIdle             SessionState = "idle"
	StateBrowsing         SessionState = "browsing"
	StateCart             SessionState = "cart"
	StateCollectingInfo   SessionState = "collecting_customer_info"
	StateCollectingName   SessionState = "collecting_name"
	StateCollectingAddr   SessionState = "collecting_address"
	StateReviewingInfo    SessionState = "reviewing_customer_info"
	StateSelectingPayment SessionState = "selecting_payment"
	StateConfirming       SessionState = "confirming"
	StateTracking         SessionState = "tracking"
	StateViewingOrders    SessionState = "viewing_orders"
	StateSupport          SessionState = "support"
)

var validStates = map[SessionState]bool{
	StateIdle:             true,
	StateBrowsing:         true,
	StateCart:             true,
	StateCollectingInfo:   true,
	StateCollectingName:   true,
	StateCollectingAddr:   true,
	StateReviewingInfo:    true,
	StateSelectingPayment: true,
	StateConfirming:       true,
	StateTracking:         true,
	StateViewingOrders:    true,
	StateSupport:          true,
}

// NormalizeState maps unknown or legacy state strings to idle so a corrupted
// session recovers instead of hitting undefined behavior.
func NormalizeState(s SessionState) SessionState {
	if validStates[s] {
		return s
	}
	return StateIdle
}

// Payment methods
const (
	PaymentCOD    = "COD"
	PaymentOnline = "ONLINE"
	PaymentCredit = "CREDIT"
)

// SessionTTL is how long a session stays warm. A session read after this is
// reset to idle with an empty cart before use.
const SessionTTL = 24 * time.Hour

// CartLine is one product line inside a session cart.
type CartLine struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"line_total"`
}

// CustomerInfo is name/address staged during checkout collection. It is
// promoted to the durable Customer record only when an order commits.
type CustomerInfo struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
}

// ChatSession is the durable per-(business, customer) conversation state.
// Never hard-deleted; it doubles as CRM history.
type ChatSession struct {
	gorm.Model
	BusinessID    uint         `gorm:"uniqueIndex:idx_session_biz_phone" json:"business_id"`
	CustomerPhone string       `gorm:"uniqueIndex:idx_session_biz_phone" json:"customer_phone"`
	State         SessionState `gorm:"default:'idle'" json:"state"`
	CurrentFlow   string       `json:"current_flow,omitempty"`
	CurrentStep   int          `json:"current_step,omitempty"`
	Cart          []CartLine   `gorm:"serializer:json" json:"cart"`
	CartTotal     float64      `json:"cart_total"`
	PaymentMethod string       `json:"payment_method,omitempty"`
	CreditDays    int          `json:"credit_days,omitempty"`
	TempInfo      CustomerInfo `gorm:"serializer:json" json:"temp_info"`
	LastOrderID   string       `json:"last_order_id,omitempty"`
	LastActivity  time.Time    `json:"last_activity"`
	ReminderSent  bool         `json:"reminder_sent"`
}

// IsStale reports whether the session has been inactive beyond the TTL.
func (s *ChatSession) IsStale(now time.Time) bool {
	return !s.LastActivity.IsZero() && now.Sub(s.LastActivity) > SessionTTL
}

// Reset returns the session to idle with an empty cart. Staged checkout data
// is dropped; LastOrderID is kept for history.
func (s *ChatSession) Reset() {
	s.State = StateIdle
	s.CurrentFlow = ""
	s.CurrentStep = 0
	s.Cart = nil
	s.CartTotal = 0
	s.PaymentMethod = ""
	s.CreditDays = 0
	s.TempInfo = CustomerInfo{}
	s.ReminderSent = false
}

// RecomputeCartTotal derives CartTotal from the lines. The stored total is
// never trusted on its own.
func (s *ChatSession) RecomputeCartTotal() {
	total := 0.0
	for i := range s.Cart {
		s.Cart[i].LineTotal = float64(s.Cart[i].Quantity) * s.Cart[i].UnitPrice
		total += s.Cart[i].LineTotal
	}
	s.CartTotal = total
}
