package services

import (
	"fmt"

	"github.com/chatcart/chatcart-backend/internal/models"
)

// Platform limits for interactive messages
const (
	MaxButtons         = 3
	MaxButtonTitleLen  = 20
	MaxListSections    = 10
	MaxListRows        = 10
	MaxRowTitleLen     = 24
	MaxRowDescLen      = 72
	MaxListButtonLabel = 20
)

// Button is one reply button on an interactive message.
type Button struct {
	ID    string
	Title string
}

// ListRow is one selectable row of an interactive list.
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection groups list rows under a section title.
type ListSection struct {
	Title string
	Rows  []ListRow
}

// Gateway sends messages to a customer over the business's channel. Sends are
// fire-and-log: a failed send never rolls back state already committed.
// Implementations return the platform message id of the sent message.
type Gateway interface {
	SendText(business *models.Business, to, body string) (string, error)
	SendButtons(business *models.Business, to, body string, buttons []Button) (string, error)
	SendList(business *models.Business, to, body, buttonLabel string, sections []ListSection) (string, error)
}

// ProviderGateway dispatches to the gateway matching the business's channel
// provider.
type ProviderGateway struct {
	cloud  Gateway
	twilio Gateway
}

// NewProviderGateway creates a gateway that routes per-business. Either
// backend may be nil when not configured.
func NewProviderGateway(cloud, twilio Gateway) *ProviderGateway {
	return &ProviderGateway{cloud: cloud, twilio: twilio}
}

func (p *ProviderGateway) pick(business *models.Business) (Gateway, error) {
	switch business.Provider {
	case models.ProviderTwilio:
		if p.twilio == nil {
			return nil, fmt.Errorf("twilio gateway not configured")
		}
		return p.twilio, nil
	default:
		if p.cloud == nil {
			return nil, fmt.Errorf("cloud api gateway not configured")
		}
		return p.cloud, nil
	}
}

func (p *ProviderGateway) SendText(business *models.Business, to, body string) (string, error) {
	gw, err := p.pick(business)
	if err != nil {
		return "", err
	}
	return gw.SendText(business, to, body)
}

func (p *ProviderGateway) SendButtons(business *models.Business, to, body string, buttons []Button) (string, error) {
	gw, err := p.pick(business)
	if err != nil {
		return "", err
	}
	return gw.SendButtons(business, to, body, buttons)
}

func (p *ProviderGateway) SendList(business *models.Business, to, body, buttonLabel string, sections []ListSection) (string, error) {
	gw, err := p.pick(business)
	if err != nil {
		return "", err
	}
	return gw.SendList(business, to, body, buttonLabel, sections)
}
