package services

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/chatcart/chatcart-backend/internal/models"
)

// TwilioGateway is the fallback outbound provider for businesses whose
// WhatsApp channel runs through Twilio. Interactive messages degrade to
// numbered text menus: Twilio WhatsApp buttons require pre-registered content
// templates, which tenant-authored flows cannot use.
type TwilioGateway struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioGateway creates a Twilio gateway from environment credentials.
func NewTwilioGateway() (*TwilioGateway, error) {
	accountSid := os.Getenv("TWILIO_ACCOUNT_SID")
	authToken := os.Getenv("TWILIO_AUTH_TOKEN")
	from := os.Getenv("TWILIO_WHATSAPP_FROM") // Format: "whatsapp:+14155238886"

	if accountSid == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("missing Twilio credentials in environment variables")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSid,
		Password: authToken,
	})

	return &TwilioGateway{
		client: client,
		from:   from,
	}, nil
}

func (t *TwilioGateway) SendText(business *models.Business, to, body string) (string, error) {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(fmt.Sprintf("whatsapp:+%s", to))
	params.SetBody(body)

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		log.Printf("❌ Failed to send Twilio WhatsApp message: %v", err)
		return "", err
	}

	log.Printf("✅ Twilio WhatsApp message sent! SID: %s", *resp.Sid)
	return *resp.Sid, nil
}

func (t *TwilioGateway) SendButtons(business *models.Business, to, body string, buttons []Button) (string, error) {
	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n")
	for i, btn := range buttons {
		if i >= MaxButtons {
			break
		}
		fmt.Fprintf(&b, "\n%d️⃣ %s", i+1, btn.Title)
	}
	return t.SendText(business, to, b.String())
}

func (t *TwilioGateway) SendList(business *models.Business, to, body, buttonLabel string, sections []ListSection) (string, error) {
	var b strings.Builder
	b.WriteString(body)
	for _, section := range sections {
		if section.Title != "" {
			fmt.Fprintf(&b, "\n\n*%s*", section.Title)
		}
		for _, row := range section.Rows {
			fmt.Fprintf(&b, "\n• %s", row.Title)
			if row.Description != "" {
				fmt.Fprintf(&b, " — %s", row.Description)
			}
		}
	}
	return t.SendText(business, to, b.String())
}
