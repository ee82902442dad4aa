package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/utils"
)

const defaultGraphAPIBase = "https://graph.facebook.com/v19.0"

// CloudGateway sends messages through the WhatsApp Cloud API using each
// business's own access token and phone number id.
type CloudGateway struct {
	baseURL    string
	httpClient *http.Client
}

// NewCloudGateway creates a Cloud API gateway. WHATSAPP_API_BASE overrides the
// Graph endpoint (used by tests and sandboxes).
func NewCloudGateway() *CloudGateway {
	base := os.Getenv("WHATSAPP_API_BASE")
	if base == "" {
		base = defaultGraphAPIBase
	}
	return &CloudGateway{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Outbound payload types per the Cloud API message schema

type textPayload struct {
	Body string `json:"body"`
}

type interactiveButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type interactiveRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type interactiveSection struct {
	Title string           `json:"title,omitempty"`
	Rows  []interactiveRow `json:"rows"`
}

type interactivePayload struct {
	Type   string `json:"type"`
	Body   struct {
		Text string `json:"text"`
	} `json:"body"`
	Action struct {
		Button   string               `json:"button,omitempty"`
		Buttons  []interactiveButton  `json:"buttons,omitempty"`
		Sections []interactiveSection `json:"sections,omitempty"`
	} `json:"action"`
}

type outboundMessage struct {
	MessagingProduct string              `json:"messaging_product"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textPayload        `json:"text,omitempty"`
	Interactive      *interactivePayload `json:"interactive,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

func (g *CloudGateway) SendText(business *models.Business, to, body string) (string, error) {
	msg := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textPayload{Body: body},
	}
	return g.send(business, &msg)
}

func (g *CloudGateway) SendButtons(business *models.Business, to, body string, buttons []Button) (string, error) {
	if len(buttons) > MaxButtons {
		buttons = buttons[:MaxButtons]
	}

	interactive := &interactivePayload{Type: "button"}
	interactive.Body.Text = body
	for _, b := range buttons {
		interactive.Action.Buttons = append(interactive.Action.Buttons, interactiveButton{
			Type: "reply",
			Reply: buttonReply{
				ID:    b.ID,
				Title: utils.Truncate(b.Title, MaxButtonTitleLen),
			},
		})
	}

	msg := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	}
	return g.send(business, &msg)
}

func (g *CloudGateway) SendList(business *models.Business, to, body, buttonLabel string, sections []ListSection) (string, error) {
	if len(sections) > MaxListSections {
		sections = sections[:MaxListSections]
	}

	interactive := &interactivePayload{Type: "list"}
	interactive.Body.Text = body
	interactive.Action.Button = utils.Truncate(buttonLabel, MaxListButtonLabel)
	for _, s := range sections {
		rows := s.Rows
		if len(rows) > MaxListRows {
			rows = rows[:MaxListRows]
		}
		section := interactiveSection{Title: utils.Truncate(s.Title, MaxRowTitleLen)}
		for _, r := range rows {
			section.Rows = append(section.Rows, interactiveRow{
				ID:          r.ID,
				Title:       utils.Truncate(r.Title, MaxRowTitleLen),
				Description: utils.Truncate(r.Description, MaxRowDescLen),
			})
		}
		interactive.Action.Sections = append(interactive.Action.Sections, section)
	}

	msg := outboundMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive:      interactive,
	}
	return g.send(business, &msg)
}

func (g *CloudGateway) send(business *models.Business, msg *outboundMessage) (string, error) {
	if business.AccessToken == "" || business.PhoneNumberID == "" {
		return "", fmt.Errorf("business %d has no cloud api credentials", business.ID)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", g.baseURL, business.PhoneNumberID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+business.AccessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil {
			return "", fmt.Errorf("cloud api error %d: %s", result.Error.Code, result.Error.Message)
		}
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if len(result.Messages) == 0 {
		return "", fmt.Errorf("cloud api returned no message id")
	}

	log.Printf("✅ WhatsApp message sent to %s! ID: %s", msg.To, result.Messages[0].ID)
	return result.Messages[0].ID, nil
}
