package services

import (
	"log"
	"strings"

	"github.com/chatcart/chatcart-backend/internal/utils"
)

// Raw Cloud API webhook body: entry[].changes[].value carrying zero or more
// statuses and inbound messages. Parsed into canonical events at this
// boundary; the raw shape never travels further.

type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         WebhookMetadata  `json:"metadata"`
	Contacts         []WebhookContact `json:"contacts"`
	Messages         []WebhookMessage `json:"messages"`
	Statuses         []WebhookStatus  `json:"statuses"`
}

type WebhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WebhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

type WebhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	RecipientID string `json:"recipient_id"`
}

// MessageEvent is a canonical inbound customer message.
type MessageEvent struct {
	PlatformID  string
	From        string // digits-only customer phone
	ProfileName string
	Type        string
	Text        string
	ReplyID     string
	ReplyTitle  string
}

// StatusEvent is a canonical delivery-status update for an outbound message.
type StatusEvent struct {
	PlatformID  string
	Status      string
	RecipientID string
}

// Event is the tagged variant produced by normalization: exactly one of
// Message or Status is set. ChannelID and AccountID identify the tenant
// channel the event arrived on.
type Event struct {
	ChannelID string
	AccountID string
	Message   *MessageEvent
	Status    *StatusEvent
}

// Normalize flattens a webhook payload into canonical events. A malformed
// item is logged and skipped; its siblings are still processed.
func Normalize(payload *WebhookPayload) []Event {
	var events []Event

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			channelID := value.Metadata.PhoneNumberID

			names := make(map[string]string, len(value.Contacts))
			for _, contact := range value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}

			for _, status := range value.Statuses {
				if status.ID == "" || status.Status == "" {
					log.Printf("⚠️  Skipping malformed status update on channel %s", channelID)
					continue
				}
				events = append(events, Event{
					ChannelID: channelID,
					AccountID: entry.ID,
					Status: &StatusEvent{
						PlatformID:  status.ID,
						Status:      status.Status,
						RecipientID: utils.NormalizePhone(status.RecipientID),
					},
				})
			}

			for _, message := range value.Messages {
				event, ok := normalizeMessage(&message, names)
				if !ok {
					log.Printf("⚠️  Skipping malformed message on channel %s", channelID)
					continue
				}
				events = append(events, Event{
					ChannelID: channelID,
					AccountID: entry.ID,
					Message:   event,
				})
			}
		}
	}

	return events
}

func normalizeMessage(msg *WebhookMessage, names map[string]string) (*MessageEvent, bool) {
	if msg.ID == "" || msg.From == "" {
		return nil, false
	}

	event := &MessageEvent{
		PlatformID:  msg.ID,
		From:        utils.NormalizePhone(msg.From),
		ProfileName: names[msg.From],
		Type:        msg.Type,
	}

	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return nil, false
		}
		event.Text = msg.Text.Body
	case "interactive":
		if msg.Interactive == nil {
			return nil, false
		}
		switch {
		case msg.Interactive.ButtonReply != nil:
			event.ReplyID = msg.Interactive.ButtonReply.ID
			event.ReplyTitle = msg.Interactive.ButtonReply.Title
		case msg.Interactive.ListReply != nil:
			event.ReplyID = msg.Interactive.ListReply.ID
			event.ReplyTitle = msg.Interactive.ListReply.Title
		default:
			return nil, false
		}
	default:
		// Media, location etc. carry no routable content; the router will
		// answer with the generic help response.
	}

	return event, true
}

// TwilioWebhookPayload is the form-encoded webhook Twilio posts for inbound
// WhatsApp messages on twilio-provider channels.
type TwilioWebhookPayload struct {
	MessageSid string `form:"MessageSid"`
	AccountSid string `form:"AccountSid"`
	From       string `form:"From"` // whatsapp:+919876543210
	To         string `form:"To"`
	Body       string `form:"Body"`
}

// NormalizeTwilio converts a Twilio form payload into a canonical event. The
// channel id is the business's WhatsApp number; Twilio has no structured
// replies, so everything arrives as text.
func NormalizeTwilio(payload *TwilioWebhookPayload) (*Event, bool) {
	if payload.MessageSid == "" || payload.From == "" {
		return nil, false
	}
	return &Event{
		ChannelID: utils.NormalizePhone(strings.TrimPrefix(payload.To, "whatsapp:")),
		AccountID: payload.AccountSid,
		Message: &MessageEvent{
			PlatformID: payload.MessageSid,
			From:       utils.NormalizePhone(strings.TrimPrefix(payload.From, "whatsapp:")),
			Type:       "text",
			Text:       payload.Body,
		},
	}, true
}
