package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cloudWebhookSample = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "waba-100",
    "changes": [{
      "field": "messages",
      "value": {
        "messaging_product": "whatsapp",
        "metadata": {"display_phone_number": "919876500000", "phone_number_id": "pnid-100"},
        "contacts": [{"wa_id": "919876543210", "profile": {"name": "Asha"}}],
        "messages": [
          {"from": "919876543210", "id": "wamid.text1", "timestamp": "1724990000", "type": "text", "text": {"body": "hi"}},
          {"from": "919876543210", "id": "", "timestamp": "1724990001", "type": "text", "text": {"body": "broken"}},
          {"from": "919876543210", "id": "wamid.btn1", "timestamp": "1724990002", "type": "interactive",
           "interactive": {"type": "button_reply", "button_reply": {"id": "view_cart", "title": "View Cart"}}}
        ],
        "statuses": [
          {"id": "wamid.out1", "status": "delivered", "recipient_id": "919876543210"}
        ]
      }
    }]
  }]
}`

func TestNormalizeSkipsMalformedSiblings(t *testing.T) {
	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(cloudWebhookSample), &payload))

	events := Normalize(&payload)
	require.Len(t, events, 3)

	status := events[0]
	require.NotNil(t, status.Status)
	assert.Equal(t, "pnid-100", status.ChannelID)
	assert.Equal(t, "waba-100", status.AccountID)
	assert.Equal(t, "wamid.out1", status.Status.PlatformID)
	assert.Equal(t, "delivered", status.Status.Status)

	text := events[1]
	require.NotNil(t, text.Message)
	assert.Equal(t, "wamid.text1", text.Message.PlatformID)
	assert.Equal(t, "919876543210", text.Message.From)
	assert.Equal(t, "Asha", text.Message.ProfileName)
	assert.Equal(t, "hi", text.Message.Text)

	reply := events[2]
	require.NotNil(t, reply.Message)
	assert.Equal(t, "view_cart", reply.Message.ReplyID)
	assert.Equal(t, "View Cart", reply.Message.ReplyTitle)
}

func TestNormalizeListReply(t *testing.T) {
	payload := &WebhookPayload{
		Entry: []WebhookEntry{{
			ID: "waba-100",
			Changes: []WebhookChange{{
				Value: WebhookValue{
					Metadata: WebhookMetadata{PhoneNumberID: "pnid-100"},
					Messages: []WebhookMessage{{
						From: "919876543210",
						ID:   "wamid.list1",
						Type: "interactive",
						Interactive: &struct {
							Type        string `json:"type"`
							ButtonReply *struct {
								ID    string `json:"id"`
								Title string `json:"title"`
							} `json:"button_reply"`
							ListReply *struct {
								ID    string `json:"id"`
								Title string `json:"title"`
							} `json:"list_reply"`
						}{
							Type: "list_reply",
							ListReply: &struct {
								ID    string `json:"id"`
								Title string `json:"title"`
							}{ID: "prd0000000000000042", Title: "Masala Dosa"},
						},
					}},
				},
			}},
		}},
	}

	events := Normalize(payload)
	require.Len(t, events, 1)
	assert.Equal(t, "prd0000000000000042", events[0].Message.ReplyID)
}

func TestNormalizeMediaMessageKeptWithoutText(t *testing.T) {
	payload := &WebhookPayload{
		Entry: []WebhookEntry{{
			ID: "waba-100",
			Changes: []WebhookChange{{
				Value: WebhookValue{
					Metadata: WebhookMetadata{PhoneNumberID: "pnid-100"},
					Messages: []WebhookMessage{{
						From: "919876543210",
						ID:   "wamid.img1",
						Type: "image",
					}},
				},
			}},
		}},
	}

	events := Normalize(payload)
	require.Len(t, events, 1)
	assert.Equal(t, "image", events[0].Message.Type)
	assert.Empty(t, events[0].Message.Text)
	assert.Empty(t, events[0].Message.ReplyID)
}

func TestNormalizeTwilio(t *testing.T) {
	event, ok := NormalizeTwilio(&TwilioWebhookPayload{
		MessageSid: "SM123",
		AccountSid: "AC456",
		From:       "whatsapp:+919876543210",
		To:         "whatsapp:+919876500000",
		Body:       "hi there",
	})
	require.True(t, ok)

	assert.Equal(t, "919876500000", event.ChannelID)
	assert.Equal(t, "AC456", event.AccountID)
	require.NotNil(t, event.Message)
	assert.Equal(t, "SM123", event.Message.PlatformID)
	assert.Equal(t, "919876543210", event.Message.From)
	assert.Equal(t, "hi there", event.Message.Text)
}

func TestNormalizeTwilioRejectsIncomplete(t *testing.T) {
	_, ok := NormalizeTwilio(&TwilioWebhookPayload{Body: "no sid"})
	assert.False(t, ok)
}
