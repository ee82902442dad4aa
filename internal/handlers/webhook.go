package handlers

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/chatcart/chatcart-backend/internal/services"
)

// WebhookHandler receives messaging-platform webhook deliveries.
type WebhookHandler struct {
	bot *services.BotService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(bot *services.BotService) *WebhookHandler {
	return &WebhookHandler{bot: bot}
}

// VerifyWebhook answers the platform's subscription handshake: echo
// hub.challenge when the verify token matches, 403 otherwise.
func (h *WebhookHandler) VerifyWebhook(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == os.Getenv("WEBHOOK_VERIFY_TOKEN") {
		log.Println("✅ Webhook verified")
		return c.SendString(challenge)
	}

	log.Printf("❌ Webhook verification failed (mode=%s)", mode)
	return c.SendStatus(fiber.StatusForbidden)
}

// HandleWebhook processes a Cloud API webhook delivery. Once the body is
// structurally accepted the response is always 200: per-event failures are
// logged, never surfaced, so the platform does not redeliver.
func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	var payload services.WebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("❌ Error parsing webhook body: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	events := services.Normalize(&payload)
	for i := range events {
		if err := h.bot.HandleEvent(&events[i]); err != nil {
			log.Printf("❌ Error handling webhook event: %v", err)
		}
	}

	return c.SendString("EVENT_RECEIVED")
}

// HandleTwilioWebhook processes a Twilio form webhook for businesses on a
// Twilio channel.
func (h *WebhookHandler) HandleTwilioWebhook(c *fiber.Ctx) error {
	var payload services.TwilioWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		log.Printf("❌ Error parsing Twilio webhook: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid webhook payload",
		})
	}

	event, ok := services.NormalizeTwilio(&payload)
	if !ok {
		log.Println("⚠️  Skipping malformed Twilio webhook payload")
		return c.SendStatus(fiber.StatusOK)
	}

	if err := h.bot.HandleEvent(event); err != nil {
		log.Printf("❌ Error handling Twilio event: %v", err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// TestWebhookPayload injects a message directly (for development).
type TestWebhookPayload struct {
	ChannelID string `json:"channel_id"`
	From      string `json:"from"`
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
	ReplyID   string `json:"reply_id"`
}

// HandleTestWebhook processes test messages without the platform envelope.
func (h *WebhookHandler) HandleTestWebhook(c *fiber.Ctx) error {
	var payload TestWebhookPayload
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test payload",
		})
	}

	log.Printf("🧪 Test message from %s: %s", payload.From, payload.Message)

	msgType := "text"
	if payload.ReplyID != "" {
		msgType = "interactive"
	}
	event := services.Event{
		ChannelID: payload.ChannelID,
		Message: &services.MessageEvent{
			PlatformID: payload.MessageID,
			From:       payload.From,
			Type:       msgType,
			Text:       payload.Message,
			ReplyID:    payload.ReplyID,
		},
	}

	if err := h.bot.HandleEvent(&event); err != nil {
		log.Printf("❌ Test message failed: %v", err)
		return c.JSON(fiber.Map{"success": false, "error": err.Error()})
	}

	return c.JSON(fiber.Map{"success": true})
}
