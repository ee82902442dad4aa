package routes

import (
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/chatcart/chatcart-backend/internal/handlers"
	"github.com/chatcart/chatcart-backend/internal/middleware"
	"github.com/chatcart/chatcart-backend/internal/services"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, bot *services.BotService) {
	webhookHandler := handlers.NewWebhookHandler(bot)
	orderHandler := handlers.NewOrderHandler(store)

	// Root endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to ChatCart Backend!",
			"version": "1.0.0",
			"endpoints": fiber.Map{
				"health":         "/health",
				"api":            "/api",
				"webhook":        "/webhook/whatsapp",
				"twilio_webhook": "/webhook/twilio",
				"test_whatsapp":  "/test/whatsapp",
			},
		})
	})

	app.Get("/health", handlers.HealthCheck)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// Verification handshake
	webhooks.Get("/whatsapp", webhookHandler.VerifyWebhook)

	// WhatsApp webhook - ENVIRONMENT-AWARE VALIDATION
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: Skip validation for ngrok
		webhooks.Post("/whatsapp", webhookHandler.HandleWebhook)
		if os.Getenv("ENVIRONMENT") == "development" {
			println("⚠️  WhatsApp webhook validation DISABLED for development")
		}
	} else {
		// Production: Validate webhook signature
		webhooks.Post("/whatsapp", middleware.ValidateWebhookSignature(), webhookHandler.HandleWebhook)
	}

	// Twilio-provider channels
	webhooks.Post("/twilio", webhookHandler.HandleTwilioWebhook)

	// ========== TEST ROUTES (Development Only) ==========
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("ENABLE_TEST_WEBHOOK") == "true" {
		app.Post("/test/whatsapp", webhookHandler.HandleTestWebhook)
	}

	// ========== DASHBOARD API ==========
	api := app.Group("/api", middleware.RequireAuth())
	api.Get("/orders", orderHandler.ListOrders)
	api.Get("/orders/:orderID", orderHandler.GetOrder)
	api.Patch("/orders/:orderID/status", orderHandler.UpdateOrderStatus)
}
