package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/chatcart/chatcart-backend/database"
	"github.com/chatcart/chatcart-backend/internal/jobs"
	"github.com/chatcart/chatcart-backend/internal/models"
	"github.com/chatcart/chatcart-backend/internal/routes"
	"github.com/chatcart/chatcart-backend/internal/services"
	"github.com/chatcart/chatcart-backend/internal/storage"
)

func main() {
	// Load .env file for local development
	if os.Getenv("INSTANCE_CONNECTION_NAME") == "" {
		err := godotenv.Load(".env")
		if err != nil {
			err = godotenv.Load("environments/.env.development")
			if err != nil {
				log.Println("⚠️  No .env file found - checking environment variables")
			}
		}
	}

	// Initialize storage
	var store storage.Store

	if os.Getenv("USE_MEMORY_STORE") == "true" {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		log.Println("📦 Connecting to PostgreSQL database...")
		database.Connect()

		log.Println("🔄 Running database migrations...")
		err := database.DB.AutoMigrate(
			&models.Business{},
			&models.Customer{},
			&models.Product{},
			&models.ChatSession{},
			&models.Order{},
			&models.Flow{},
			&models.OrderBotConfig{},
			&models.Message{},
			&models.SupportTicket{},
		)
		if err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("✅ Database migrations completed!")

		store = storage.NewDatabaseStore(database.DB)
		log.Println("✅ Using PostgreSQL database storage")
	}

	// Outbound gateways. Cloud API credentials live on each business row, so
	// the cloud gateway always comes up. Twilio is an account-level fallback
	// and only loads when its env credentials are present.
	cloudGateway := services.NewCloudGateway()

	var twilioGateway services.Gateway
	tw, err := services.NewTwilioGateway()
	if err != nil {
		log.Printf("⚠️  Twilio gateway not configured: %v", err)
	} else {
		twilioGateway = tw
		log.Println("✅ Twilio gateway initialized")
	}

	gateway := services.NewProviderGateway(cloudGateway, twilioGateway)
	messenger := services.NewMessenger(store, gateway)

	// Initialize all services
	sessionManager := services.NewSessionManager(store)
	resolver := services.NewBusinessResolver(store)
	commerceService := services.NewCommerceService(store, messenger)
	flowService := services.NewFlowService(store, messenger, commerceService)
	bot := services.NewBotService(store, messenger, sessionManager, resolver, flowService, commerceService)

	// Initialize and start scheduled jobs
	reminderJob := jobs.NewReminderJob(store, messenger)
	reminderJob.Start()

	log.Println("✅ All services initialized and scheduled jobs started")

	// Create fiber app
	app := fiber.New(fiber.Config{
		AppName: "ChatCart Backend v1.0.0",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	// Setup routes
	routes.SetupRoutes(app, store, bot)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("\n🛑 Gracefully shutting down...")
		log.Println("⏹️  Stopping reminder jobs...")
		reminderJob.Stop()
		log.Println("⏹️  Shutting down server...")
		_ = app.Shutdown()
	}()

	// Start server
	log.Println("========================================")
	log.Printf("🚀 ChatCart Backend starting on port %s", port)
	log.Printf("📊 Storage: %s", getStorageType())
	log.Printf("🌍 Environment: %s", getEnvironment())
	log.Printf("📱 Twilio fallback: %s", getTwilioStatus(twilioGateway))
	log.Println("========================================")

	log.Println("🔧 Active Services:")
	log.Println("  ✓ Webhook ingestion & idempotent processing")
	log.Println("  ✓ Session management")
	log.Println("  ✓ Catalog, cart & checkout")
	log.Println("  ✓ Configurable flows")
	log.Println("  ✓ Abandoned cart reminders")
	log.Println("========================================")

	log.Fatal(app.Listen(":" + port))
}

func getEnvironment() string {
	if os.Getenv("INSTANCE_CONNECTION_NAME") != "" {
		return "Production (Cloud Run)"
	}
	return "Development (Local)"
}

func getStorageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}

func getTwilioStatus(g services.Gateway) string {
	if g == nil {
		return "Not configured"
	}
	return "Configured"
}
