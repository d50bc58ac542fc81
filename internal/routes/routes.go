package routes

import (
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/example/phoneproof/internal/handlers"
	"github.com/example/phoneproof/internal/middleware"
	"github.com/example/phoneproof/internal/services"
	"github.com/example/phoneproof/internal/storage"
)

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, store storage.Store, verificationService *services.VerificationService) {
	healthHandler := handlers.NewHealthHandler(store, verificationService.Sender().Mode())
	userHandler := handlers.NewUserHandler(store)
	verificationHandler := handlers.NewVerificationHandler(verificationService)

	// Root and health endpoints
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.Health)

	// API routes
	api := app.Group("/api")

	// User routes
	users := api.Group("/users")
	users.Post("/", userHandler.CreateUser)
	users.Get("/by-email", userHandler.GetUserByEmail)
	users.Get("/:id", userHandler.GetUser)
	users.Put("/:id", userHandler.UpdateUser)

	// Verification routes. The per-IP limiter sits above the per-account
	// cooldowns the service enforces; it only catches outright flooding.
	verifications := api.Group("/verifications")
	if os.Getenv("DISABLE_RATE_LIMIT") != "true" {
		verifications.Use(limiter.New(limiter.Config{
			Max:        30,
			Expiration: 1 * time.Minute,
		}))
	}
	verifications.Post("/start", verificationHandler.StartVerification)
	verifications.Post("/check", verificationHandler.VerifyCode)
	verifications.Post("/resend", verificationHandler.ResendCode)

	// ========== WEBHOOK ROUTES ==========
	webhooks := app.Group("/webhook")

	// Delivery status webhook - ENVIRONMENT-AWARE VALIDATION
	if os.Getenv("ENVIRONMENT") == "development" || os.Getenv("DISABLE_WEBHOOK_VALIDATION") == "true" {
		// Development: skip validation for ngrok
		webhooks.Post("/twilio/status", handlers.TwilioStatusWebhook)
		if os.Getenv("ENVIRONMENT") == "development" {
			log.Println("⚠️  Twilio webhook validation DISABLED for development")
		}
	} else {
		webhooks.Post("/twilio/status", middleware.ValidateTwilioSignature(), handlers.TwilioStatusWebhook)
	}
}
