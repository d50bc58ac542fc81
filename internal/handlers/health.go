package handlers

import (
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/phoneproof/internal/storage"
)

// HealthHandler reports service and dependency status
type HealthHandler struct {
	store      storage.Store
	senderMode string
	startedAt  time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store storage.Store, senderMode string) *HealthHandler {
	return &HealthHandler{
		store:      store,
		senderMode: senderMode,
		startedAt:  time.Now(),
	}
}

// Root serves the service banner with storage counts
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	response := fiber.Map{
		"service":  "PhoneProof Backend API",
		"version":  "1.0.0",
		"status":   "healthy",
		"storage":  storageType(),
		"delivery": h.senderMode,
		"uptime":   time.Since(h.startedAt).Round(time.Second).String(),
	}

	users, uerr := h.store.CountUsers()
	verifications, verr := h.store.CountVerifications()
	if uerr == nil && verr == nil {
		response["counts"] = fiber.Map{
			"users":         users,
			"verifications": verifications,
		}
	}

	return c.JSON(response)
}

// Health is the monitoring endpoint: 200 while storage answers, 503 otherwise
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	status := "healthy"
	statusCode := fiber.StatusOK

	storageHealthy := true
	if _, err := h.store.CountUsers(); err != nil {
		status = "unhealthy"
		statusCode = fiber.StatusServiceUnavailable
		storageHealthy = false
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status": status,
		"services": fiber.Map{
			"storage":  storageHealthy,
			"delivery": h.senderMode,
		},
	})
}

func storageType() string {
	if os.Getenv("USE_MEMORY_STORE") == "true" {
		return "In-Memory (Testing)"
	}
	return "PostgreSQL Database"
}
