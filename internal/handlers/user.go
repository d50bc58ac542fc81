package handlers

import (
	"errors"
	"log"
	"regexp"

	"github.com/gofiber/fiber/v2"

	"github.com/example/phoneproof/internal/models"
	"github.com/example/phoneproof/internal/storage"
	"github.com/example/phoneproof/internal/utils"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// UserHandler handles user account requests
type UserHandler struct {
	store storage.Store
}

// NewUserHandler creates a new user handler
func NewUserHandler(store storage.Store) *UserHandler {
	return &UserHandler{store: store}
}

// CreateUser handles account creation
func (h *UserHandler) CreateUser(c *fiber.Ctx) error {
	var req struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Basic validation
	if req.FirstName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "First name is required",
		})
	}
	if !emailPattern.MatchString(req.Email) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "A valid email is required",
		})
	}

	user, err := h.store.CreateUser(&models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
	})
	if errors.Is(err, storage.ErrDuplicateEmail) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Email already registered",
		})
	}
	if err != nil {
		log.Printf("❌ Failed to create user: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create user",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    user,
	})
}

// GetUser retrieves a user by ID
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	user, err := h.store.GetUser(uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err != nil {
		log.Printf("❌ Failed to load user %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load user",
		})
	}

	return c.JSON(user)
}

// GetUserByEmail retrieves a user by their (exact) email address
func (h *UserHandler) GetUserByEmail(c *fiber.Ctx) error {
	email := c.Query("email")
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Email query parameter is required",
		})
	}

	user, err := h.store.GetUserByEmail(email)
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err != nil {
		log.Printf("❌ Failed to load user by email: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load user",
		})
	}

	return c.JSON(user)
}

// UpdateUser applies a partial update. Absent fields stay untouched; an
// empty phone_number clears the stored number (and with it the verified
// flag, unless the request sets phone_verified itself).
func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var req struct {
		Email         *string `json:"email"`
		FirstName     *string `json:"first_name"`
		PhoneNumber   *string `json:"phone_number"`
		PhoneVerified *bool   `json:"phone_verified"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	user, err := h.store.GetUser(uint(id))
	if errors.Is(err, storage.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "User not found",
		})
	}
	if err != nil {
		log.Printf("❌ Failed to load user %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load user",
		})
	}

	if req.Email != nil {
		if !emailPattern.MatchString(*req.Email) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "A valid email is required",
			})
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		if *req.FirstName == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "First name cannot be empty",
			})
		}
		user.FirstName = *req.FirstName
	}
	if req.PhoneNumber != nil {
		if *req.PhoneNumber == "" {
			user.Phone = nil
			user.Verified = false
		} else {
			phone, err := utils.NormalizePhone(*req.PhoneNumber)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid phone number",
				})
			}
			user.Phone = &phone
		}
	}
	if req.PhoneVerified != nil {
		user.Verified = *req.PhoneVerified
	}

	if err := h.store.UpdateUser(user); err != nil {
		if errors.Is(err, storage.ErrDuplicateEmail) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Email already registered",
			})
		}
		log.Printf("❌ Failed to update user %d: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update user",
		})
	}

	return c.JSON(fiber.Map{
		"message": "User updated successfully",
		"user":    user,
	})
}
