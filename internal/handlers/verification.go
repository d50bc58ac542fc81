package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/phoneproof/internal/services"
)

// VerificationHandler handles the phone verification endpoints. All the
// lifecycle rules live in the service; this layer validates request shape
// and translates refusal reasons into HTTP status codes.
type VerificationHandler struct {
	service *services.VerificationService
}

// NewVerificationHandler creates a new verification handler
func NewVerificationHandler(service *services.VerificationService) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// StartVerification begins verification of a phone number for an account
func (h *VerificationHandler) StartVerification(c *fiber.Ctx) error {
	var req struct {
		UserID      uint   `json:"user_id"`
		PhoneNumber string `json:"phone_number"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid request body",
		})
	}
	if req.UserID == 0 || req.PhoneNumber == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "user_id and phone_number are required",
		})
	}

	result, err := h.service.StartVerification(req.UserID, req.PhoneNumber)
	if err != nil {
		log.Printf("❌ Start verification failed for user %d: %v", req.UserID, err)
		return err
	}
	if !result.Success {
		return c.Status(statusForReason(result.Reason)).JSON(result)
	}
	return c.JSON(result)
}

// VerifyCode checks a submitted verification code
func (h *VerificationHandler) VerifyCode(c *fiber.Ctx) error {
	var req struct {
		UserID uint   `json:"user_id"`
		Code   string `json:"verification_code"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid request body",
		})
	}
	if req.UserID == 0 || req.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "user_id and verification_code are required",
		})
	}
	if len(req.Code) != 6 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "verification code must be 6 digits",
		})
	}

	result, err := h.service.VerifyCode(req.UserID, req.Code)
	if err != nil {
		if errors.Is(err, services.ErrUserUpdateFailed) {
			log.Printf("⚠️  Verification consumed but account update failed for user %d: %v", req.UserID, err)
		} else {
			log.Printf("❌ Code check failed for user %d: %v", req.UserID, err)
		}
		return err
	}
	if !result.Success {
		return c.Status(statusForReason(result.Reason)).JSON(result)
	}
	return c.JSON(result)
}

// ResendCode re-issues the code for the account's pending verification
func (h *VerificationHandler) ResendCode(c *fiber.Ctx) error {
	var req struct {
		UserID uint `json:"user_id"`
	}

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "invalid request body",
		})
	}
	if req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "user_id is required",
		})
	}

	result, err := h.service.ResendCode(req.UserID)
	if err != nil {
		log.Printf("❌ Resend failed for user %d: %v", req.UserID, err)
		return err
	}
	if !result.Success {
		return c.Status(statusForReason(result.Reason)).JSON(result)
	}
	return c.JSON(result)
}

func statusForReason(reason services.FailureReason) int {
	switch reason {
	case services.ReasonAccountNotFound,
		services.ReasonNoVerification,
		services.ReasonNoPendingVerification:
		return fiber.StatusNotFound
	case services.ReasonAlreadyVerified,
		services.ReasonCodeAlreadyUsed:
		return fiber.StatusConflict
	case services.ReasonCooldownActive:
		return fiber.StatusTooManyRequests
	case services.ReasonDeliveryFailed:
		return fiber.StatusBadGateway
	default:
		// invalid phone, invalid code, expired code, expired verification
		return fiber.StatusBadRequest
	}
}
