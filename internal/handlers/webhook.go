package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"
)

// TwilioStatusWebhook receives delivery status callbacks for outbound SMS.
// Twilio retries on non-2xx responses, so this always acknowledges; delivery
// problems only need to show up in the logs.
func TwilioStatusWebhook(c *fiber.Ctx) error {
	sid := c.FormValue("MessageSid")
	status := c.FormValue("MessageStatus")
	to := c.FormValue("To")

	if errCode := c.FormValue("ErrorCode"); errCode != "" {
		log.Printf("⚠️  SMS %s to %s: %s (error %s)", sid, to, status, errCode)
	} else {
		log.Printf("📬 SMS %s to %s: %s", sid, to, status)
	}

	return c.SendStatus(fiber.StatusOK)
}
