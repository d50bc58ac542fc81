package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/gofiber/fiber/v2"
)

// ValidateTwilioSignature validates that a webhook request is from Twilio.
// Twilio signs the full request URL plus the sorted form parameters with the
// account's auth token (HMAC-SHA1, base64).
func ValidateTwilioSignature() fiber.Handler {
	return func(c *fiber.Ctx) error {
		twilioSignature := c.Get("X-Twilio-Signature")
		if twilioSignature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Twilio signature",
			})
		}

		authToken := os.Getenv("TWILIO_AUTH_TOKEN")
		if authToken == "" {
			// Log the misconfiguration but don't expose it to the caller
			log.Println("ERROR: TWILIO_AUTH_TOKEN not set, cannot validate webhook signatures")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Server configuration error",
			})
		}

		fullURL := getFullURL(c)

		formParams := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			formParams[string(key)] = string(value)
		})

		expectedSignature := calculateTwilioSignature(authToken, fullURL, formParams)

		if !hmac.Equal([]byte(twilioSignature), []byte(expectedSignature)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}

// getFullURL reconstructs the URL Twilio signed, query string included.
// Behind a proxy the original scheme is what matters, which is why this
// prefers https.
func getFullURL(c *fiber.Ctx) string {
	protocol := "https"
	if c.Protocol() == "http" {
		protocol = "http"
	}

	return fmt.Sprintf("%s://%s%s", protocol, c.Hostname(), c.OriginalURL())
}

// calculateTwilioSignature calculates the expected signature: the URL
// concatenated with each form parameter key+value in key order, HMAC-SHA1
// under the auth token, base64 encoded.
func calculateTwilioSignature(authToken, url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := url
	for _, k := range keys {
		data += k + params[k]
	}

	h := hmac.New(sha1.New, []byte(authToken))
	h.Write([]byte(data))

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
