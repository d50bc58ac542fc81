package middleware

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func newProtectedApp() *fiber.App {
	app := fiber.New()
	app.Post("/webhook/twilio/status", ValidateTwilioSignature(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

// signForm computes the signature Twilio sends: the full URL concatenated
// with each form parameter key+value in key order, HMAC-SHA1 under the auth
// token, base64. Kept independent of the middleware so a drift in either
// side fails the tests.
func signForm(authToken, fullURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := fullURL
	for _, k := range keys {
		data += k + form.Get(k)
	}

	h := hmac.New(sha1.New, []byte(authToken))
	h.Write([]byte(data))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func postSigned(t *testing.T, app *fiber.App, target, signature string, form url.Values) int {
	t.Helper()
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestValidateTwilioSignature(t *testing.T) {
	t.Setenv("TWILIO_AUTH_TOKEN", "test-auth-token")
	app := newProtectedApp()

	form := url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"delivered"},
		"To":            {"+15551234567"},
	}

	// app.Test requests arrive as http://example.com
	sig := signForm("test-auth-token", "http://example.com/webhook/twilio/status", form)
	if status := postSigned(t, app, "/webhook/twilio/status", sig, form); status != fiber.StatusOK {
		t.Errorf("valid signature: status = %d, want %d", status, fiber.StatusOK)
	}

	if status := postSigned(t, app, "/webhook/twilio/status", "tampered"+sig, form); status != fiber.StatusUnauthorized {
		t.Errorf("bad signature: status = %d, want %d", status, fiber.StatusUnauthorized)
	}

	if status := postSigned(t, app, "/webhook/twilio/status", "", form); status != fiber.StatusUnauthorized {
		t.Errorf("missing signature: status = %d, want %d", status, fiber.StatusUnauthorized)
	}

	// Same signature over different form params must not validate
	altered := url.Values{
		"MessageSid":    {"SM123"},
		"MessageStatus": {"failed"},
		"To":            {"+15551234567"},
	}
	if status := postSigned(t, app, "/webhook/twilio/status", sig, altered); status != fiber.StatusUnauthorized {
		t.Errorf("altered params: status = %d, want %d", status, fiber.StatusUnauthorized)
	}
}

func TestValidateTwilioSignatureCoversQuery(t *testing.T) {
	t.Setenv("TWILIO_AUTH_TOKEN", "test-auth-token")
	app := newProtectedApp()

	form := url.Values{"MessageSid": {"SM123"}, "MessageStatus": {"delivered"}}
	target := "/webhook/twilio/status?source=sms"

	// Twilio signs the URL it was configured with, query string included
	sig := signForm("test-auth-token", "http://example.com"+target, form)
	if status := postSigned(t, app, target, sig, form); status != fiber.StatusOK {
		t.Errorf("signed with query: status = %d, want %d", status, fiber.StatusOK)
	}

	bare := signForm("test-auth-token", "http://example.com/webhook/twilio/status", form)
	if status := postSigned(t, app, target, bare, form); status != fiber.StatusUnauthorized {
		t.Errorf("signed without query: status = %d, want %d", status, fiber.StatusUnauthorized)
	}
}

func TestValidateTwilioSignatureUnconfigured(t *testing.T) {
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	app := newProtectedApp()

	form := url.Values{"MessageSid": {"SM123"}}
	sig := signForm("some-token", "http://example.com/webhook/twilio/status", form)
	if status := postSigned(t, app, "/webhook/twilio/status", sig, form); status != fiber.StatusInternalServerError {
		t.Errorf("missing auth token: status = %d, want %d", status, fiber.StatusInternalServerError)
	}
}
