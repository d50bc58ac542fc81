package handlers

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestCreateUserEndpoint(t *testing.T) {
	app, _, _ := newMemoryApp(t)

	status, body := jsonRequest(t, app, "POST", "/api/users", fiber.Map{
		"email":      "maya@example.com",
		"first_name": "Maya",
	})
	if status != fiber.StatusCreated {
		t.Fatalf("status = %d, want %d (%v)", status, fiber.StatusCreated, body)
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "maya@example.com" || user["first_name"] != "Maya" {
		t.Errorf("user = %v", user)
	}
	if verified, _ := user["phone_verified"].(bool); verified {
		t.Error("new accounts must start unverified")
	}
	if user["phone_number"] != nil {
		t.Errorf("phone_number = %v, want null", user["phone_number"])
	}

	status, body = jsonRequest(t, app, "POST", "/api/users", fiber.Map{
		"email":      "maya@example.com",
		"first_name": "Other",
	})
	if status != fiber.StatusConflict {
		t.Errorf("duplicate email status = %d, want %d (%v)", status, fiber.StatusConflict, body)
	}
}

func TestCreateUserEndpointValidation(t *testing.T) {
	app, _, _ := newMemoryApp(t)

	cases := []struct {
		name string
		body fiber.Map
	}{
		{"missing first name", fiber.Map{"email": "a@example.com"}},
		{"missing email", fiber.Map{"first_name": "Maya"}},
		{"malformed email", fiber.Map{"email": "not-an-email", "first_name": "Maya"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := jsonRequest(t, app, "POST", "/api/users", tc.body)
			if status != fiber.StatusBadRequest {
				t.Errorf("status = %d, want %d (%v)", status, fiber.StatusBadRequest, body)
			}
		})
	}

	req := httptest.NewRequest("POST", "/api/users", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("malformed body status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
	}
}

func TestGetUserEndpoints(t *testing.T) {
	app, store, _ := newMemoryApp(t)
	user := seedUser(t, store, "maya@example.com")

	status, body := jsonRequest(t, app, "GET", fmt.Sprintf("/api/users/%d", user.ID), nil)
	if status != fiber.StatusOK || body["email"] != "maya@example.com" {
		t.Errorf("get by id = %d %v", status, body)
	}

	status, body = jsonRequest(t, app, "GET", "/api/users/999", nil)
	if status != fiber.StatusNotFound {
		t.Errorf("unknown id status = %d, want %d (%v)", status, fiber.StatusNotFound, body)
	}

	status, body = jsonRequest(t, app, "GET", "/api/users/abc", nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("bad id status = %d, want %d (%v)", status, fiber.StatusBadRequest, body)
	}

	status, body = jsonRequest(t, app, "GET", "/api/users/by-email?email=maya@example.com", nil)
	if status != fiber.StatusOK || body["email"] != "maya@example.com" {
		t.Errorf("get by email = %d %v", status, body)
	}

	status, body = jsonRequest(t, app, "GET", "/api/users/by-email?email=nobody@example.com", nil)
	if status != fiber.StatusNotFound {
		t.Errorf("unknown email status = %d, want %d (%v)", status, fiber.StatusNotFound, body)
	}

	status, body = jsonRequest(t, app, "GET", "/api/users/by-email", nil)
	if status != fiber.StatusBadRequest {
		t.Errorf("missing email status = %d, want %d (%v)", status, fiber.StatusBadRequest, body)
	}
}

func TestUpdateUserEndpoint(t *testing.T) {
	app, store, _ := newMemoryApp(t)
	user := seedUser(t, store, "maya@example.com")
	path := fmt.Sprintf("/api/users/%d", user.ID)

	// Absent fields stay untouched
	status, body := jsonRequest(t, app, "PUT", path, fiber.Map{"first_name": "Mia"})
	if status != fiber.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}
	updated, _ := body["user"].(map[string]any)
	if updated["first_name"] != "Mia" || updated["email"] != "maya@example.com" {
		t.Errorf("user = %v", updated)
	}

	// Phone numbers are normalized on the way in
	status, body = jsonRequest(t, app, "PUT", path, fiber.Map{"phone_number": "555-123-4567"})
	if status != fiber.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}
	updated, _ = body["user"].(map[string]any)
	if updated["phone_number"] != "+15551234567" {
		t.Errorf("phone_number = %v, want normalized", updated["phone_number"])
	}
	if verified, _ := updated["phone_verified"].(bool); verified {
		t.Error("setting a number must not mark it verified")
	}

	status, body = jsonRequest(t, app, "PUT", path, fiber.Map{"phone_verified": true})
	if status != fiber.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}
	updated, _ = body["user"].(map[string]any)
	if verified, _ := updated["phone_verified"].(bool); !verified {
		t.Errorf("user = %v, want phone_verified", updated)
	}

	// Clearing the number drops the verified flag with it
	status, body = jsonRequest(t, app, "PUT", path, fiber.Map{"phone_number": ""})
	if status != fiber.StatusOK {
		t.Fatalf("status = %d (%v)", status, body)
	}
	stored, err := store.GetUser(user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if stored.Phone != nil || stored.Verified {
		t.Errorf("stored user = %+v, want cleared phone and flag", stored)
	}

	status, body = jsonRequest(t, app, "PUT", path, fiber.Map{"phone_number": "garbage"})
	if status != fiber.StatusBadRequest {
		t.Errorf("bad phone status = %d, want %d (%v)", status, fiber.StatusBadRequest, body)
	}

	status, body = jsonRequest(t, app, "PUT", "/api/users/999", fiber.Map{"first_name": "X"})
	if status != fiber.StatusNotFound {
		t.Errorf("unknown id status = %d, want %d (%v)", status, fiber.StatusNotFound, body)
	}

	seedUser(t, store, "taken@example.com")
	status, body = jsonRequest(t, app, "PUT", path, fiber.Map{"email": "taken@example.com"})
	if status != fiber.StatusConflict {
		t.Errorf("duplicate email status = %d, want %d (%v)", status, fiber.StatusConflict, body)
	}
}
