package allowance

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// asCaller injects the authenticated party the way the JWT middleware does.
func asCaller(id string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user_id", id)
		return c.Next()
	}
}

func setupHandlerApp(t *testing.T, caller string) (*fiber.App, Ledger) {
	t.Helper()
	led := NewInMemory()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	SetClock(led, func() time.Time { return now })

	h := NewHandler(NewService(led, nil, 0))
	app := fiber.New()
	app.Use(asCaller(caller))
	app.Post("/allowances", h.Approve)
	app.Post("/allowances/:owner/spend", h.Spend)
	app.Post("/allowances/:spender/decrease", h.Decrease)
	app.Get("/allowances/:owner/:spender", h.Get)
	return app, led
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var decoded map[string]any
	if len(payload) > 0 {
		_ = json.Unmarshal(payload, &decoded)
	}
	return resp.StatusCode, decoded
}

func TestHandlerApproveAndGet(t *testing.T) {
	owner := uuid.NewString()
	spender := uuid.NewString()
	app, _ := setupHandlerApp(t, owner)

	status, body := doJSON(t, app, fiber.MethodPost, "/allowances",
		`{"spender":"`+spender+`","amount":"250","period_seconds":86400}`)
	if status != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d (%v)", status, body)
	}
	if body["amount"] != "250" || body["owner"] != owner {
		t.Fatalf("unexpected approve response: %v", body)
	}

	status, body = doJSON(t, app, fiber.MethodGet, "/allowances/"+owner+"/"+spender, "")
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["amount"] != "250" || body["unlimited"] != false {
		t.Fatalf("unexpected get response: %v", body)
	}
}

func TestHandlerSpendAsSpender(t *testing.T) {
	owner := uuid.NewString()
	spender := uuid.NewString()
	app, led := setupHandlerApp(t, spender)

	SeedEntry(led, Entry{
		Owner:     owner,
		Spender:   spender,
		Amount:    uint256.NewInt(100),
		ExpiresAt: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	})

	status, body := doJSON(t, app, fiber.MethodPost, "/allowances/"+owner+"/spend", `{"amount":"40"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", status, body)
	}
	if body["amount"] != "60" {
		t.Fatalf("expected remaining 60, got %v", body["amount"])
	}

	// A second spend beyond the remainder conflicts with ledger state.
	status, _ = doJSON(t, app, fiber.MethodPost, "/allowances/"+owner+"/spend", `{"amount":"61"}`)
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
}

func TestHandlerRejectsBadAmount(t *testing.T) {
	owner := uuid.NewString()
	app, _ := setupHandlerApp(t, owner)

	status, _ := doJSON(t, app, fiber.MethodPost, "/allowances",
		`{"spender":"`+uuid.NewString()+`","amount":"not-a-number"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestHandlerDecreaseUnderflow(t *testing.T) {
	owner := uuid.NewString()
	spender := uuid.NewString()
	app, led := setupHandlerApp(t, owner)

	SeedEntry(led, Entry{
		Owner:     owner,
		Spender:   spender,
		Amount:    uint256.NewInt(10),
		ExpiresAt: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	})

	status, _ := doJSON(t, app, fiber.MethodPost, "/allowances/"+spender+"/decrease", `{"delta":"11"}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}
