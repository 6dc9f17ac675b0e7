package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-triage/internal/api/http/handlers"
	"github.com/spec-kit/ticket-triage/internal/events"
	"github.com/spec-kit/ticket-triage/internal/observability"
	"github.com/spec-kit/ticket-triage/internal/persistence"
	"github.com/spec-kit/ticket-triage/internal/repository"
	"github.com/spec-kit/ticket-triage/internal/service"
	"github.com/spec-kit/ticket-triage/internal/triage"
)

func newTestApp() *fiber.App {
	return newTestAppWithLogger(zap.NewNop())
}

func newTestAppWithLogger(logger *zap.Logger) *fiber.App {
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: repository.NewMemoryRepository(),
		Classifier: triage.NewClassifier(triage.DefaultLexicon()),
		Dispatcher: events.NewInMemoryDispatcher(),
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, observability.NewMetrics(), 0)
	RegisterRoutes(app, RouteConfig{
		Health:  handlers.NewHealthHandler("test", "test", &persistence.Postgres{}, &persistence.Redis{}),
		Tickets: handlers.NewTicketsHandler(ticketService),
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var decoded map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			t.Fatalf("decode response %s: %v", raw, err)
		}
	}
	return resp, decoded
}

func doJSONList(t *testing.T, app *fiber.App, path string) []map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s: status %d", path, resp.StatusCode)
	}
	var decoded []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return decoded
}

func errorCode(t *testing.T, body map[string]any) string {
	t.Helper()
	envelope, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := envelope["code"].(string)
	return code
}

func TestClassifyEndpoint(t *testing.T) {
	app := newTestApp()

	t.Run("empty description returns nulls", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/tickets/classify/", map[string]string{"description": ""})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}
		if body["suggested_category"] != nil || body["suggested_priority"] != nil {
			t.Fatalf("expected nulls, got %v", body)
		}
	})

	t.Run("billing description returns a suggestion", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/tickets/classify/", map[string]string{
			"description": "My invoice was charged twice, please refund",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status %d", resp.StatusCode)
		}
		if body["suggested_category"] != "billing" {
			t.Fatalf("expected billing, got %v", body["suggested_category"])
		}
		if body["suggested_priority"] != "high" {
			t.Fatalf("expected high, got %v", body["suggested_priority"])
		}
	})
}

func TestCreateAndListEndpoints(t *testing.T) {
	app := newTestApp()

	t.Run("create forces open status", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPost, "/api/tickets/", map[string]string{
			"title":       "Wrong invoice total",
			"description": "The March invoice total is wrong",
			"category":    "billing",
			"priority":    "medium",
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status %d: %v", resp.StatusCode, body)
		}
		if body["status"] != "open" {
			t.Fatalf("expected open, got %v", body["status"])
		}
		if body["id"] == "" || body["created_at"] == nil {
			t.Fatalf("expected id and created_at, got %v", body)
		}
	})

	t.Run("create rejects missing fields and bad enums", func(t *testing.T) {
		cases := []map[string]string{
			{"description": "d", "category": "billing", "priority": "low"},
			{"title": "t", "category": "billing", "priority": "low"},
			{"title": "t", "description": "d", "category": "shipping", "priority": "low"},
			{"title": "t", "description": "d", "category": "billing", "priority": "urgent"},
		}
		for i, payload := range cases {
			resp, body := doJSON(t, app, http.MethodPost, "/api/tickets/", payload)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("case %d: status %d", i, resp.StatusCode)
			}
			if code := errorCode(t, body); code != "VALIDATION_FAILED" {
				t.Fatalf("case %d: expected VALIDATION_FAILED, got %s", i, code)
			}
		}
	})

	t.Run("list filters by query params", func(t *testing.T) {
		doJSON(t, app, http.MethodPost, "/api/tickets/", map[string]string{
			"title": "Cannot Login", "description": "password rejected", "category": "account", "priority": "high",
		})

		billing := doJSONList(t, app, "/api/tickets/?category=billing")
		for _, item := range billing {
			if item["category"] != "billing" {
				t.Fatalf("category filter leaked %v", item)
			}
		}

		for _, term := range []string{"login", "LOGIN"} {
			found := doJSONList(t, app, "/api/tickets/?search="+term)
			if len(found) != 1 || found[0]["title"] != "Cannot Login" {
				t.Fatalf("search %q: got %v", term, found)
			}
		}
	})

	t.Run("list rejects unknown enum values", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tickets/?status=reopened", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status %d", resp.StatusCode)
		}
	})
}

func TestTriageScenario(t *testing.T) {
	app := newTestApp()

	// Classify a draft description, create the ticket with the
	// suggestion, then walk it through the full lifecycle.
	_, classification := doJSON(t, app, http.MethodPost, "/api/tickets/classify/", map[string]string{
		"description": "My invoice was charged twice, please refund",
	})
	category, _ := classification["suggested_category"].(string)
	priority, _ := classification["suggested_priority"].(string)
	if category != "billing" {
		t.Fatalf("expected billing suggestion, got %v", classification)
	}

	_, baseline := doJSON(t, app, http.MethodGet, "/api/tickets/stats/", nil)

	resp, created := doJSON(t, app, http.MethodPost, "/api/tickets/", map[string]string{
		"title":       "Double charge",
		"description": "My invoice was charged twice, please refund",
		"category":    category,
		"priority":    priority,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("missing id in %v", created)
	}

	listed := doJSONList(t, app, "/api/tickets/?category=billing")
	found := false
	for _, item := range listed {
		if item["id"] == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("created ticket missing from billing list: %v", listed)
	}

	_, stats := doJSON(t, app, http.MethodGet, "/api/tickets/stats/", nil)
	if stats["open_tickets"].(float64) != baseline["open_tickets"].(float64)+1 {
		t.Fatalf("open_tickets did not increment: %v -> %v", baseline, stats)
	}
	baselineBilling := baseline["category_breakdown"].(map[string]any)["billing"].(float64)
	currentBilling := stats["category_breakdown"].(map[string]any)["billing"].(float64)
	if currentBilling != baselineBilling+1 {
		t.Fatalf("billing breakdown did not increment: %v -> %v", baselineBilling, currentBilling)
	}

	for _, next := range []string{"in_progress", "resolved", "closed"} {
		resp, body := doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/tickets/%s/", id), map[string]string{"status": next})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("transition to %s: status %d (%v)", next, resp.StatusCode, body)
		}
		if body["status"] != next {
			t.Fatalf("expected %s, got %v", next, body["status"])
		}
	}

	resp, body := doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/tickets/%s/", id), map[string]string{"status": "open"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("closed->open: status %d", resp.StatusCode)
	}
	if code := errorCode(t, body); code != "INVALID_TRANSITION" {
		t.Fatalf("expected INVALID_TRANSITION, got %s", code)
	}
}

func TestUpdateStatusEndpointErrors(t *testing.T) {
	app := newTestApp()

	t.Run("unknown id returns 404", func(t *testing.T) {
		resp, body := doJSON(t, app, http.MethodPatch, "/api/tickets/does-not-exist/", map[string]string{"status": "in_progress"})
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("status %d", resp.StatusCode)
		}
		if code := errorCode(t, body); code != "NOT_FOUND" {
			t.Fatalf("expected NOT_FOUND, got %s", code)
		}
	})

	t.Run("unknown status label returns 400", func(t *testing.T) {
		_, created := doJSON(t, app, http.MethodPost, "/api/tickets/", map[string]string{
			"title": "t", "description": "d", "category": "general", "priority": "low",
		})
		id, _ := created["id"].(string)
		resp, body := doJSON(t, app, http.MethodPatch, fmt.Sprintf("/api/tickets/%s/", id), map[string]string{"status": "reopened"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("status %d", resp.StatusCode)
		}
		if code := errorCode(t, body); code != "VALIDATION_FAILED" {
			t.Fatalf("expected VALIDATION_FAILED, got %s", code)
		}
	})
}

func TestRequestLoggingRecordsErrorStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	app := newTestAppWithLogger(zap.New(core))

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/tickets/does-not-exist/", map[string]string{"status": "in_progress"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}

	logged := false
	for _, entry := range logs.All() {
		if entry.Message != "request" {
			continue
		}
		logged = true
		fields := entry.ContextMap()
		if status, ok := fields["status"].(int64); !ok || status != http.StatusNotFound {
			t.Fatalf("request logged with status %v, want %d", fields["status"], http.StatusNotFound)
		}
	}
	if !logged {
		t.Fatal("expected a request log entry")
	}
}

func TestHealthLive(t *testing.T) {
	app := newTestApp()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}
