package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/task-slot-service/internal/api/http"
	"github.com/spec-kit/task-slot-service/internal/api/http/handlers"
	"github.com/spec-kit/task-slot-service/internal/auth"
	"github.com/spec-kit/task-slot-service/internal/config"
	"github.com/spec-kit/task-slot-service/internal/observability"
	"github.com/spec-kit/task-slot-service/internal/repository"
	"github.com/spec-kit/task-slot-service/internal/service"
)

type testApp struct {
	app            *fiber.App
	metrics        *observability.Metrics
	requesterToken string
	certifierToken string
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemStore()
	logger := zap.NewNop()

	cfg := config.Config{
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 5,
			BcryptCost:            4,
		},
		Slots: config.SlotsConfig{
			Region1Capacity: 25,
			Region2Capacity: 15,
		},
	}

	authService := service.NewAuthService(cfg, store)
	taskService := service.NewTaskService(cfg.Slots, service.TaskDependencies{Store: store})
	slotService := service.NewSlotService(cfg.Slots, store, nil, nil, logger)

	if err := slotService.EnsureRegions(ctx); err != nil {
		t.Fatalf("ensure regions: %v", err)
	}
	if _, _, err := authService.RegisterRequester(ctx, "alice", "pw", 1, "hq"); err != nil {
		t.Fatalf("register requester: %v", err)
	}
	if err := authService.EnsureSeedCertifier(ctx, "carol", "pw"); err != nil {
		t.Fatalf("seed certifier: %v", err)
	}

	_, _, requesterToken, err := authService.Login(ctx, "alice", "pw")
	if err != nil {
		t.Fatalf("requester login: %v", err)
	}
	_, _, certifierToken, err := authService.Login(ctx, "carol", "pw")
	if err != nil {
		t.Fatalf("certifier login: %v", err)
	}

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, 0)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler("test", "test", nil, nil),
		Users:          handlers.NewUsersHandler(authService),
		Tasks:          handlers.NewTasksHandler(taskService),
		CertifierTasks: handlers.NewCertifierTasksHandler(taskService),
		Slots:          handlers.NewSlotsHandler(slotService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), store),
	})

	return &testApp{app: app, metrics: metrics, requesterToken: requesterToken, certifierToken: certifierToken}
}

func (a *testApp) request(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}

	var payload map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &payload)
	}
	return resp, payload
}

func TestSlotsGet_ReturnsSlotsLeft(t *testing.T) {
	a := newTestApp(t)

	resp, payload := a.request(t, http.MethodGet, "/slots/1/get", a.requesterToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if got := payload["slots_left"]; got != float64(25) {
		t.Fatalf("slots_left = %v, want 25", got)
	}
}

func TestSlotsGet_RequiresAuth(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.request(t, http.MethodGet, "/slots/1/get", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestSlotsGet_UnknownRegion(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.request(t, http.MethodGet, "/slots/99/get", a.requesterToken, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if got := a.metrics.ErrorCount("/slots/99/get", http.MethodGet, "NOT_FOUND"); got != 1 {
		t.Fatalf("error counter = %d, want 1", got)
	}
}

func TestSlotsDescribe_IncludesLedgerRow(t *testing.T) {
	a := newTestApp(t)

	resp, payload := a.request(t, http.MethodGet, "/slots/2", a.certifierToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, ok := payload["data"].(map[string]any)
	if !ok {
		t.Fatalf("payload = %v", payload)
	}
	if data["region"] != float64(2) || data["slots_left"] != float64(15) || data["capacity"] != float64(15) {
		t.Fatalf("data = %v", data)
	}
	if data["last_updated"] == nil {
		t.Fatal("last_updated missing")
	}
}

func TestSlotsAdjust_CertifierOnly(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.request(t, http.MethodPost, "/slots/1/decrement", a.requesterToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("requester adjust status = %d, want 403", resp.StatusCode)
	}

	resp, payload := a.request(t, http.MethodPost, "/slots/1/decrement", a.certifierToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("certifier adjust status = %d, want 200", resp.StatusCode)
	}
	if got := payload["slots_left"]; got != float64(24) {
		t.Fatalf("slots_left = %v, want 24", got)
	}

	resp, payload = a.request(t, http.MethodPost, "/slots/1/increment", a.certifierToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("increment status = %d, want 200", resp.StatusCode)
	}
	if got := payload["slots_left"]; got != float64(25) {
		t.Fatalf("slots_left = %v, want 25", got)
	}
}

func TestSlotsAdjust_UnknownActionRejected(t *testing.T) {
	a := newTestApp(t)

	resp, _ := a.request(t, http.MethodPost, "/slots/1/reset", a.certifierToken, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestSlotsAdjust_OverflowSurfaces409(t *testing.T) {
	a := newTestApp(t)

	resp, payload := a.request(t, http.MethodPost, "/slots/1/increment", a.certifierToken, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (payload %v)", resp.StatusCode, payload)
	}
}

func TestSlotsGet_TracksTaskLifecycle(t *testing.T) {
	a := newTestApp(t)

	resp, payload := a.request(t, http.MethodPost, "/tasks/", a.requesterToken, map[string]any{
		"task_name": "install switch",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit status = %d (payload %v)", resp.StatusCode, payload)
	}
	data := payload["data"].(map[string]any)
	if data["slots_left"] != float64(24) {
		t.Fatalf("submit slots_left = %v, want 24", data["slots_left"])
	}
	taskID := data["task"].(map[string]any)["id"].(string)

	resp, payload = a.request(t, http.MethodPost, fmt.Sprintf("/tasks/%s/reject", taskID), a.certifierToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reject status = %d (payload %v)", resp.StatusCode, payload)
	}

	resp, payload = a.request(t, http.MethodGet, "/slots/1/get", a.requesterToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}
	if payload["slots_left"] != float64(25) {
		t.Fatalf("slots_left after reject = %v, want 25", payload["slots_left"])
	}
}
