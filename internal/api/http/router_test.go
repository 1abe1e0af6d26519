package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/complaint-service/internal/api/dto"
	"github.com/spec-kit/complaint-service/internal/api/http/handlers"
	"github.com/spec-kit/complaint-service/internal/auth"
	"github.com/spec-kit/complaint-service/internal/config"
	"github.com/spec-kit/complaint-service/internal/events"
	"github.com/spec-kit/complaint-service/internal/observability"
	"github.com/spec-kit/complaint-service/internal/repository"
	"github.com/spec-kit/complaint-service/internal/service"
	"github.com/spec-kit/complaint-service/internal/store"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	backend := store.NewMemoryBackend()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	logger := zap.NewNop()
	dispatcher := events.NewInMemoryDispatcher()

	userRepo := repository.NewUserRepository(backend)
	tokens := auth.NewTokenManager("test-secret", 60)
	authService := service.NewAuthService(config.AuthConfig{BcryptCost: bcrypt.MinCost, AccessTokenTTLMinutes: 60}, service.AuthDependencies{
		UserRepo:     userRepo,
		TokenManager: tokens,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: repository.NewComplaintRepository(backend),
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	validator := dto.NewValidator()

	app := NewApp("complaint-service-test", logger, metrics, 0)
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("complaint-service-test", "test", map[string]handlers.Pinger{"store": backend}),
		Users:           handlers.NewUsersHandler(authService, validator),
		Complaints:      handlers.NewComplaintsHandler(complaintService, validator),
		AdminComplaints: handlers.NewAdminComplaintsHandler(complaintService),
		AuthMiddleware:  auth.NewAuthMiddleware(auth.NewGuard(tokens, userRepo)),
		Gatherer:        registry,
	})
	return app
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func call(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp.StatusCode, env
}

func registerAndLogin(t *testing.T, app *fiber.App, username, email, role string) string {
	t.Helper()
	status, env := call(t, app, http.MethodPost, "/users/register", "", map[string]string{
		"username": username, "email": email, "password": "s3cret!", "role": role,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s: %d %+v", username, status, env.Error)
	}

	form := url.Values{"username": {username}, "password": {"s3cret!"}}
	req := httptest.NewRequest(http.MethodPost, "/users/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	status, env = do(t, app, req)
	if status != http.StatusOK {
		t.Fatalf("login %s: %d %+v", username, status, env.Error)
	}
	var auth dto.AuthResponse
	if err := json.Unmarshal(env.Data, &auth); err != nil {
		t.Fatalf("decode auth: %v", err)
	}
	if auth.TokenType != "bearer" || auth.AccessToken == "" {
		t.Fatalf("unexpected auth response %+v", auth)
	}
	return auth.AccessToken
}

func complaintBody(email string) map[string]any {
	return map[string]any{
		"title":       "Broken heater",
		"description": "It does not heat",
		"customer":    map[string]string{"name": "Alice", "email": email, "phone": "555-0100"},
	}
}

func decodeComplaint(t *testing.T, env envelope) dto.ComplaintResponse {
	t.Helper()
	var c dto.ComplaintResponse
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("decode complaint: %v", err)
	}
	return c
}

func TestComplaintLifecycleOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := registerAndLogin(t, app, "alice", "alice@example.com", "customer")
	bob := registerAndLogin(t, app, "bob", "bob@example.com", "customer")
	admin := registerAndLogin(t, app, "root", "admin@example.com", "admin")

	status, env := call(t, app, http.MethodPost, "/complaints", alice, complaintBody("alice@example.com"))
	if status != http.StatusCreated {
		t.Fatalf("create: %d %+v", status, env.Error)
	}
	created := decodeComplaint(t, env)
	if created.ID != 1 || created.Status != "open" || created.Comment != nil {
		t.Fatalf("unexpected complaint %+v", created)
	}
	id := strconv.Itoa(created.ID)

	status, env = call(t, app, http.MethodPost, "/complaints", alice, complaintBody("bob@example.com"))
	if status != http.StatusForbidden || env.Error.Code != "FORBIDDEN" {
		t.Fatalf("expected 403 for foreign email, got %d %+v", status, env.Error)
	}

	status, env = call(t, app, http.MethodPut, "/complaints/"+id, bob, map[string]string{"title": "x", "description": "y"})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner update, got %d", status)
	}
	status, _ = call(t, app, http.MethodDelete, "/complaints/"+id, bob, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404 for non-owner delete, got %d", status)
	}

	status, env = call(t, app, http.MethodGet, "/user/complaints?ticket="+id, alice, nil)
	if status != http.StatusOK {
		t.Fatalf("list: %d %+v", status, env.Error)
	}

	status, _ = call(t, app, http.MethodGet, "/complaints?ticket="+id+"&email=ALICE@example.com", "", nil)
	if status != http.StatusOK {
		t.Fatalf("public lookup: %d", status)
	}
	status, env = call(t, app, http.MethodGet, "/complaints?ticket="+id, "", nil)
	if status != http.StatusBadRequest || env.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected 400 without email, got %d %+v", status, env.Error)
	}

	status, _ = call(t, app, http.MethodPut, "/admin/complaints/"+id+"/resolve", alice, map[string]string{})
	if status != http.StatusForbidden {
		t.Fatalf("expected 403 for customer resolve, got %d", status)
	}
	status, env = call(t, app, http.MethodPut, "/admin/complaints/"+id+"/resolve", admin, map[string]string{"type": "closed", "comment": "fixed"})
	if status != http.StatusOK {
		t.Fatalf("resolve: %d %+v", status, env.Error)
	}
	resolved := decodeComplaint(t, env)
	if resolved.Status != "closed" || resolved.Comment == nil || *resolved.Comment != "fixed" {
		t.Fatalf("unexpected resolution %+v", resolved)
	}

	status, env = call(t, app, http.MethodPut, "/admin/complaints/"+id+"/resolve", admin, nil)
	if status != http.StatusConflict || env.Error.Code != "CONFLICT" {
		t.Fatalf("expected 409 on second resolve, got %d %+v", status, env.Error)
	}

	status, env = call(t, app, http.MethodGet, "/admin/complaints/search?status=CLOSED", admin, nil)
	if status != http.StatusOK {
		t.Fatalf("search: %d", status)
	}
	var found []dto.ComplaintResponse
	if err := json.Unmarshal(env.Data, &found); err != nil || len(found) != 1 {
		t.Fatalf("expected one closed complaint, got %s (%v)", env.Data, err)
	}

	status, _ = call(t, app, http.MethodDelete, "/admin/complaints/"+id, admin, nil)
	if status != http.StatusNoContent {
		t.Fatalf("admin delete: %d", status)
	}
	status, env = call(t, app, http.MethodGet, "/complaints/me", alice, nil)
	if status != http.StatusOK || string(env.Data) != "[]" {
		t.Fatalf("expected empty list, got %d %s", status, env.Data)
	}
}

func TestAuthErrorsOverHTTP(t *testing.T) {
	app := newTestApp(t)
	alice := registerAndLogin(t, app, "alice", "alice@example.com", "customer")

	status, env := call(t, app, http.MethodGet, "/complaints/me", "", nil)
	if status != http.StatusUnauthorized || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("expected 401, got %d %+v", status, env.Error)
	}
	status, _ = call(t, app, http.MethodGet, "/admin/complaints", alice, nil)
	if status != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", status)
	}

	status, env = call(t, app, http.MethodPost, "/users/login", "", map[string]string{"username": "alice", "password": "wrong"})
	if status != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d %+v", status, env.Error)
	}

	status, env = call(t, app, http.MethodPost, "/users/register", "", map[string]string{
		"username": "ALICE", "email": "other@example.com", "password": "p", "role": "customer",
	})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d %+v", status, env.Error)
	}
	status, env = call(t, app, http.MethodPost, "/users/register", "", map[string]string{
		"username": "carol", "email": "carol@example.com", "password": "p", "role": "superuser",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid role, got %d %+v", status, env.Error)
	}

	status, env = call(t, app, http.MethodGet, "/me", alice, nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d", status)
	}
	var me dto.PrincipalResponse
	if err := json.Unmarshal(env.Data, &me); err != nil || me.Email != "alice@example.com" || me.Role != "customer" {
		t.Fatalf("unexpected principal %s (%v)", env.Data, err)
	}
}

func TestValidationAndRoutingErrors(t *testing.T) {
	app := newTestApp(t)
	alice := registerAndLogin(t, app, "alice", "alice@example.com", "customer")

	status, env := call(t, app, http.MethodPost, "/complaints", alice, map[string]any{"title": "only"})
	if status != http.StatusBadRequest || env.Error.Details["description"] == nil {
		t.Fatalf("expected field details, got %d %+v", status, env.Error)
	}
	status, _ = call(t, app, http.MethodPut, "/complaints/abc", alice, map[string]string{"title": "t", "description": "d"})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", status)
	}
	status, _ = call(t, app, http.MethodGet, "/complaints?ticket=1&email=", "", nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty lookup email, got %d", status)
	}
	status, env = call(t, app, http.MethodGet, "/nowhere", "", nil)
	if status != http.StatusNotFound || env.Error == nil {
		t.Fatalf("expected enveloped 404, got %d %+v", status, env.Error)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	app := newTestApp(t)

	status, _ := call(t, app, http.MethodGet, "/health/live", "", nil)
	if status != http.StatusOK {
		t.Fatalf("live: %d", status)
	}
	status, _ = call(t, app, http.MethodGet, "/health/ready", "", nil)
	if status != http.StatusOK {
		t.Fatalf("ready: %d", status)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "complaints_http_requests_total") {
		t.Fatalf("expected request counter in exposition, got:\n%s", body)
	}
}
