package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"humanizer-backend/internal/shared/server/middleware"
)

func setupUsersRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewHandler(NewService(NewMemoryRepo()))

	router := gin.New()
	router.Use(middleware.Auth("dev"))
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, payload any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegisterThenLogin(t *testing.T) {
	router := setupUsersRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "Jane@Example.com",
		"password": "correct horse",
		"fullName": "Jane Doe",
	}, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.Token == "" {
		t.Fatalf("expected token on register")
	}
	if created.User.Email != "jane@example.com" {
		t.Fatalf("expected lowercased email, got %q", created.User.Email)
	}

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse",
	}, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var logged struct {
		User  User   `json:"user"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&logged); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if logged.Token == "" {
		t.Fatalf("expected token on login")
	}
	if logged.User.ID != created.User.ID {
		t.Fatalf("expected same user, got %s and %s", logged.User.ID, created.User.ID)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	router := setupUsersRouter(t)

	payload := map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse",
	}
	if resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", payload, nil); resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", payload, nil)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", resp.Code)
	}
}

func TestRegisterValidatesPayload(t *testing.T) {
	router := setupUsersRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "not-an-email",
		"password": "correct horse",
	}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for bad email, got %d", resp.Code)
	}

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "jane@example.com",
		"password": "short",
	}, nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for short password, got %d", resp.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	router := setupUsersRouter(t)

	if resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse",
	}, nil); resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "jane@example.com",
		"password": "wrong horse",
	}, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}

	resp = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    "nobody@example.com",
		"password": "whatever1",
	}, nil)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401 for unknown email, got %d", resp.Code)
	}
}

func TestRegisterResponseOmitsPasswordHash(t *testing.T) {
	router := setupUsersRouter(t)

	resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email":    "jane@example.com",
		"password": "correct horse",
	}, nil)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	var user map[string]any
	if err := json.Unmarshal(raw["user"], &user); err != nil {
		t.Fatalf("decode user: %v", err)
	}
	if _, ok := user["passwordHash"]; ok {
		t.Fatalf("passwordHash must not be serialized")
	}
}

func TestMeWithGuestHeader(t *testing.T) {
	router := setupUsersRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var me struct {
		UserID  string `json:"userId"`
		IsGuest bool   `json:"isGuest"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if me.UserID != "guest:abc" || !me.IsGuest {
		t.Fatalf("expected guest identity, got %+v", me)
	}
}
