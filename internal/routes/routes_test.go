package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prian3003/gotchu-auth/internal/config"
	"github.com/prian3003/gotchu-auth/internal/handlers"
	"github.com/prian3003/gotchu-auth/internal/models"
	"github.com/prian3003/gotchu-auth/internal/repository"
	"github.com/prian3003/gotchu-auth/internal/service"
	"github.com/prian3003/gotchu-auth/internal/store"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// setupTestServer wires the real stack against in-memory backends.
func setupTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	sessions := store.New(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { sessions.Close() })

	jwtService, err := service.NewJWTService("integration-test-secret-32-bytes!!", "gotchu.lol", "gotchu-users", 24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create jwt service: %v", err)
	}

	authService := service.NewAuthService(
		repository.NewUserRepository(db),
		sessions,
		jwtService,
		service.NewPasswordHasher(bcrypt.MinCost),
		service.Options{},
	)

	cfg := &config.Config{AllowedOrigins: []string{"https://gotchu.lol"}}
	router := gin.New()
	Setup(router, cfg, authService, handlers.NewAuthHandler(authService), handlers.NewHealthHandler(db, sessions))
	return router
}

func doJSON(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func dataField(t *testing.T, w *httptest.ResponseRecorder, field string) interface{} {
	t.Helper()

	var envelope struct {
		Success bool                   `json:"success"`
		Data    map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode %q: %v", w.Body.String(), err)
	}
	return envelope.Data[field]
}

func TestRegisterLoginMeLogoutFlow(t *testing.T) {
	router := setupTestServer(t)

	// Register
	w := doJSON(router, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201, body %s", w.Code, w.Body.String())
	}
	sessionID, _ := dataField(t, w, "session_id").(string)
	token, _ := dataField(t, w, "token").(string)
	if sessionID == "" || token == "" {
		t.Fatal("registration should return a session id and token")
	}

	// Me with the session header
	w = doJSON(router, http.MethodGet, "/api/auth/me", "", map[string]string{
		"X-Session-ID": sessionID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	user := dataField(t, w, "user").(map[string]interface{})
	if user["username"] != "alice" {
		t.Errorf("me username = %v, want alice", user["username"])
	}

	// Me with the bearer token alone also resolves
	w = doJSON(router, http.MethodGet, "/api/auth/me", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if w.Code != http.StatusOK {
		t.Errorf("me via token status = %d, want 200", w.Code)
	}

	// Logout
	w = doJSON(router, http.MethodPost, "/api/auth/logout", "", map[string]string{
		"X-Session-ID": sessionID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", w.Code)
	}

	// The session is revoked for both credential kinds
	w = doJSON(router, http.MethodGet, "/api/auth/me", "", map[string]string{
		"X-Session-ID": sessionID,
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me after logout status = %d, want 401", w.Code)
	}
	w = doJSON(router, http.MethodGet, "/api/auth/me", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("me via token after logout status = %d, want 401, the token references a dead session", w.Code)
	}
}

func TestLoginAfterRegister(t *testing.T) {
	router := setupTestServer(t)

	w := doJSON(router, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", w.Code)
	}

	// By username
	w = doJSON(router, http.MethodPost, "/api/auth/login",
		`{"identifier":"alice","password":"longenough1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	// By email, mixed case
	w = doJSON(router, http.MethodPost, "/api/auth/login",
		`{"identifier":"A@X.com","password":"longenough1"}`, nil)
	if w.Code != http.StatusOK {
		t.Errorf("login by email status = %d, want 200", w.Code)
	}

	// Wrong password
	w = doJSON(router, http.MethodPost, "/api/auth/login",
		`{"identifier":"alice","password":"wrongpassword"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", w.Code)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	router := setupTestServer(t)

	w := doJSON(router, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", w.Code)
	}

	// Same username, different email
	w = doJSON(router, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"other@x.com","password":"longenough1"}`, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate username status = %d, want 409", w.Code)
	}

	// Same email, different username
	w = doJSON(router, http.MethodPost, "/api/auth/register",
		`{"username":"anothername","email":"a@x.com","password":"longenough1"}`, nil)
	if w.Code != http.StatusConflict {
		t.Errorf("duplicate email status = %d, want 409", w.Code)
	}
}

func TestLoginRateLimiting(t *testing.T) {
	router := setupTestServer(t)

	body := `{"identifier":"bob","password":"wrongpassword"}`
	for i := 1; i <= 5; i++ {
		w := doJSON(router, http.MethodPost, "/api/auth/login", body, nil)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want 401", i, w.Code)
		}
	}

	// The sixth attempt is throttled before credentials are checked
	w := doJSON(router, http.MethodPost, "/api/auth/login", body, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("sixth attempt status = %d, want 429, body %s", w.Code, w.Body.String())
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("RATE_LIMITED")) {
		t.Errorf("body = %s, want RATE_LIMITED code", w.Body.String())
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", got)
	}
}

func TestSuccessfulLoginClearsRateLimit(t *testing.T) {
	router := setupTestServer(t)

	w := doJSON(router, http.MethodPost, "/api/auth/register",
		`{"username":"bob","email":"b@x.com","password":"longenough1"}`, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, want 201", w.Code)
	}

	// Four fat-fingered attempts, then the right password
	for i := 0; i < 4; i++ {
		doJSON(router, http.MethodPost, "/api/auth/login",
			`{"identifier":"bob","password":"wrongpassword"}`, nil)
	}
	w = doJSON(router, http.MethodPost, "/api/auth/login",
		`{"identifier":"bob","password":"longenough1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("correct login status = %d, want 200", w.Code)
	}

	// The window restarted, so more attempts fit before throttling
	for i := 0; i < 4; i++ {
		w = doJSON(router, http.MethodPost, "/api/auth/login",
			`{"identifier":"bob","password":"wrongpassword"}`, nil)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("post-clear attempt %d status = %d, want 401", i+1, w.Code)
		}
	}
}

func TestRefreshFlow(t *testing.T) {
	router := setupTestServer(t)

	w := doJSON(router, http.MethodPost, "/api/auth/register",
		`{"username":"alice","email":"a@x.com","password":"longenough1"}`, nil)
	sessionID, _ := dataField(t, w, "session_id").(string)

	w = doJSON(router, http.MethodPost, "/api/auth/refresh", "", map[string]string{
		"X-Session-ID": sessionID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	token, _ := dataField(t, w, "token").(string)
	if token == "" {
		t.Fatal("refresh should return a token")
	}

	// The refreshed token authenticates
	w = doJSON(router, http.MethodGet, "/api/auth/me", "", map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	})
	if w.Code != http.StatusOK {
		t.Errorf("me with refreshed token status = %d, want 200", w.Code)
	}

	w = doJSON(router, http.MethodPost, "/api/auth/refresh", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("refresh without header status = %d, want 400", w.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router := setupTestServer(t)

	w := doJSON(router, http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200, body %s", w.Code, w.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestServer(t)

	w := doJSON(router, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", w.Code)
	}
}
