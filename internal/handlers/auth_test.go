package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mealplanner/internal/auth"
	"mealplanner/internal/config"
	"mealplanner/internal/db"
	"mealplanner/internal/mealplan"
	"mealplanner/internal/store"
	"mealplanner/models"
)

func withTestSessionManager(t *testing.T) (*scs.SessionManager, func()) {
	t.Helper()
	original := sessionManager
	sm := scs.New()
	sessionManager = sm
	return sm, func() {
		sessionManager = original
	}
}

func withTestDatabase(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	originalDB, originalPlanner := database, planner

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name)), db.GormConfig("", logger.Silent))
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(conn); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	database = conn
	planner = mealplan.NewService(store.New(conn), mealplan.Options{})
	return conn, func() {
		database, planner = originalDB, originalPlanner
		if sqlDB, err := conn.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func withTestTokens(t *testing.T) (*auth.TokenIssuer, func()) {
	t.Helper()
	original := tokens
	issuer, err := auth.NewTokenIssuer(config.JWTConfig{Secret: "test-secret", Issuer: "mealplanner", ExpMinutes: 30})
	if err != nil {
		t.Fatalf("failed to build token issuer: %v", err)
	}
	tokens = issuer
	return issuer, func() {
		tokens = original
	}
}

func seedUser(t *testing.T, conn *gorm.DB, login, password string, admin bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{Login: login, Name: strings.ToUpper(login[:1]) + login[1:], PasswordHash: hash, IsAdmin: admin}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

// bearerRequest builds a request authenticated with a freshly issued token.
func bearerRequest(t *testing.T, issuer *auth.TokenIssuer, method, target, body string) *http.Request {
	t.Helper()
	token, _, err := issuer.Issue("cook")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func TestActiveSession(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if ActiveSession(req) {
		t.Fatal("expected inactive session when manager is nil")
	}

	sm, cleanup := withTestSessionManager(t)
	t.Cleanup(cleanup)

	ctx, err := sm.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	req = req.WithContext(ctx)
	if ActiveSession(req) {
		t.Fatal("expected inactive session before login")
	}

	sm.Put(req.Context(), sessionAuthenticatedKey, true)
	sm.Put(req.Context(), sessionUserIDKey, 42)
	if !ActiveSession(req) {
		t.Fatal("expected active session when flags are set")
	}
}

func TestEstablishSession(t *testing.T) {
	sm, cleanup := withTestSessionManager(t)
	t.Cleanup(cleanup)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx, err := sm.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	req = req.WithContext(ctx)

	user := &models.User{Login: "cook", Name: "Cook"}
	user.ID = 5
	if err := establishSession(req, user); err != nil {
		t.Fatalf("establishSession returned error: %v", err)
	}
	if !ActiveSession(req) {
		t.Fatal("expected session to be active")
	}
	if got := sm.GetString(req.Context(), sessionUserLoginKey); got != "cook" {
		t.Fatalf("expected login cook in session, got %q", got)
	}
	if got := sm.GetString(req.Context(), sessionUserNameKey); got != "Cook" {
		t.Fatalf("expected name Cook in session, got %q", got)
	}
}

func TestRequireAuthenticationRejectsAnonymous(t *testing.T) {
	sm, cleanupSessions := withTestSessionManager(t)
	t.Cleanup(cleanupSessions)
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	called := false
	handler := sm.LoadAndSave(RequireAuthentication(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	})))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dishes", nil))

	if called {
		t.Fatal("expected protected handler not to run")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
	if got := rr.Header().Get("WWW-Authenticate"); got != "Bearer" {
		t.Fatalf("expected bearer challenge, got %q", got)
	}
}

func TestRequireAuthenticationAcceptsBearerToken(t *testing.T) {
	conn, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	issuer, cleanupTokens := withTestTokens(t)
	t.Cleanup(cleanupTokens)
	seedUser(t, conn, "cook", "secret-pass", false)

	var seen *models.User
	handler := RequireAuthentication(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = currentUser(r)
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, bearerRequest(t, issuer, http.MethodGet, "/api/dishes", ""))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if seen == nil || seen.Login != "cook" {
		t.Fatalf("expected cook in request context, got %+v", seen)
	}
}

func TestRequireAuthenticationRejectsBadBearerToken(t *testing.T) {
	conn, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	_, cleanupTokens := withTestTokens(t)
	t.Cleanup(cleanupTokens)
	seedUser(t, conn, "cook", "secret-pass", false)

	handler := RequireAuthentication(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with an invalid token")
	}))

	for _, header := range []string{"Bearer not-a-token", "Basic Y29vazpwYXNz"} {
		req := httptest.NewRequest(http.MethodGet, "/api/dishes", nil)
		req.Header.Set("Authorization", header)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %q, got %d", header, rr.Code)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name string
		user *models.User
		want int
	}{
		{name: "anonymous", want: http.StatusForbidden},
		{name: "member", user: &models.User{Login: "cook"}, want: http.StatusForbidden},
		{name: "admin", user: &models.User{Login: "admin", IsAdmin: true}, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
			if tt.user != nil {
				req = req.WithContext(withUser(req.Context(), tt.user))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestLoginIssuesTokenAndSession(t *testing.T) {
	sm, cleanupSessions := withTestSessionManager(t)
	t.Cleanup(cleanupSessions)
	conn, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	issuer, cleanupTokens := withTestTokens(t)
	t.Cleanup(cleanupTokens)
	seedUser(t, conn, "cook", "secret-pass", false)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"login":"Cook","password":"secret-pass"}`))
	sm.LoadAndSave(http.HandlerFunc(Login)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode login response: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("expected bearer token type, got %q", resp.TokenType)
	}
	if resp.User.Login != "cook" {
		t.Fatalf("expected user cook, got %+v", resp.User)
	}
	if _, err := time.Parse(time.RFC3339, resp.ExpiresAt); err != nil {
		t.Fatalf("expected RFC3339 expiry, got %q", resp.ExpiresAt)
	}
	login, err := issuer.Verify(resp.AccessToken)
	if err != nil || login != "cook" {
		t.Fatalf("expected token for cook, got %q (err=%v)", login, err)
	}
	if len(rr.Result().Cookies()) == 0 {
		t.Fatal("expected session cookie to be set")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	sm, cleanupSessions := withTestSessionManager(t)
	t.Cleanup(cleanupSessions)
	conn, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	_, cleanupTokens := withTestTokens(t)
	t.Cleanup(cleanupTokens)
	seedUser(t, conn, "cook", "secret-pass", false)

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "wrong password", body: `{"login":"cook","password":"nope"}`, want: http.StatusUnauthorized},
		{name: "unknown user", body: `{"login":"ghost","password":"secret-pass"}`, want: http.StatusUnauthorized},
		{name: "missing fields", body: `{"login":""}`, want: http.StatusBadRequest},
		{name: "malformed", body: `{`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(tt.body))
			sm.LoadAndSave(http.HandlerFunc(Login)).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestLoginIsThrottledPerClient(t *testing.T) {
	conn, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	_, cleanupTokens := withTestTokens(t)
	t.Cleanup(cleanupTokens)
	seedUser(t, conn, "cook", "secret-pass", false)

	original := loginLimiter
	loginLimiter = newClientLimiter(LoginLimit{PerMinute: 1, Burst: 2})
	t.Cleanup(func() { loginLimiter = original })

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"login":"cook","password":"wrong"}`))
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		Login(rr, req)
		return rr.Code
	}

	for i := 0; i < 2; i++ {
		if code := send("10.0.0.1:4000"); code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, code)
		}
	}
	if code := send("10.0.0.1:4001"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the burst is spent, got %d", code)
	}
	if code := send("10.0.0.2:4000"); code != http.StatusUnauthorized {
		t.Fatalf("expected other clients to be unaffected, got %d", code)
	}
}

func TestLoginThrottleIgnoresRotatingForwardedFor(t *testing.T) {
	conn, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	_, cleanupTokens := withTestTokens(t)
	t.Cleanup(cleanupTokens)
	seedUser(t, conn, "cook", "secret-pass", false)

	original := loginLimiter
	loginLimiter = newClientLimiter(LoginLimit{PerMinute: 1, Burst: 2})
	t.Cleanup(func() { loginLimiter = original })

	codes := make([]int, 0, 4)
	for i := 0; i < 4; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"login":"cook","password":"wrong"}`))
		req.RemoteAddr = "198.51.100.20:4000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.1.1.%d", i+1))
		rr := httptest.NewRecorder()
		Login(rr, req)
		codes = append(codes, rr.Code)
	}

	want := []int{http.StatusUnauthorized, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("attempt %d: expected %d, got %d (all: %v)", i+1, want[i], codes[i], codes)
		}
	}
}

func TestLoginThrottleKeysOnForwardedClientBehindTrustedProxy(t *testing.T) {
	conn, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)
	_, cleanupTokens := withTestTokens(t)
	t.Cleanup(cleanupTokens)
	seedUser(t, conn, "cook", "secret-pass", false)

	original := loginLimiter
	loginLimiter = newClientLimiter(LoginLimit{PerMinute: 1, Burst: 1, TrustedProxies: []string{"10.0.0.0/8"}})
	t.Cleanup(func() { loginLimiter = original })

	send := func(forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/login", strings.NewReader(`{"login":"cook","password":"wrong"}`))
		req.RemoteAddr = "10.0.0.5:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		rr := httptest.NewRecorder()
		Login(rr, req)
		return rr.Code
	}

	if code := send("203.0.113.7"); code != http.StatusUnauthorized {
		t.Fatalf("expected first attempt to reach credential check, got %d", code)
	}
	// A spoofed leading hop does not hide the address the proxy appended.
	if code := send("1.2.3.4, 203.0.113.7"); code != http.StatusTooManyRequests {
		t.Fatalf("expected the same forwarded client to be throttled, got %d", code)
	}
	if code := send("203.0.113.8"); code != http.StatusUnauthorized {
		t.Fatalf("expected another forwarded client to have its own budget, got %d", code)
	}
}

func TestLogoutDestroysSession(t *testing.T) {
	sm, cleanup := withTestSessionManager(t)
	t.Cleanup(cleanup)

	req := httptest.NewRequest(http.MethodPost, "/api/logout", nil)
	ctx, err := sm.Load(req.Context(), "")
	if err != nil {
		t.Fatalf("failed to load session context: %v", err)
	}
	req = req.WithContext(ctx)
	sm.Put(req.Context(), sessionAuthenticatedKey, true)
	sm.Put(req.Context(), sessionUserIDKey, 1)

	rr := httptest.NewRecorder()
	Logout(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if ActiveSession(req) {
		t.Fatal("expected session to be cleared")
	}

	rr = httptest.NewRecorder()
	Logout(rr, httptest.NewRequest(http.MethodGet, "/api/logout", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rr.Code)
	}
}
