package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"mealplanner/internal/auth"
	applog "mealplanner/internal/log"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   string       `json:"expires_at"`
	User        userResponse `json:"user"`
}

// Login verifies credentials, issues a bearer token and establishes a browser session.
func Login(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "handling login request", "method", r.Method)

	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if database == nil || tokens == nil {
		applog.Debug(r.Context(), "authentication dependencies unavailable", "hasDatabase", database != nil, "hasTokens", tokens != nil)
		writeJSONError(w, http.StatusServiceUnavailable, "authentication not available")
		return
	}

	client := loginLimiter.clientAddress(r)
	if !loginLimiter.Allow(client) {
		applog.Info(r.Context(), "login throttled", "client", client)
		recordLogin("throttled")
		w.Header().Set("Retry-After", "60")
		writeJSONError(w, http.StatusTooManyRequests, "too many login attempts")
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		applog.Debug(r.Context(), "failed to decode login payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "login and password are required")
		return
	}

	user, err := findUserByLogin(r.Context(), login)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Error(r.Context(), "failed to load user during login", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "unable to sign in")
			return
		}
		recordLogin("failure")
		writeJSONError(w, http.StatusUnauthorized, "incorrect login or password")
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		recordLogin("failure")
		writeJSONError(w, http.StatusUnauthorized, "incorrect login or password")
		return
	}

	token, expires, err := tokens.Issue(user.Login)
	if err != nil {
		applog.Error(r.Context(), "failed to issue access token", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to sign in")
		return
	}
	if sessionManager != nil {
		if err := establishSession(r, user); err != nil {
			applog.Error(r.Context(), "failed to establish session", "error", err)
		}
	}

	recordLogin("success")
	applog.Debug(r.Context(), "authentication succeeded", "login", user.Login)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expires.Format(timeLayout),
		User:        projectUser(user),
	})
}

func recordLogin(result string) {
	if collector != nil {
		collector.RecordLogin(result)
	}
}
