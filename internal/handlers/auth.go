package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"
	"gorm.io/gorm"

	"mealplanner/internal/auth"
	applog "mealplanner/internal/log"
	"mealplanner/internal/mealplan"
	"mealplanner/internal/metrics"
	"mealplanner/models"
)

const (
	sessionAuthenticatedKey = "auth:authenticated"
	sessionUserIDKey        = "auth:user:id"
	sessionUserLoginKey     = "auth:user:login"
	sessionUserNameKey      = "auth:user:name"
)

// Dependencies are the shared collaborators used by the HTTP handlers.
type Dependencies struct {
	Sessions   *scs.SessionManager
	Database   *gorm.DB
	Planner    *mealplan.Service
	Tokens     *auth.TokenIssuer
	Metrics    *metrics.Metrics
	LoginLimit LoginLimit
}

var (
	sessionManager *scs.SessionManager
	database       *gorm.DB
	planner        *mealplan.Service
	tokens         *auth.TokenIssuer
	collector      *metrics.Metrics
	loginLimiter   *clientLimiter
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(deps Dependencies) {
	sessionManager = deps.Sessions
	database = deps.Database
	planner = deps.Planner
	tokens = deps.Tokens
	collector = deps.Metrics
	loginLimiter = newClientLimiter(deps.LoginLimit)
}

type userContextKey struct{}

type userResponse struct {
	Login   string `json:"login"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"isAdmin"`
}

func projectUser(user *models.User) userResponse {
	return userResponse{Login: user.Login, Name: user.Name, IsAdmin: user.IsAdmin}
}

func createUser(r *http.Request, login, name, password string, admin bool) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Login:        strings.ToLower(strings.TrimSpace(login)),
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
		IsAdmin:      admin,
	}

	if err := database.WithContext(r.Context()).Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

func findUserByLogin(ctx context.Context, login string) (*models.User, error) {
	if database == nil {
		return nil, gorm.ErrInvalidDB
	}

	user := &models.User{}
	err := database.WithContext(ctx).Where("lower(login) = ?", strings.ToLower(strings.TrimSpace(login))).First(user).Error
	if err != nil {
		return nil, err
	}
	return user, nil
}

func establishSession(r *http.Request, user *models.User) error {
	if sessionManager == nil {
		return errors.New("session manager not configured")
	}
	if err := sessionManager.RenewToken(r.Context()); err != nil {
		return err
	}
	sessionManager.Put(r.Context(), sessionAuthenticatedKey, true)
	sessionManager.Put(r.Context(), sessionUserIDKey, int(user.ID))
	sessionManager.Put(r.Context(), sessionUserLoginKey, user.Login)
	sessionManager.Put(r.Context(), sessionUserNameKey, user.Name)
	return nil
}

// resolveUser identifies the caller from a bearer token, falling back to the session.
func resolveUser(r *http.Request) (*models.User, bool) {
	if header := r.Header.Get("Authorization"); header != "" {
		raw, ok := auth.BearerToken(header)
		if !ok || tokens == nil {
			return nil, false
		}
		login, err := tokens.Verify(raw)
		if err != nil {
			applog.Debug(r.Context(), "rejected bearer token", "error", err)
			return nil, false
		}
		user, err := findUserByLogin(r.Context(), login)
		if err != nil {
			applog.Debug(r.Context(), "bearer token for unknown user", "login", login, "error", err)
			return nil, false
		}
		return user, true
	}

	if !ActiveSession(r) {
		return nil, false
	}
	user, err := findUserByLogin(r.Context(), sessionManager.GetString(r.Context(), sessionUserLoginKey))
	if err != nil {
		applog.Debug(r.Context(), "session for unknown user", "error", err)
		return nil, false
	}
	return user, true
}

// RequireAuthentication rejects requests without a valid bearer token or session.
func RequireAuthentication(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := resolveUser(r)
		if !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSONError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		ctx := applog.WithAttrs(withUser(r.Context(), user), "user", user.Login)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin allows only administrators through. It must run after RequireAuthentication.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := currentUser(r)
		if !ok || !user.IsAdmin {
			writeJSONError(w, http.StatusForbidden, "administrator privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

func currentUser(r *http.Request) (*models.User, bool) {
	user, ok := r.Context().Value(userContextKey{}).(*models.User)
	return user, ok && user != nil
}

// Logout destroys the current session. Bearer tokens simply expire.
func Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// ActiveSession returns true when the current request has an authenticated session.
func ActiveSession(r *http.Request) bool {
	if sessionManager == nil {
		return false
	}
	return sessionManager.GetBool(r.Context(), sessionAuthenticatedKey) && sessionManager.GetInt(r.Context(), sessionUserIDKey) > 0
}
