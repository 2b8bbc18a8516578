package handlers

import (
	"errors"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"mealplanner/internal/auth"
	applog "mealplanner/internal/log"
	"mealplanner/models"
)

type userUpdateRequest struct {
	Name *string `json:"name"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type userCreateRequest struct {
	Login    string `json:"login"`
	Name     string `json:"name"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// CurrentUser shows or renames the authenticated user.
func CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, projectUser(user))
	case http.MethodPatch:
		var req userUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Name != nil {
			user.Name = strings.TrimSpace(*req.Name)
			if err := database.WithContext(r.Context()).Model(user).Update("name", user.Name).Error; err != nil {
				applog.Error(r.Context(), "failed to update user", "error", err)
				writeJSONError(w, http.StatusInternalServerError, "unable to update user")
				return
			}
			if sessionManager != nil && ActiveSession(r) {
				sessionManager.Put(r.Context(), sessionUserNameKey, user.Name)
			}
		}
		writeJSON(w, http.StatusOK, projectUser(user))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ChangePassword replaces the authenticated user's password after checking the current one.
func ChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	user, ok := currentUser(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req passwordChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := auth.CheckPassword(user.PasswordHash, req.CurrentPassword); err != nil {
		writeJSONError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}
	hashed, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := database.WithContext(r.Context()).Model(user).Update("password_hash", hashed).Error; err != nil {
		applog.Error(r.Context(), "failed to change password", "error", err)
		writeJSONError(w, http.StatusInternalServerError, "unable to change password")
		return
	}
	applog.Info(r.Context(), "password changed", "login", user.Login)
	w.WriteHeader(http.StatusNoContent)
}

// Users lists accounts or creates a new one. Administrators only.
func Users(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}

	switch r.Method {
	case http.MethodGet:
		var users []models.User
		if err := database.WithContext(r.Context()).Order("login asc").Find(&users).Error; err != nil {
			applog.Error(r.Context(), "failed to list users", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "unable to load users")
			return
		}
		responses := make([]userResponse, 0, len(users))
		for i := range users {
			responses = append(responses, projectUser(&users[i]))
		}
		writeJSON(w, http.StatusOK, responses)
	case http.MethodPost:
		var req userCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		login := strings.TrimSpace(req.Login)
		if login == "" {
			writeJSONError(w, http.StatusBadRequest, "login is required")
			return
		}
		_, err := findUserByLogin(r.Context(), login)
		switch {
		case err == nil:
			writeJSONError(w, http.StatusConflict, "user already exists")
			return
		case !errors.Is(err, gorm.ErrRecordNotFound):
			applog.Error(r.Context(), "failed to look up user", "login", login, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "unable to create user")
			return
		}
		if len(strings.TrimSpace(req.Password)) < auth.MinPasswordLength {
			writeJSONError(w, http.StatusBadRequest, "password is too short")
			return
		}
		user, err := createUser(r, login, req.Name, req.Password, req.IsAdmin)
		if err != nil {
			applog.Error(r.Context(), "failed to create user", "error", err)
			writeJSONError(w, http.StatusInternalServerError, "unable to create user")
			return
		}
		applog.Info(r.Context(), "user created", "login", user.Login)
		writeJSON(w, http.StatusCreated, projectUser(user))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
