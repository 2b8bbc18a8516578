package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	applog "mealplanner/internal/log"
	"mealplanner/internal/mealplan"
)

const (
	maxJSONBody = 1 << 20
	timeLayout  = time.RFC3339
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid json payload: %w", err)
	}
	return nil
}

// writeServiceError maps planner errors onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500 carrying fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, mealplan.ErrInvalidDate),
		errors.Is(err, mealplan.ErrInvalidRange),
		errors.Is(err, mealplan.ErrInvalidInput):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, mealplan.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, mealplan.ErrConflict):
		writeJSONError(w, http.StatusConflict, err.Error())
	default:
		applog.Error(r.Context(), fallback, "error", err)
		writeJSONError(w, http.StatusInternalServerError, fallback)
	}
}

func plannerUnavailable(w http.ResponseWriter, r *http.Request, resource string) bool {
	if planner != nil {
		return false
	}
	applog.Debug(r.Context(), "planner request without service", "resource", resource)
	writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
	return true
}
