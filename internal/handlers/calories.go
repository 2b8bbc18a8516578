package handlers

import (
	"net/http"
	"strconv"
	"strings"

	applog "mealplanner/internal/log"
	"mealplanner/internal/mealplan"
)

// CalorieResource handles /api/calories and /api/calories/{id}.
func CalorieResource(w http.ResponseWriter, r *http.Request) {
	if plannerUnavailable(w, r, "calories") {
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/calories"), "/")
	if path == "" {
		switch r.Method {
		case http.MethodGet:
			entries, err := planner.ListCalorieEntries(r.Context())
			if err != nil {
				writeServiceError(w, r, err, "unable to load calorie entries")
				return
			}
			writeJSON(w, http.StatusOK, entries)
		case http.MethodPost:
			var input mealplan.CalorieInput
			if err := decodeJSON(r, &input); err != nil {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			entry, err := planner.CreateCalorieEntry(r.Context(), input)
			if err != nil {
				writeServiceError(w, r, err, "unable to create calorie entry")
				return
			}
			writeJSON(w, http.StatusCreated, entry)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid calorie entry identifier", "identifier", path, "error", err)
		writeJSONError(w, http.StatusBadRequest, "invalid entry id")
		return
	}
	entryID := uint(idValue)

	switch r.Method {
	case http.MethodPatch:
		var input mealplan.CalorieInput
		if err := decodeJSON(r, &input); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		entry, err := planner.UpdateCalorieEntry(r.Context(), entryID, input)
		if err != nil {
			writeServiceError(w, r, err, "unable to update calorie entry")
			return
		}
		writeJSON(w, http.StatusOK, entry)
	case http.MethodDelete:
		if err := planner.DeleteCalorieEntry(r.Context(), entryID); err != nil {
			writeServiceError(w, r, err, "unable to delete calorie entry")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
