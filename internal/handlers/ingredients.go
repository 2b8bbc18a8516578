package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"mealplanner/internal/mealplan"
)

// IngredientResource handles /api/ingredients and /api/ingredients/{key}.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if plannerUnavailable(w, r, "ingredients") {
		return
	}

	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/ingredients"), "/")
	if unescaped, err := url.PathUnescape(key); err == nil {
		key = unescaped
	}

	if key == "" {
		switch r.Method {
		case http.MethodGet:
			items, err := planner.ListIngredients(r.Context())
			if err != nil {
				writeServiceError(w, r, err, "unable to load ingredients")
				return
			}
			writeJSON(w, http.StatusOK, items)
		case http.MethodPost:
			var input mealplan.IngredientInput
			if err := decodeJSON(r, &input); err != nil {
				writeJSONError(w, http.StatusBadRequest, err.Error())
				return
			}
			ingredient, err := planner.CreateIngredient(r.Context(), input)
			if err != nil {
				writeServiceError(w, r, err, "unable to create ingredient")
				return
			}
			writeJSON(w, http.StatusCreated, ingredient)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var input mealplan.IngredientInput
	if err := decodeJSON(r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	ingredient, err := planner.UpdateIngredient(r.Context(), key, input)
	if err != nil {
		writeServiceError(w, r, err, "unable to update ingredient")
		return
	}
	writeJSON(w, http.StatusOK, ingredient)
}
