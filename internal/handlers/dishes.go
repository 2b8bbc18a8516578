package handlers

import (
	"net/http"
	"strings"

	applog "mealplanner/internal/log"
	"mealplanner/internal/mealplan"
)

// DishResource handles /api/dishes and /api/dishes/{id}.
func DishResource(w http.ResponseWriter, r *http.Request) {
	if plannerUnavailable(w, r, "dishes") {
		return
	}

	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/dishes"), "/")
	if id == "" {
		switch r.Method {
		case http.MethodGet:
			listDishes(w, r)
		case http.MethodPost:
			createDish(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	switch r.Method {
	case http.MethodPut, http.MethodPatch:
		updateDish(w, r, id)
	case http.MethodDelete:
		deleteDish(w, r, id)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := planner.ListDishes(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "unable to load dishes")
		return
	}
	writeJSON(w, http.StatusOK, dishes)
}

func createDish(w http.ResponseWriter, r *http.Request) {
	var input mealplan.DishInput
	if err := decodeJSON(r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	author := mealplan.Author{}
	if user, ok := currentUser(r); ok {
		author = mealplan.Author{Login: user.Login, Name: user.Name}
	}

	dish, err := planner.CreateDish(r.Context(), input, author)
	if err != nil {
		writeServiceError(w, r, err, "unable to create dish")
		return
	}
	applog.Debug(r.Context(), "dish created", "id", dish.ID, "calories", dish.Calories)
	writeJSON(w, http.StatusCreated, dish)
}

func updateDish(w http.ResponseWriter, r *http.Request, id string) {
	var input mealplan.DishInput
	if err := decodeJSON(r, &input); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	dish, err := planner.UpdateDish(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, r, err, "unable to update dish")
		return
	}
	writeJSON(w, http.StatusOK, dish)
}

func deleteDish(w http.ResponseWriter, r *http.Request, id string) {
	if err := planner.DeleteDish(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "unable to delete dish")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
