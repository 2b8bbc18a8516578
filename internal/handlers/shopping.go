package handlers

import (
	"net/http"

	applog "mealplanner/internal/log"
	"mealplanner/internal/views/pages"
)

// ShoppingList aggregates the ingredients planned between ?start and ?end.
func ShoppingList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if plannerUnavailable(w, r, "shopping-list") {
		return
	}

	query := r.URL.Query()
	list, err := planner.BuildShoppingList(r.Context(), query.Get("start"), query.Get("end"))
	if err != nil {
		writeServiceError(w, r, err, "unable to build shopping list")
		return
	}
	applog.Debug(r.Context(), "shopping list built", "start", list.Range.Start, "end", list.Range.End, "items", len(list.Items))
	writeJSON(w, http.StatusOK, list)
}

// ShoppingListPage renders the shopping list as a printable HTML page.
func ShoppingListPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if planner == nil {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	query := r.URL.Query()
	list, err := planner.BuildShoppingList(r.Context(), query.Get("start"), query.Get("end"))
	if err != nil {
		writeServiceError(w, r, err, "unable to build shopping list")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ShoppingList(list).Render(r.Context(), w); err != nil {
		applog.Error(r.Context(), "failed to render shopping list", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
