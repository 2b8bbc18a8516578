package handlers

import "net/http"

// SpendingAnalytics handles /api/analytics/spending. The optional start, end
// and ingredientKey query parameters narrow the purchases considered.
func SpendingAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if plannerUnavailable(w, r, "spending-analytics") {
		return
	}

	query := r.URL.Query()
	report, err := planner.SpendingAnalytics(r.Context(), query.Get("start"), query.Get("end"), query.Get("ingredientKey"))
	if err != nil {
		writeServiceError(w, r, err, "unable to build spending analytics")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DishCostAnalytics handles /api/analytics/dish-costs.
func DishCostAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if plannerUnavailable(w, r, "dish-cost-analytics") {
		return
	}

	report, err := planner.DishCostAnalytics(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "unable to build dish cost analytics")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
