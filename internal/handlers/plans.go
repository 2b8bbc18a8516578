package handlers

import (
	"net/http"
	"strings"
)

type planRequest struct {
	DateISO string             `json:"dateISO"`
	Slots   map[string]*string `json:"slots"`
}

// PlanResource handles /api/plans and /api/plans/{date}.
func PlanResource(w http.ResponseWriter, r *http.Request) {
	if plannerUnavailable(w, r, "plans") {
		return
	}

	date := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/plans"), "/")
	if date == "" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		query := r.URL.Query()
		plans, err := planner.ListPlans(r.Context(), query.Get("start"), query.Get("end"))
		if err != nil {
			writeServiceError(w, r, err, "unable to load plans")
			return
		}
		writeJSON(w, http.StatusOK, plans)
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req planRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.DateISO != "" && req.DateISO != date {
			writeJSONError(w, http.StatusBadRequest, "path date and payload date mismatch")
			return
		}
		plan, err := planner.SavePlan(r.Context(), date, req.Slots)
		if err != nil {
			writeServiceError(w, r, err, "unable to save plan")
			return
		}
		writeJSON(w, http.StatusOK, plan)
	case http.MethodDelete:
		if err := planner.DeletePlan(r.Context(), date); err != nil {
			writeServiceError(w, r, err, "unable to delete plan")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
