package handlers

import (
	"bytes"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	applog "mealplanner/internal/log"
	"mealplanner/internal/mealplan"
	"mealplanner/internal/receipt"
)

const maxReceiptUpload = 10 << 20

// PurchaseResource handles /api/purchases.
func PurchaseResource(w http.ResponseWriter, r *http.Request) {
	if plannerUnavailable(w, r, "purchases") {
		return
	}

	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		purchases, err := planner.ListPurchases(r.Context(), query.Get("start"), query.Get("end"), query.Get("ingredientKey"))
		if err != nil {
			writeServiceError(w, r, err, "unable to load purchases")
			return
		}
		writeJSON(w, http.StatusOK, purchases)
	case http.MethodPost:
		var input mealplan.PurchaseInput
		if err := decodeJSON(r, &input); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		purchase, err := planner.CreatePurchase(r.Context(), input)
		if err != nil {
			writeServiceError(w, r, err, "unable to record purchase")
			return
		}
		writeJSON(w, http.StatusCreated, purchase)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ImportPurchases records purchases from an uploaded receipt. The multipart
// field "receipt" may hold plain text or a PDF; "purchasedAt" is optional.
func ImportPurchases(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if plannerUnavailable(w, r, "purchase-import") {
		return
	}

	if err := r.ParseMultipartForm(maxReceiptUpload); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid receipt upload")
		return
	}
	file, header, err := r.FormFile("receipt")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "receipt file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxReceiptUpload))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "unable to read receipt")
		return
	}

	var purchasedAt time.Time
	if raw := strings.TrimSpace(r.FormValue("purchasedAt")); raw != "" {
		purchasedAt, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "purchasedAt must be RFC3339")
			return
		}
	}

	text := string(data)
	if isPDF(header.Filename, data) {
		text, err = receipt.ExtractPDFText(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			applog.Debug(r.Context(), "failed to extract receipt text", "file", header.Filename, "error", err)
			writeJSONError(w, http.StatusBadRequest, "unable to read pdf receipt")
			return
		}
	}

	result, err := planner.ImportPurchases(r.Context(), strings.NewReader(text), purchasedAt)
	if err != nil {
		writeServiceError(w, r, err, "unable to import purchases")
		return
	}
	applog.Info(r.Context(), "receipt imported", "file", header.Filename, "recorded", len(result.Recorded), "unmatched", len(result.Unmatched))
	writeJSON(w, http.StatusOK, result)
}

func isPDF(filename string, data []byte) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf") || bytes.HasPrefix(data, []byte("%PDF-"))
}
