package mealplan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mealplanner/internal/receipt"
	"mealplanner/models"
)

// ImportResult summarises a receipt import.
type ImportResult struct {
	Recorded  []models.Purchase `json:"recorded"`
	Unmatched []string          `json:"unmatched"`
}

// ImportPurchases records a purchase for every receipt line whose name and
// unit resolve to a directory ingredient. Other lines are reported back.
// Purchases are recorded in one transaction, so a failure saves none of them.
func (s *Service) ImportPurchases(ctx context.Context, r io.Reader, at time.Time) (ImportResult, error) {
	lines, rejected, err := receipt.Parse(r)
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if at.IsZero() {
		at = s.now()
	}

	var result ImportResult
	err = s.store.Transaction(ctx, func(tx Store) error {
		scoped := s.withStore(tx)
		result = ImportResult{Recorded: []models.Purchase{}, Unmatched: append([]string{}, rejected...)}
		for _, line := range lines {
			purchase, err := scoped.CreatePurchase(ctx, PurchaseInput{
				IngredientKey: line.Key(),
				Amount:        line.Amount,
				Unit:          line.Unit,
				Price:         line.Price,
				PurchasedAt:   &at,
			})
			if errors.Is(err, ErrNotFound) {
				result.Unmatched = append(result.Unmatched, line.Raw)
				continue
			}
			if err != nil {
				return err
			}
			result.Recorded = append(result.Recorded, purchase)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	if s.recorder != nil {
		s.recorder.ObservePurchaseImport(len(result.Recorded), len(result.Unmatched))
	}
	return result, nil
}
