package mealplan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealplanner/models"
)

// PurchaseInput is the payload for recording one purchase.
type PurchaseInput struct {
	IngredientKey string     `json:"ingredientKey"`
	Amount        float64    `json:"amount"`
	Unit          string     `json:"unit"`
	Price         float64    `json:"price"`
	PurchasedAt   *time.Time `json:"purchasedAt"`
}

// ListPurchases returns purchases newest first. Bounds accept RFC3339 or
// YYYY-MM-DD; a date-only end bound covers the whole day.
func (s *Service) ListPurchases(ctx context.Context, start, end, ingredientKey string) ([]models.Purchase, error) {
	filter := PurchaseFilter{IngredientKey: models.NormalizeKey(ingredientKey)}
	if strings.TrimSpace(start) != "" {
		parsed, err := parseRangeBound(start, false)
		if err != nil {
			return nil, err
		}
		filter.Start = parsed
	}
	if strings.TrimSpace(end) != "" {
		parsed, err := parseRangeBound(end, true)
		if err != nil {
			return nil, err
		}
		filter.End = parsed
	}
	if !filter.Start.IsZero() && !filter.End.IsZero() && filter.End.Before(filter.Start) {
		return nil, fmt.Errorf("%w: end must not be before start", ErrInvalidRange)
	}
	return s.store.ListPurchases(ctx, filter)
}

// CreatePurchase appends a purchase for a directory ingredient.
func (s *Service) CreatePurchase(ctx context.Context, input PurchaseInput) (models.Purchase, error) {
	key := models.NormalizeKey(input.IngredientKey)
	if key == "" {
		return models.Purchase{}, fmt.Errorf("%w: ingredientKey is required", ErrInvalidInput)
	}
	if input.Amount <= 0 {
		return models.Purchase{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if input.Price < 0 {
		return models.Purchase{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	ingredient, err := s.store.FindIngredient(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return models.Purchase{}, fmt.Errorf("%w: ingredient %q", ErrNotFound, key)
		}
		return models.Purchase{}, err
	}

	purchasedAt := s.now()
	if input.PurchasedAt != nil && !input.PurchasedAt.IsZero() {
		purchasedAt = *input.PurchasedAt
	}

	purchase := models.Purchase{
		IngredientKey:  key,
		IngredientName: firstNonBlank(ingredient.Name, key),
		Amount:         input.Amount,
		Unit:           models.SanitizeUnit(input.Unit),
		Price:          input.Price,
		PurchasedAt:    purchasedAt.UTC(),
	}
	if err := s.store.CreatePurchase(ctx, &purchase); err != nil {
		return models.Purchase{}, fmt.Errorf("create purchase: %w", err)
	}
	return purchase, nil
}

func parseRangeBound(value string, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed.UTC(), nil
	}
	if parsed, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return parsed.UTC(), nil
	}
	day, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Millisecond), nil
	}
	return day, nil
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
