package mealplan

import (
	"context"
	"fmt"
	"strings"

	"mealplanner/models"
)

// EnsureIngredientEntries upserts a directory row for every named ingredient.
// Existing rows take the latest name and unit.
func (s *Service) EnsureIngredientEntries(ctx context.Context, ingredients []models.DishIngredient) error {
	for _, ingredient := range ingredients {
		name := strings.TrimSpace(ingredient.Name)
		if name == "" {
			continue
		}
		unit := models.SanitizeUnit(ingredient.Unit)
		key := models.IngredientKey(name, unit)
		if err := s.store.UpsertIngredient(ctx, key, name, unit); err != nil {
			return fmt.Errorf("upsert ingredient %s: %w", key, err)
		}
	}
	return nil
}
