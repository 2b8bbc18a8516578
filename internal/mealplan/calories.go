package mealplan

import (
	"context"
	"fmt"
	"time"

	"mealplanner/models"
)

// ComputeDishCalories totals the calories of ingredients against the reference
// entries. Each ingredient is matched on its resolved key and sanitized unit;
// among the matching entries with a positive amount the one with the largest
// amount is used, the first seen winning ties. Ingredients without a match
// contribute nothing.
func ComputeDishCalories(ingredients []models.DishIngredient, reference []models.CalorieEntry) float64 {
	if len(ingredients) == 0 {
		return 0
	}

	best := make(map[string]models.CalorieEntry, len(reference))
	for _, entry := range reference {
		if entry.Amount <= 0 {
			continue
		}
		lookup := referenceKey(entry.IngredientKey, entry.Unit)
		if current, ok := best[lookup]; ok && entry.Amount <= current.Amount {
			continue
		}
		best[lookup] = entry
	}

	total := 0.0
	for _, ingredient := range ingredients {
		key := ingredient.ResolvedKey()
		if key == "" {
			continue
		}
		entry, ok := best[referenceKey(key, ingredient.Unit)]
		if !ok {
			continue
		}
		qty := ingredient.Qty
		if qty < 0 {
			qty = 0
		}
		total += qty / entry.Amount * entry.Calories
	}
	return total
}

func referenceKey(key, unit string) string {
	return models.NormalizeKey(key) + "::" + models.SanitizeUnit(unit)
}

// DishCalories loads the reference entries for ingredients and computes the total.
func (s *Service) DishCalories(ctx context.Context, ingredients []models.DishIngredient) (float64, error) {
	started := time.Now()

	keys := distinctKeys(ingredients)
	if len(keys) == 0 {
		return 0, nil
	}

	reference, err := s.store.CalorieEntriesForKeys(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("load calorie references: %w", err)
	}

	total := ComputeDishCalories(ingredients, reference)
	if s.recorder != nil {
		s.recorder.ObserveDishCalories(len(ingredients), time.Since(started))
	}
	return total, nil
}

func distinctKeys(ingredients []models.DishIngredient) []string {
	seen := make(map[string]struct{}, len(ingredients))
	keys := make([]string, 0, len(ingredients))
	for _, ingredient := range ingredients {
		key := ingredient.ResolvedKey()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
