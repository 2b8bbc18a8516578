package mealplan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"mealplanner/models"
)

// CalorieInput creates or patches a calorie reference. On update nil fields keep their value.
type CalorieInput struct {
	IngredientKey *string  `json:"ingredientKey"`
	Unit          *string  `json:"unit"`
	Amount        *float64 `json:"amount"`
	Calories      *float64 `json:"calories"`
}

// ListCalorieEntries returns every reference ordered by ingredient name, unit and amount.
func (s *Service) ListCalorieEntries(ctx context.Context) ([]models.CalorieEntry, error) {
	entries, err := s.store.ListCalorieEntries(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IngredientName != b.IngredientName {
			return a.IngredientName < b.IngredientName
		}
		if a.Unit != b.Unit {
			return a.Unit < b.Unit
		}
		return a.Amount < b.Amount
	})
	return entries, nil
}

// CreateCalorieEntry records calories for an amount of a directory ingredient.
func (s *Service) CreateCalorieEntry(ctx context.Context, input CalorieInput) (models.CalorieEntry, error) {
	if input.IngredientKey == nil || input.Unit == nil || input.Amount == nil || input.Calories == nil {
		return models.CalorieEntry{}, fmt.Errorf("%w: ingredientKey, unit, amount and calories are required", ErrInvalidInput)
	}
	entry := models.CalorieEntry{}
	if err := applyCalorieInput(&entry, input); err != nil {
		return models.CalorieEntry{}, err
	}

	err := s.store.Transaction(ctx, func(tx Store) error {
		if err := resolveCalorieIngredient(ctx, tx, &entry); err != nil {
			return err
		}
		if err := ensureUniqueReference(ctx, tx, entry); err != nil {
			return err
		}
		return tx.SaveCalorieEntry(ctx, &entry)
	})
	if err != nil {
		return models.CalorieEntry{}, err
	}
	return entry, nil
}

// UpdateCalorieEntry patches an existing reference.
func (s *Service) UpdateCalorieEntry(ctx context.Context, id uint, input CalorieInput) (models.CalorieEntry, error) {
	var entry models.CalorieEntry
	err := s.store.Transaction(ctx, func(tx Store) error {
		existing, err := tx.FindCalorieEntry(ctx, id)
		if err != nil {
			return err
		}
		previousKey := existing.IngredientKey
		if err := applyCalorieInput(&existing, input); err != nil {
			return err
		}
		if existing.IngredientKey != previousKey {
			if err := resolveCalorieIngredient(ctx, tx, &existing); err != nil {
				return err
			}
		}
		if err := ensureUniqueReference(ctx, tx, existing); err != nil {
			return err
		}
		if err := tx.SaveCalorieEntry(ctx, &existing); err != nil {
			return err
		}
		entry = existing
		return nil
	})
	if err != nil {
		return models.CalorieEntry{}, err
	}
	return entry, nil
}

// DeleteCalorieEntry removes a reference by id.
func (s *Service) DeleteCalorieEntry(ctx context.Context, id uint) error {
	return s.store.DeleteCalorieEntry(ctx, id)
}

func applyCalorieInput(entry *models.CalorieEntry, input CalorieInput) error {
	if input.IngredientKey != nil {
		key := models.NormalizeKey(*input.IngredientKey)
		if key == "" {
			return fmt.Errorf("%w: ingredientKey must not be blank", ErrInvalidInput)
		}
		entry.IngredientKey = key
	}
	if input.Unit != nil {
		if !models.ValidUnit(*input.Unit) {
			return fmt.Errorf("%w: unsupported unit %q", ErrInvalidInput, *input.Unit)
		}
		entry.Unit = models.SanitizeUnit(*input.Unit)
	}
	if input.Amount != nil {
		if *input.Amount <= 0 {
			return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
		}
		entry.Amount = *input.Amount
	}
	if input.Calories != nil {
		if *input.Calories < 0 {
			return fmt.Errorf("%w: calories must not be negative", ErrInvalidInput)
		}
		entry.Calories = *input.Calories
	}
	return nil
}

func resolveCalorieIngredient(ctx context.Context, store Store, entry *models.CalorieEntry) error {
	ingredient, err := store.FindIngredient(ctx, entry.IngredientKey)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: ingredient %q", ErrNotFound, entry.IngredientKey)
		}
		return err
	}
	entry.IngredientName = strings.TrimSpace(ingredient.Name)
	if entry.IngredientName == "" {
		entry.IngredientName = entry.IngredientKey
	}
	return nil
}

func ensureUniqueReference(ctx context.Context, store Store, entry models.CalorieEntry) error {
	duplicate, err := store.FindCalorieEntryByReference(ctx, entry.IngredientKey, entry.Unit, entry.Amount)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if duplicate.ID != entry.ID {
		return fmt.Errorf("%w: calorie entry already exists", ErrConflict)
	}
	return nil
}
