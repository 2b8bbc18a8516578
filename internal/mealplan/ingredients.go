package mealplan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"

	"mealplanner/models"
)

// IngredientInput is the payload for creating or editing a directory entry.
type IngredientInput struct {
	Name         string            `json:"name"`
	Unit         string            `json:"unit"`
	Translations map[string]string `json:"translations"`
}

// ListIngredients returns the directory sorted by name, ignoring case.
// Stored units are re-sanitized on the way out.
func (s *Service) ListIngredients(ctx context.Context) ([]models.Ingredient, error) {
	items, err := s.store.ListIngredients(ctx)
	if err != nil {
		return nil, err
	}
	for idx := range items {
		items[idx].Unit = models.SanitizeUnit(items[idx].Unit)
		if items[idx].Translations == nil {
			items[idx].Translations = datatypes.JSONMap{}
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items, nil
}

// CreateIngredient inserts a new directory entry. An existing key is a conflict.
func (s *Service) CreateIngredient(ctx context.Context, input IngredientInput) (models.Ingredient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.Ingredient{}, fmt.Errorf("%w: ingredient name is required", ErrInvalidInput)
	}
	unit := models.SanitizeUnit(input.Unit)
	ingredient := models.Ingredient{
		Key:          models.IngredientKey(name, unit),
		Name:         name,
		Unit:         unit,
		Translations: cleanTranslations(input.Translations),
	}

	err := s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.FindIngredient(ctx, ingredient.Key); err == nil {
			return fmt.Errorf("%w: ingredient %q already exists", ErrConflict, ingredient.Key)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return tx.SaveIngredient(ctx, &ingredient)
	})
	if err != nil {
		return models.Ingredient{}, err
	}
	return ingredient, nil
}

// UpdateIngredient rewrites the entry stored under key. When name or unit
// change its key, calorie references follow the new key and name.
func (s *Service) UpdateIngredient(ctx context.Context, key string, input IngredientInput) (models.Ingredient, error) {
	key = models.NormalizeKey(key)
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return models.Ingredient{}, fmt.Errorf("%w: ingredient name is required", ErrInvalidInput)
	}
	unit := models.SanitizeUnit(input.Unit)
	newKey := models.IngredientKey(name, unit)

	var updated models.Ingredient
	err := s.store.Transaction(ctx, func(tx Store) error {
		existing, err := tx.FindIngredient(ctx, key)
		if err != nil {
			return err
		}
		if newKey != key {
			if _, err := tx.FindIngredient(ctx, newKey); err == nil {
				return fmt.Errorf("%w: ingredient %q already exists", ErrConflict, newKey)
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
		}

		existing.Key = newKey
		existing.Name = name
		existing.Unit = unit
		existing.Translations = cleanTranslations(input.Translations)
		if err := tx.SaveIngredient(ctx, &existing); err != nil {
			return err
		}
		if err := tx.RekeyCalorieEntries(ctx, key, newKey, name); err != nil {
			return fmt.Errorf("update calorie references: %w", err)
		}
		updated = existing
		return nil
	})
	if err != nil {
		return models.Ingredient{}, err
	}
	return updated, nil
}

func cleanTranslations(raw map[string]string) datatypes.JSONMap {
	out := datatypes.JSONMap{}
	for lang, value := range raw {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out[lang] = value
	}
	return out
}
