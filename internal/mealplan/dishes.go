package mealplan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mealplanner/models"
)

// Author identifies the user creating a dish.
type Author struct {
	Login string
	Name  string
}

// DishInput carries a dish create or partial update. Nil fields are left untouched on update.
type DishInput struct {
	ID          string                   `json:"id"`
	Name        *string                  `json:"name"`
	Meal        *string                  `json:"meal"`
	Notes       *string                  `json:"notes"`
	Ingredients *[]models.DishIngredient `json:"ingredients"`
}

// ListDishes returns every dish ordered by id.
func (s *Service) ListDishes(ctx context.Context) ([]models.Dish, error) {
	return s.store.ListDishes(ctx)
}

// CreateDish stores a new dish stamped with author, computing its calories and
// syncing the ingredient directory in the same transaction.
func (s *Service) CreateDish(ctx context.Context, input DishInput, author Author) (models.Dish, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return models.Dish{}, fmt.Errorf("%w: dish id is required", ErrInvalidInput)
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		return models.Dish{}, fmt.Errorf("%w: dish name is required", ErrInvalidInput)
	}
	if input.Meal == nil {
		return models.Dish{}, fmt.Errorf("%w: meal is required", ErrInvalidInput)
	}
	meal, err := models.ParseMealSlot(*input.Meal)
	if err != nil {
		return models.Dish{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	dish := models.Dish{
		ID:            id,
		Name:          strings.TrimSpace(*input.Name),
		Meal:          meal,
		CreatedBy:     author.Login,
		CreatedByName: author.Name,
	}
	if input.Notes != nil {
		dish.Notes = *input.Notes
	}
	var ingredients []models.DishIngredient
	if input.Ingredients != nil {
		ingredients = *input.Ingredients
	}
	dish.Ingredients = normalizeIngredients(ingredients)

	err = s.store.Transaction(ctx, func(tx Store) error {
		if _, err := tx.FindDish(ctx, id); err == nil {
			return fmt.Errorf("%w: dish %q already exists", ErrConflict, id)
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		return s.withStore(tx).writeDish(ctx, &dish, true)
	})
	if err != nil {
		return models.Dish{}, err
	}
	return dish, nil
}

// UpdateDish applies the non-nil fields of input to an existing dish. Calories
// and directory entries are refreshed only when ingredients are supplied.
func (s *Service) UpdateDish(ctx context.Context, id string, input DishInput) (models.Dish, error) {
	var dish models.Dish
	err := s.store.Transaction(ctx, func(tx Store) error {
		existing, err := tx.FindDish(ctx, id)
		if err != nil {
			return err
		}
		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return fmt.Errorf("%w: dish name must not be blank", ErrInvalidInput)
			}
			existing.Name = name
		}
		if input.Meal != nil {
			meal, err := models.ParseMealSlot(*input.Meal)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			existing.Meal = meal
		}
		if input.Notes != nil {
			existing.Notes = *input.Notes
		}
		refresh := input.Ingredients != nil
		if refresh {
			existing.Ingredients = normalizeIngredients(*input.Ingredients)
		}
		if err := s.withStore(tx).writeDish(ctx, &existing, refresh); err != nil {
			return err
		}
		dish = existing
		return nil
	})
	if err != nil {
		return models.Dish{}, err
	}
	return dish, nil
}

// DeleteDish removes a dish. Plans referencing it are left as they are.
func (s *Service) DeleteDish(ctx context.Context, id string) error {
	return s.store.DeleteDish(ctx, id)
}

func (s *Service) writeDish(ctx context.Context, dish *models.Dish, refreshIngredients bool) error {
	if refreshIngredients {
		calories, err := s.DishCalories(ctx, dish.Ingredients)
		if err != nil {
			return err
		}
		dish.Calories = calories
	}
	if err := s.store.SaveDish(ctx, dish); err != nil {
		return fmt.Errorf("save dish: %w", err)
	}
	if refreshIngredients {
		return s.EnsureIngredientEntries(ctx, dish.Ingredients)
	}
	return nil
}

func normalizeIngredients(raw []models.DishIngredient) []models.DishIngredient {
	normalized := make([]models.DishIngredient, 0, len(raw))
	for idx, item := range raw {
		ingredient := models.DishIngredient{
			Position: idx,
			Name:     strings.TrimSpace(item.Name),
			Unit:     models.SanitizeUnit(item.Unit),
			Qty:      item.Qty,
		}
		if ingredient.Qty < 0 {
			ingredient.Qty = 0
		}
		ingredient.IngredientKey = models.NormalizeKey(item.IngredientKey)
		if ingredient.IngredientKey == "" && ingredient.Name != "" {
			ingredient.IngredientKey = models.IngredientKey(ingredient.Name, ingredient.Unit)
		}
		normalized = append(normalized, ingredient)
	}
	return normalized
}
