package mealplan

import (
	"context"
	"time"

	"mealplanner/models"
)

// PurchaseFilter narrows ListPurchases. Zero values leave a bound open.
type PurchaseFilter struct {
	Start         time.Time
	End           time.Time
	IngredientKey string
}

// Store is the persistence collaborator used by Service. Lookups of a single
// record return ErrNotFound when nothing matches.
type Store interface {
	FindDish(ctx context.Context, id string) (models.Dish, error)
	FindDishes(ctx context.Context, ids []string) ([]models.Dish, error)
	ListDishes(ctx context.Context) ([]models.Dish, error)
	SaveDish(ctx context.Context, dish *models.Dish) error
	DeleteDish(ctx context.Context, id string) error

	FindPlan(ctx context.Context, date string) (models.DayPlan, error)
	// PlansInRange returns plans with start <= date <= end ordered by date.
	// An empty bound is open.
	PlansInRange(ctx context.Context, start, end string) ([]models.DayPlan, error)
	SavePlan(ctx context.Context, plan *models.DayPlan) error
	DeletePlan(ctx context.Context, date string) error

	FindIngredient(ctx context.Context, key string) (models.Ingredient, error)
	ListIngredients(ctx context.Context) ([]models.Ingredient, error)
	// UpsertIngredient inserts a directory row for key or overwrites its name and unit.
	UpsertIngredient(ctx context.Context, key, name, unit string) error
	SaveIngredient(ctx context.Context, ingredient *models.Ingredient) error
	// RekeyCalorieEntries moves calorie references from oldKey to newKey and renames them.
	RekeyCalorieEntries(ctx context.Context, oldKey, newKey, name string) error

	FindCalorieEntry(ctx context.Context, id uint) (models.CalorieEntry, error)
	FindCalorieEntryByReference(ctx context.Context, key, unit string, amount float64) (models.CalorieEntry, error)
	ListCalorieEntries(ctx context.Context) ([]models.CalorieEntry, error)
	CalorieEntriesForKeys(ctx context.Context, keys []string) ([]models.CalorieEntry, error)
	SaveCalorieEntry(ctx context.Context, entry *models.CalorieEntry) error
	DeleteCalorieEntry(ctx context.Context, id uint) error

	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	ListPurchases(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, error)

	// Transaction runs fn against a Store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(Store) error) error
}
