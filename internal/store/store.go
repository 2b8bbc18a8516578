// Package store implements mealplan.Store on top of gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mealplanner/internal/mealplan"
	"mealplanner/models"
)

// Store persists planner records through gorm.
type Store struct {
	db *gorm.DB
}

var _ mealplan.Store = (*Store)(nil)

// New wraps db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: "+format, append([]any{mealplan.ErrNotFound}, args...)...)
	}
	return err
}

func orderedIngredients(tx *gorm.DB) *gorm.DB {
	return tx.Order("position ASC")
}

// Transaction runs fn inside a database transaction.
func (s *Store) Transaction(ctx context.Context, fn func(mealplan.Store) error) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func (s *Store) FindDish(ctx context.Context, id string) (models.Dish, error) {
	var dish models.Dish
	err := s.conn(ctx).Preload("Ingredients", orderedIngredients).Where("id = ?", id).First(&dish).Error
	if err != nil {
		return models.Dish{}, notFound(err, "dish %q", id)
	}
	return dish, nil
}

func (s *Store) FindDishes(ctx context.Context, ids []string) ([]models.Dish, error) {
	dishes := []models.Dish{}
	if len(ids) == 0 {
		return dishes, nil
	}
	err := s.conn(ctx).Preload("Ingredients", orderedIngredients).Where("id IN ?", ids).Find(&dishes).Error
	return dishes, err
}

func (s *Store) ListDishes(ctx context.Context) ([]models.Dish, error) {
	dishes := []models.Dish{}
	err := s.conn(ctx).Preload("Ingredients", orderedIngredients).Order("id ASC").Find(&dishes).Error
	return dishes, err
}

// SaveDish replaces the dish row and its ingredient rows.
func (s *Store) SaveDish(ctx context.Context, dish *models.Dish) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		write := tx.Omit(clause.Associations)
		if dish.CreatedAt.IsZero() {
			write = write.Create(dish)
		} else {
			write = write.Save(dish)
		}
		if err := write.Error; err != nil {
			return err
		}
		if err := tx.Where("dish_id = ?", dish.ID).Delete(&models.DishIngredient{}).Error; err != nil {
			return err
		}
		if len(dish.Ingredients) == 0 {
			return nil
		}
		for idx := range dish.Ingredients {
			dish.Ingredients[idx].ID = 0
			dish.Ingredients[idx].DishID = dish.ID
			dish.Ingredients[idx].Position = idx
		}
		return tx.Create(&dish.Ingredients).Error
	})
}

func (s *Store) DeleteDish(ctx context.Context, id string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ?", id).Delete(&models.Dish{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: dish %q", mealplan.ErrNotFound, id)
		}
		return tx.Where("dish_id = ?", id).Delete(&models.DishIngredient{}).Error
	})
}

func (s *Store) FindPlan(ctx context.Context, date string) (models.DayPlan, error) {
	var plan models.DayPlan
	if err := s.conn(ctx).Preload("Slots").Where("date_iso = ?", date).First(&plan).Error; err != nil {
		return models.DayPlan{}, notFound(err, "plan %q", date)
	}
	return plan, nil
}

func (s *Store) PlansInRange(ctx context.Context, start, end string) ([]models.DayPlan, error) {
	query := s.conn(ctx).Preload("Slots")
	if start != "" {
		query = query.Where("date_iso >= ?", start)
	}
	if end != "" {
		query = query.Where("date_iso <= ?", end)
	}
	plans := []models.DayPlan{}
	if err := query.Order("date_iso ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	for idx := range plans {
		slots := plans[idx].Slots
		sort.SliceStable(slots, func(i, j int) bool {
			return models.SlotRank(slots[i].Slot) < models.SlotRank(slots[j].Slot)
		})
	}
	return plans, nil
}

// SavePlan replaces every slot of the plan's day.
func (s *Store) SavePlan(ctx context.Context, plan *models.DayPlan) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date_iso"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).Create(plan).Error
		if err != nil {
			return err
		}
		if err := tx.Where("plan_date = ?", plan.DateISO).Delete(&models.PlanSlot{}).Error; err != nil {
			return err
		}
		if len(plan.Slots) == 0 {
			return nil
		}
		for idx := range plan.Slots {
			plan.Slots[idx].ID = 0
			plan.Slots[idx].PlanDate = plan.DateISO
		}
		return tx.Create(&plan.Slots).Error
	})
}

func (s *Store) DeletePlan(ctx context.Context, date string) error {
	return s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("date_iso = ?", date).Delete(&models.DayPlan{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: plan %q", mealplan.ErrNotFound, date)
		}
		return tx.Where("plan_date = ?", date).Delete(&models.PlanSlot{}).Error
	})
}

func (s *Store) FindIngredient(ctx context.Context, key string) (models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := s.conn(ctx).Where("key = ?", key).First(&ingredient).Error; err != nil {
		return models.Ingredient{}, notFound(err, "ingredient %q", key)
	}
	return ingredient, nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]models.Ingredient, error) {
	items := []models.Ingredient{}
	err := s.conn(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

// UpsertIngredient inserts the entry with empty translations or overwrites name and unit.
func (s *Store) UpsertIngredient(ctx context.Context, key, name, unit string) error {
	ingredient := models.Ingredient{Key: key, Name: name, Unit: unit, Translations: datatypes.JSONMap{}}
	return s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "unit", "updated_at"}),
	}).Create(&ingredient).Error
}

func (s *Store) SaveIngredient(ctx context.Context, ingredient *models.Ingredient) error {
	if ingredient.Translations == nil {
		ingredient.Translations = datatypes.JSONMap{}
	}
	return s.conn(ctx).Save(ingredient).Error
}

func (s *Store) RekeyCalorieEntries(ctx context.Context, oldKey, newKey, name string) error {
	return s.conn(ctx).Model(&models.CalorieEntry{}).
		Where("ingredient_key = ?", oldKey).
		Updates(map[string]any{"ingredient_key": newKey, "ingredient_name": name}).Error
}

func (s *Store) FindCalorieEntry(ctx context.Context, id uint) (models.CalorieEntry, error) {
	var entry models.CalorieEntry
	if err := s.conn(ctx).First(&entry, id).Error; err != nil {
		return models.CalorieEntry{}, notFound(err, "calorie entry %d", id)
	}
	return entry, nil
}

func (s *Store) FindCalorieEntryByReference(ctx context.Context, key, unit string, amount float64) (models.CalorieEntry, error) {
	var entry models.CalorieEntry
	err := s.conn(ctx).
		Where("ingredient_key = ? AND unit = ? AND amount = ?", key, unit, amount).
		First(&entry).Error
	if err != nil {
		return models.CalorieEntry{}, notFound(err, "calorie entry %s/%s/%g", key, unit, amount)
	}
	return entry, nil
}

func (s *Store) ListCalorieEntries(ctx context.Context) ([]models.CalorieEntry, error) {
	entries := []models.CalorieEntry{}
	err := s.conn(ctx).Order("ingredient_name ASC, unit ASC, amount ASC").Find(&entries).Error
	return entries, err
}

func (s *Store) CalorieEntriesForKeys(ctx context.Context, keys []string) ([]models.CalorieEntry, error) {
	entries := []models.CalorieEntry{}
	if len(keys) == 0 {
		return entries, nil
	}
	err := s.conn(ctx).Where("ingredient_key IN ?", keys).Order("id ASC").Find(&entries).Error
	return entries, err
}

func (s *Store) SaveCalorieEntry(ctx context.Context, entry *models.CalorieEntry) error {
	return s.conn(ctx).Save(entry).Error
}

func (s *Store) DeleteCalorieEntry(ctx context.Context, id uint) error {
	result := s.conn(ctx).Delete(&models.CalorieEntry{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: calorie entry %d", mealplan.ErrNotFound, id)
	}
	return nil
}

func (s *Store) CreatePurchase(ctx context.Context, purchase *models.Purchase) error {
	return s.conn(ctx).Create(purchase).Error
}

func (s *Store) ListPurchases(ctx context.Context, filter mealplan.PurchaseFilter) ([]models.Purchase, error) {
	query := s.conn(ctx)
	if !filter.Start.IsZero() {
		query = query.Where("purchased_at >= ?", filter.Start)
	}
	if !filter.End.IsZero() {
		query = query.Where("purchased_at <= ?", filter.End)
	}
	if filter.IngredientKey != "" {
		query = query.Where("ingredient_key = ?", filter.IngredientKey)
	}
	purchases := []models.Purchase{}
	err := query.Order("purchased_at DESC").Find(&purchases).Error
	return purchases, err
}
