package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"mealplanner/internal/auth"
	"mealplanner/internal/config"
	applog "mealplanner/internal/log"
	"mealplanner/models"
)

type baseCalorie struct {
	Name     string
	Unit     string
	Amount   float64
	Calories float64
}

// baseCalories is the reference data every fresh installation starts with.
var baseCalories = []baseCalorie{
	{Name: "Chicken breast", Unit: "g", Amount: 100, Calories: 165},
	{Name: "Rice", Unit: "g", Amount: 100, Calories: 130},
	{Name: "Egg", Unit: "pcs", Amount: 1, Calories: 78},
	{Name: "Milk", Unit: "ml", Amount: 100, Calories: 42},
	{Name: "Olive oil", Unit: "tbsp", Amount: 1, Calories: 119},
	{Name: "Oats", Unit: "g", Amount: 100, Calories: 389},
	{Name: "Tomato", Unit: "g", Amount: 100, Calories: 18},
}

// Seed makes sure the admin account and the base reference data exist.
// Every step is idempotent so Seed runs on each startup.
func Seed(ctx context.Context, db *gorm.DB, admin config.AdminConfig) error {
	if db == nil {
		return fmt.Errorf("database handle is nil")
	}
	if err := ensureAdminUser(ctx, db, admin); err != nil {
		return err
	}
	return seedBaseCalories(ctx, db)
}

func ensureAdminUser(ctx context.Context, db *gorm.DB, admin config.AdminConfig) error {
	login := strings.TrimSpace(admin.Login)
	if login == "" {
		return nil
	}

	var existing models.User
	err := db.WithContext(ctx).Where("login = ?", login).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("lookup admin user: %w", err)
	}

	if strings.TrimSpace(admin.InitialPassword) == "" {
		applog.Warn(ctx, "ADMIN_INITIAL_PASSWORD not set; admin user not created", "login", login)
		return nil
	}

	hash, err := auth.HashPassword(admin.InitialPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	user := models.User{
		Login:        login,
		Name:         "Administrator",
		PasswordHash: hash,
		IsAdmin:      true,
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	applog.Info(ctx, "created initial admin user", "login", login)
	return nil
}

func seedBaseCalories(ctx context.Context, db *gorm.DB) error {
	for _, base := range baseCalories {
		unit := models.SanitizeUnit(base.Unit)
		key := models.IngredientKey(base.Name, unit)

		ingredient := models.Ingredient{Key: key, Name: base.Name, Unit: unit, Translations: datatypes.JSONMap{}}
		if err := db.WithContext(ctx).Where("key = ?", key).FirstOrCreate(&ingredient).Error; err != nil {
			return fmt.Errorf("seed ingredient %s: %w", key, err)
		}

		entry := models.CalorieEntry{
			IngredientKey:  key,
			IngredientName: base.Name,
			Unit:           unit,
			Amount:         base.Amount,
			Calories:       base.Calories,
		}
		if err := db.WithContext(ctx).
			Where("ingredient_key = ? AND unit = ? AND amount = ?", key, unit, base.Amount).
			FirstOrCreate(&entry).Error; err != nil {
			return fmt.Errorf("seed calorie entry %s: %w", key, err)
		}
	}
	applog.Debug(ctx, "base calorie references ensured", "count", len(baseCalories))
	return nil
}
