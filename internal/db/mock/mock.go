package mock

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mealplanner/internal/auth"
	"mealplanner/internal/config"
	"mealplanner/internal/db"
	applog "mealplanner/internal/log"
	"mealplanner/internal/mealplan"
	"mealplanner/internal/store"
	"mealplanner/models"
)

const (
	// AdminLogin and AdminPassword sign in to the demo database as administrator.
	AdminLogin    = "admin"
	AdminPassword = "planner"
	// CookLogin and CookPassword sign in as a regular household member.
	CookLogin    = "cook"
	CookPassword = "kitchen"
)

// New returns an in-memory sqlite database seeded with a small demo household.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	conn, err := gorm.Open(sqlite.Open("file:mealplanner-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(conn); err != nil {
		return nil, err
	}

	if err := seed(ctx, conn, time.Now().UTC()); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return conn, nil
}

type demoDish struct {
	id          string
	name        string
	meal        string
	notes       string
	ingredients []models.DishIngredient
}

var demoDishes = []demoDish{
	{
		id: "oatmeal", name: "Oatmeal", meal: "breakfast",
		notes: "Top with fruit.",
		ingredients: []models.DishIngredient{
			{Name: "Oats", Unit: "g", Qty: 60},
			{Name: "Milk", Unit: "ml", Qty: 200},
		},
	},
	{
		id: "chicken-rice", name: "Chicken with rice", meal: "lunch",
		ingredients: []models.DishIngredient{
			{Name: "Chicken breast", Unit: "g", Qty: 150},
			{Name: "Rice", Unit: "g", Qty: 120},
			{Name: "Olive oil", Unit: "tbsp", Qty: 1},
		},
	},
	{
		id: "tomato-omelette", name: "Tomato omelette", meal: "dinner",
		ingredients: []models.DishIngredient{
			{Name: "Egg", Unit: "pcs", Qty: 3},
			{Name: "Tomato", Unit: "g", Qty: 100},
			{Name: "Chives", Unit: "g", Qty: 5},
		},
	},
}

func seed(ctx context.Context, conn *gorm.DB, now time.Time) error {
	applog.Debug(ctx, "seeding mock database")

	if err := db.Seed(ctx, conn, config.AdminConfig{Login: AdminLogin, InitialPassword: AdminPassword}); err != nil {
		return err
	}

	hash, err := auth.HashPassword(CookPassword)
	if err != nil {
		return err
	}
	if err := conn.WithContext(ctx).Create(&models.User{Login: CookLogin, Name: "Home Cook", PasswordHash: hash}).Error; err != nil {
		return err
	}

	planner := mealplan.NewService(store.New(conn), mealplan.Options{Now: func() time.Time { return now }})
	author := mealplan.Author{Login: CookLogin, Name: "Home Cook"}
	for _, demo := range demoDishes {
		name, meal, notes := demo.name, demo.meal, demo.notes
		ingredients := append([]models.DishIngredient(nil), demo.ingredients...)
		if _, err := planner.CreateDish(ctx, mealplan.DishInput{
			ID:          demo.id,
			Name:        &name,
			Meal:        &meal,
			Notes:       &notes,
			Ingredients: &ingredients,
		}, author); err != nil {
			return err
		}
	}

	for offset := 0; offset < 3; offset++ {
		date := now.AddDate(0, 0, offset).Format("2006-01-02")
		slots := map[string]*string{
			"breakfast": strPtr("oatmeal"),
			"lunch":     strPtr("chicken-rice"),
		}
		if offset%2 == 0 {
			slots["dinner"] = strPtr("tomato-omelette")
		}
		if _, err := planner.SavePlan(ctx, date, slots); err != nil {
			return err
		}
	}

	purchasedAt := now.AddDate(0, 0, -1)
	if _, err := planner.CreatePurchase(ctx, mealplan.PurchaseInput{
		IngredientKey: models.IngredientKey("Oats", "g"),
		Amount:        500,
		Unit:          "g",
		Price:         1.49,
		PurchasedAt:   &purchasedAt,
	}); err != nil {
		return err
	}

	return nil
}

func strPtr(v string) *string { return &v }
