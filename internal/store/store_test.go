package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mealplanner/internal/db"
	"mealplanner/internal/mealplan"
	"mealplanner/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	database, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), db.GormConfig("", logger.Silent))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))
	return New(database)
}

func TestUpsertIngredientKeepsOneRowPerKey(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.UpsertIngredient(ctx, "rice__g", "rice", "g"))
	require.NoError(t, s.UpsertIngredient(ctx, "rice__g", "Rice", "g"))

	items, err := s.ListIngredients(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Rice", items[0].Name)
	assert.NotNil(t, items[0].Translations)
}

func TestSaveDishReplacesIngredients(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	dish := &models.Dish{
		ID:   "omelette",
		Name: "Omelette",
		Meal: models.SlotBreakfast,
		Ingredients: []models.DishIngredient{
			{Name: "Egg", Unit: "pcs", Qty: 2},
			{Name: "Milk", Unit: "ml", Qty: 30},
		},
	}
	require.NoError(t, s.SaveDish(ctx, dish))

	loaded, err := s.FindDish(ctx, "omelette")
	require.NoError(t, err)
	require.Len(t, loaded.Ingredients, 2)
	assert.Equal(t, "Egg", loaded.Ingredients[0].Name)
	assert.Equal(t, "Milk", loaded.Ingredients[1].Name)

	loaded.Ingredients = []models.DishIngredient{{Name: "Egg", Unit: "pcs", Qty: 3}}
	require.NoError(t, s.SaveDish(ctx, &loaded))

	reloaded, err := s.FindDish(ctx, "omelette")
	require.NoError(t, err)
	require.Len(t, reloaded.Ingredients, 1)
	assert.Equal(t, 3.0, reloaded.Ingredients[0].Qty)
}

func TestDeleteDishReportsMissing(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	err := s.DeleteDish(ctx, "ghost")
	assert.ErrorIs(t, err, mealplan.ErrNotFound)

	_, err = s.FindDish(ctx, "ghost")
	assert.ErrorIs(t, err, mealplan.ErrNotFound)
}

func TestPlansInRangeOrdersByDateAndSlot(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	plans := []models.DayPlan{
		{DateISO: "2024-03-03", Slots: []models.PlanSlot{{Slot: models.SlotDinner, DishID: "c"}}},
		{DateISO: "2024-03-01", Slots: []models.PlanSlot{
			{Slot: models.SlotDinner, DishID: "b"},
			{Slot: models.SlotBreakfast, DishID: "a"},
		}},
		{DateISO: "2024-03-10", Slots: []models.PlanSlot{{Slot: models.SlotLunch, DishID: "z"}}},
	}
	for i := range plans {
		require.NoError(t, s.SavePlan(ctx, &plans[i]))
	}

	got, err := s.PlansInRange(ctx, "2024-03-01", "2024-03-03")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-03-01", got[0].DateISO)
	assert.Equal(t, []string{"a", "b"}, got[0].DishIDs())
	assert.Equal(t, "2024-03-03", got[1].DateISO)

	open, err := s.PlansInRange(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, open, 3)
}

func TestSavePlanReplacesSlots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	plan := &models.DayPlan{DateISO: "2024-04-01", Slots: []models.PlanSlot{
		{Slot: models.SlotLunch, DishID: "soup"},
		{Slot: models.SlotDinner, DishID: "stew"},
	}}
	require.NoError(t, s.SavePlan(ctx, plan))

	replacement := &models.DayPlan{DateISO: "2024-04-01", Slots: []models.PlanSlot{
		{Slot: models.SlotSnack, DishID: "apple"},
	}}
	require.NoError(t, s.SavePlan(ctx, replacement))

	loaded, err := s.FindPlan(ctx, "2024-04-01")
	require.NoError(t, err)
	assert.Equal(t, map[models.MealSlot]string{models.SlotSnack: "apple"}, loaded.SlotMap())

	require.NoError(t, s.DeletePlan(ctx, "2024-04-01"))
	assert.ErrorIs(t, s.DeletePlan(ctx, "2024-04-01"), mealplan.ErrNotFound)
}

func TestCalorieEntryLookups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	entries := []models.CalorieEntry{
		{IngredientKey: "rice__g", IngredientName: "Rice", Unit: "g", Amount: 100, Calories: 130},
		{IngredientKey: "egg__pcs", IngredientName: "Egg", Unit: "pcs", Amount: 1, Calories: 78},
	}
	for i := range entries {
		require.NoError(t, s.SaveCalorieEntry(ctx, &entries[i]))
	}

	found, err := s.CalorieEntriesForKeys(ctx, []string{"rice__g"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 130.0, found[0].Calories)

	match, err := s.FindCalorieEntryByReference(ctx, "egg__pcs", "pcs", 1)
	require.NoError(t, err)
	assert.Equal(t, entries[1].ID, match.ID)

	require.NoError(t, s.RekeyCalorieEntries(ctx, "egg__pcs", "hen egg__pcs", "Hen egg"))
	renamed, err := s.FindCalorieEntry(ctx, entries[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "hen egg__pcs", renamed.IngredientKey)
	assert.Equal(t, "Hen egg", renamed.IngredientName)

	require.NoError(t, s.DeleteCalorieEntry(ctx, entries[0].ID))
	assert.ErrorIs(t, s.DeleteCalorieEntry(ctx, entries[0].ID), mealplan.ErrNotFound)
}

func TestListPurchasesFilters(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	base := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	purchases := []models.Purchase{
		{IngredientKey: "rice__g", IngredientName: "Rice", Amount: 1000, Unit: "g", Price: 2.5, PurchasedAt: base},
		{IngredientKey: "rice__g", IngredientName: "Rice", Amount: 500, Unit: "g", Price: 1.5, PurchasedAt: base.Add(48 * time.Hour)},
		{IngredientKey: "egg__pcs", IngredientName: "Egg", Amount: 12, Unit: "pcs", Price: 3, PurchasedAt: base.Add(24 * time.Hour)},
	}
	for i := range purchases {
		require.NoError(t, s.CreatePurchase(ctx, &purchases[i]))
		assert.NotEmpty(t, purchases[i].ID)
	}

	all, err := s.ListPurchases(ctx, mealplan.PurchaseFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 500.0, all[0].Amount)

	rice, err := s.ListPurchases(ctx, mealplan.PurchaseFilter{
		IngredientKey: "rice__g",
		End:           base.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, rice, 1)
	assert.Equal(t, 1000.0, rice[0].Amount)
}

func TestTransactionRollsBack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)

	err := s.Transaction(ctx, func(tx mealplan.Store) error {
		if err := tx.UpsertIngredient(ctx, "salt__g", "Salt", "g"); err != nil {
			return err
		}
		return mealplan.ErrConflict
	})
	require.ErrorIs(t, err, mealplan.ErrConflict)

	_, err = s.FindIngredient(ctx, "salt__g")
	assert.ErrorIs(t, err, mealplan.ErrNotFound)
}
