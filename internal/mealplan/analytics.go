package mealplan

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"mealplanner/models"
)

const topEntries = 5

// SpendingRange echoes the bounds a spending report was built for.
type SpendingRange struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
}

// SpendingStats summarises a set of purchases. The normalised fields describe
// the dimension (mass, volume or count) with the largest bought quantity.
type SpendingStats struct {
	TotalSpent              float64  `json:"totalSpent"`
	AverageDailySpend       float64  `json:"averageDailySpend"`
	MedianDailySpend        float64  `json:"medianDailySpend"`
	DaysTracked             int      `json:"daysTracked"`
	AveragePurchase         float64  `json:"averagePurchase"`
	NormalizedUnit          *string  `json:"normalizedUnit"`
	TotalNormalizedQuantity *float64 `json:"totalNormalizedQuantity"`
	AverageUnitPrice        *float64 `json:"averageUnitPrice"`
}

// DailyTotal is the amount spent on one UTC day.
type DailyTotal struct {
	Date  string  `json:"date"`
	Total float64 `json:"total"`
}

// TopSpender is an ingredient ranked by money spent on it.
type TopSpender struct {
	IngredientKey    string   `json:"ingredientKey"`
	Total            float64  `json:"total"`
	Share            float64  `json:"share"`
	Count            int      `json:"count"`
	AverageUnitPrice *float64 `json:"averageUnitPrice"`
	UnitLabel        *string  `json:"unitLabel"`
}

// NutritionStats estimates the calories bought using the calorie references.
type NutritionStats struct {
	TotalCalories         float64 `json:"totalCalories"`
	AverageDailyCalories  float64 `json:"averageDailyCalories"`
	CaloriesPerPurchase   float64 `json:"caloriesPerPurchase"`
	DaysTracked           int     `json:"daysTracked"`
	PurchasesWithCalories int     `json:"purchasesWithCalories"`
}

// TopCalorieItem is an ingredient ranked by calories bought.
type TopCalorieItem struct {
	IngredientKey    string   `json:"ingredientKey"`
	TotalCalories    float64  `json:"totalCalories"`
	Count            int      `json:"count"`
	NormalizedAmount *float64 `json:"normalizedAmount"`
	NormalizedUnit   *string  `json:"normalizedUnit"`
}

// SpendingReport is the response of SpendingAnalytics.
type SpendingReport struct {
	Range         SpendingRange    `json:"range"`
	IngredientKey *string          `json:"ingredientKey"`
	PurchaseCount int              `json:"purchaseCount"`
	Totals        SpendingStats    `json:"totals"`
	AllTime       SpendingStats    `json:"allTime"`
	DailyTotals   []DailyTotal     `json:"dailyTotals"`
	TopSpenders   []TopSpender     `json:"topSpenders"`
	Nutrition     NutritionStats   `json:"nutrition"`
	TopCalories   []TopCalorieItem `json:"topCalories"`
}

// SpendingAnalytics reports spending for purchases inside the optional bounds
// and ingredient filter, alongside all-time totals for comparison.
func (s *Service) SpendingAnalytics(ctx context.Context, start, end, ingredientKey string) (SpendingReport, error) {
	filtered, err := s.ListPurchases(ctx, start, end, ingredientKey)
	if err != nil {
		return SpendingReport{}, err
	}
	all, err := s.store.ListPurchases(ctx, PurchaseFilter{})
	if err != nil {
		return SpendingReport{}, fmt.Errorf("load purchases: %w", err)
	}
	references, err := s.store.ListCalorieEntries(ctx)
	if err != nil {
		return SpendingReport{}, fmt.Errorf("load calorie references: %w", err)
	}

	report := SpendingReport{
		Range:         SpendingRange{Start: optionalString(start), End: optionalString(end)},
		IngredientKey: optionalString(ingredientKey),
		PurchaseCount: len(filtered),
		Totals:        spendStats(filtered),
		AllTime:       spendStats(all),
		DailyTotals:   dailyTotals(filtered),
	}
	report.TopSpenders = topSpenders(filtered, report.Totals.TotalSpent)
	report.Nutrition, report.TopCalories = nutrition(filtered, references)
	return report, nil
}

func spendStats(purchases []models.Purchase) SpendingStats {
	stats := SpendingStats{}
	if len(purchases) == 0 {
		return stats
	}

	byDay := make(map[string]float64)
	type unitTotal struct{ amount, price float64 }
	byBase := make(map[string]*unitTotal)
	var first, last time.Time
	for _, purchase := range purchases {
		day := purchaseDay(purchase)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}
		byDay[day.Format(dateLayout)] += purchase.Price

		if base, amount, ok := models.NormalizeQuantity(purchase.Amount, purchase.Unit); ok {
			bucket, exists := byBase[base]
			if !exists {
				bucket = &unitTotal{}
				byBase[base] = bucket
			}
			bucket.amount += amount
			bucket.price += purchase.Price
		}
	}

	daily := make([]float64, 0, len(byDay))
	for _, total := range byDay {
		stats.TotalSpent += total
		daily = append(daily, total)
	}
	stats.DaysTracked = daysBetween(first, last)
	if stats.DaysTracked > 0 {
		stats.AverageDailySpend = stats.TotalSpent / float64(stats.DaysTracked)
	}
	stats.MedianDailySpend = median(daily)
	stats.AveragePurchase = stats.TotalSpent / float64(len(purchases))

	bases := make([]string, 0, len(byBase))
	for base := range byBase {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	best := ""
	for _, base := range bases {
		if best == "" || byBase[base].amount > byBase[best].amount {
			best = base
		}
	}
	if best != "" && byBase[best].amount > 0 {
		quantity := byBase[best].amount
		unitPrice := byBase[best].price / quantity
		stats.NormalizedUnit = &best
		stats.TotalNormalizedQuantity = &quantity
		stats.AverageUnitPrice = &unitPrice
	}
	return stats
}

func dailyTotals(purchases []models.Purchase) []DailyTotal {
	byDay := make(map[string]float64)
	for _, purchase := range purchases {
		byDay[purchaseDay(purchase).Format(dateLayout)] += purchase.Price
	}
	totals := make([]DailyTotal, 0, len(byDay))
	for day, total := range byDay {
		totals = append(totals, DailyTotal{Date: day, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Date < totals[j].Date })
	return totals
}

func topSpenders(purchases []models.Purchase, totalSpent float64) []TopSpender {
	type bucket struct {
		total          float64
		count          int
		unitPriceSum   float64
		unitPriceCount int
		unitLabel      string
	}
	buckets := make(map[string]*bucket)
	for _, purchase := range purchases {
		key := models.NormalizeKey(purchase.IngredientKey)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.total += purchase.Price
		b.count++
		if base, amount, ok := models.NormalizeQuantity(purchase.Amount, purchase.Unit); ok {
			b.unitPriceSum += purchase.Price / amount
			b.unitPriceCount++
			b.unitLabel = base
		}
	}

	spenders := make([]TopSpender, 0, len(buckets))
	for key, b := range buckets {
		spender := TopSpender{IngredientKey: key, Total: b.total, Count: b.count}
		if totalSpent > 0 {
			spender.Share = b.total / totalSpent
		}
		if b.unitPriceCount > 0 {
			average := b.unitPriceSum / float64(b.unitPriceCount)
			spender.AverageUnitPrice = &average
		}
		if b.unitLabel != "" {
			label := b.unitLabel
			spender.UnitLabel = &label
		}
		spenders = append(spenders, spender)
	}
	sort.Slice(spenders, func(i, j int) bool {
		if spenders[i].Total != spenders[j].Total {
			return spenders[i].Total > spenders[j].Total
		}
		return spenders[i].IngredientKey < spenders[j].IngredientKey
	})
	if len(spenders) > topEntries {
		spenders = spenders[:topEntries]
	}
	return spenders
}

// nutrition converts each purchase into calories using the first reference
// entry of its ingredient whose unit is convertible.
func nutrition(purchases []models.Purchase, references []models.CalorieEntry) (NutritionStats, []TopCalorieItem) {
	if len(purchases) == 0 || len(references) == 0 {
		stats := NutritionStats{}
		if len(purchases) > 0 {
			stats.DaysTracked = 1
		}
		return stats, []TopCalorieItem{}
	}

	byKey := make(map[string][]models.CalorieEntry)
	for _, entry := range references {
		key := models.NormalizeKey(entry.IngredientKey)
		byKey[key] = append(byKey[key], entry)
	}

	type bucket struct {
		calories         float64
		count            int
		normalizedAmount float64
		normalizedUnit   string
	}
	buckets := make(map[string]*bucket)
	stats := NutritionStats{}
	var first, last time.Time
	for _, purchase := range purchases {
		day := purchaseDay(purchase)
		if first.IsZero() || day.Before(first) {
			first = day
		}
		if last.IsZero() || day.After(last) {
			last = day
		}

		key := models.NormalizeKey(purchase.IngredientKey)
		calories, ok := purchaseCalories(purchase, byKey[key])
		if !ok {
			continue
		}
		stats.TotalCalories += calories
		stats.PurchasesWithCalories++

		b, exists := buckets[key]
		if !exists {
			b = &bucket{}
			buckets[key] = b
		}
		b.calories += calories
		b.count++
		if base, amount, ok := models.NormalizeQuantity(purchase.Amount, purchase.Unit); ok {
			b.normalizedAmount += amount
			b.normalizedUnit = base
		}
	}

	stats.DaysTracked = daysBetween(first, last)
	if stats.DaysTracked > 0 {
		stats.AverageDailyCalories = stats.TotalCalories / float64(stats.DaysTracked)
	}
	if stats.PurchasesWithCalories > 0 {
		stats.CaloriesPerPurchase = stats.TotalCalories / float64(stats.PurchasesWithCalories)
	}

	items := make([]TopCalorieItem, 0, len(buckets))
	for key, b := range buckets {
		item := TopCalorieItem{IngredientKey: key, TotalCalories: b.calories, Count: b.count}
		if b.normalizedAmount > 0 {
			amount := b.normalizedAmount
			item.NormalizedAmount = &amount
		}
		if b.normalizedUnit != "" {
			unit := b.normalizedUnit
			item.NormalizedUnit = &unit
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].TotalCalories != items[j].TotalCalories {
			return items[i].TotalCalories > items[j].TotalCalories
		}
		return items[i].IngredientKey < items[j].IngredientKey
	})
	if len(items) > topEntries {
		items = items[:topEntries]
	}
	return stats, items
}

func purchaseCalories(purchase models.Purchase, entries []models.CalorieEntry) (float64, bool) {
	for _, entry := range entries {
		if entry.Amount <= 0 {
			continue
		}
		converted, ok := models.ConvertQuantity(purchase.Amount, purchase.Unit, entry.Unit)
		if !ok {
			continue
		}
		calories := converted / entry.Amount * entry.Calories
		if math.IsNaN(calories) || math.IsInf(calories, 0) {
			continue
		}
		return calories, true
	}
	return 0, false
}

// MissingIngredient names a dish ingredient that could not be priced.
type MissingIngredient struct {
	Ingredient string `json:"ingredient"`
	Unit       string `json:"unit"`
}

// IngredientCost is the priced share of one dish ingredient.
type IngredientCost struct {
	Ingredient string  `json:"ingredient"`
	Amount     float64 `json:"amount"`
	Unit       string  `json:"unit"`
	Cost       float64 `json:"cost"`
}

// DishCost prices one dish from the latest purchase of each ingredient.
type DishCost struct {
	DishID             string              `json:"dishId"`
	Name               string              `json:"name"`
	TotalCost          float64             `json:"totalCost"`
	MissingIngredients []MissingIngredient `json:"missingIngredients"`
	Ingredients        []IngredientCost    `json:"ingredients"`
}

// DishCostReport is the response of DishCostAnalytics.
type DishCostReport struct {
	Dishes        []DishCost `json:"dishes"`
	TotalDishCost float64    `json:"totalDishCost"`
	MissingCount  int        `json:"missingCount"`
	TotalSpent    float64    `json:"totalSpent"`
}

// DishCostAnalytics estimates what one serving of every dish costs. Each
// ingredient is priced by the unit price of its most recent purchase; an
// ingredient without a directory entry, a purchase or a compatible unit is
// reported as missing. Dishes are ordered by cost, most expensive first.
func (s *Service) DishCostAnalytics(ctx context.Context) (DishCostReport, error) {
	dishes, err := s.store.ListDishes(ctx)
	if err != nil {
		return DishCostReport{}, fmt.Errorf("load dishes: %w", err)
	}
	directory, err := s.store.ListIngredients(ctx)
	if err != nil {
		return DishCostReport{}, fmt.Errorf("load ingredients: %w", err)
	}
	purchases, err := s.store.ListPurchases(ctx, PurchaseFilter{})
	if err != nil {
		return DishCostReport{}, fmt.Errorf("load purchases: %w", err)
	}

	options := make(map[string]models.Ingredient, len(directory)*2)
	for _, ingredient := range directory {
		options[models.NormalizeKey(ingredient.Key)] = ingredient
		if strings.TrimSpace(ingredient.Name) != "" && strings.TrimSpace(ingredient.Unit) != "" {
			options[models.IngredientKey(ingredient.Name, ingredient.Unit)] = ingredient
		}
	}
	// Purchases arrive newest first, so the head of each slice is the latest.
	latest := make(map[string]models.Purchase)
	for _, purchase := range purchases {
		key := models.NormalizeKey(purchase.IngredientKey)
		if _, ok := latest[key]; !ok {
			latest[key] = purchase
		}
	}

	report := DishCostReport{Dishes: make([]DishCost, 0, len(dishes))}
	for _, purchase := range purchases {
		report.TotalSpent += purchase.Price
	}
	for _, dish := range dishes {
		summary := DishCost{
			DishID:             dish.ID,
			Name:               dish.Name,
			MissingIngredients: []MissingIngredient{},
			Ingredients:        []IngredientCost{},
		}
		for _, ingredient := range dish.Ingredients {
			cost, ok := ingredientCost(ingredient, options, latest)
			if !ok {
				summary.MissingIngredients = append(summary.MissingIngredients, MissingIngredient{
					Ingredient: strings.TrimSpace(ingredient.Name),
					Unit:       strings.ToLower(strings.TrimSpace(ingredient.Unit)),
				})
				continue
			}
			summary.TotalCost += cost.Cost
			summary.Ingredients = append(summary.Ingredients, cost)
		}
		if len(summary.Ingredients) > 0 {
			report.TotalDishCost += summary.TotalCost
		}
		report.MissingCount += len(summary.MissingIngredients)
		report.Dishes = append(report.Dishes, summary)
	}

	sort.SliceStable(report.Dishes, func(i, j int) bool {
		return report.Dishes[i].TotalCost > report.Dishes[j].TotalCost
	})
	return report, nil
}

func ingredientCost(ingredient models.DishIngredient, options map[string]models.Ingredient, latest map[string]models.Purchase) (IngredientCost, bool) {
	name := strings.TrimSpace(ingredient.Name)
	unit := strings.ToLower(strings.TrimSpace(ingredient.Unit))
	if name == "" || unit == "" {
		return IngredientCost{}, false
	}

	fallback := models.IngredientKey(name, unit)
	match, ok := options[ingredient.ResolvedKey()]
	if !ok {
		match, ok = options[fallback]
	}
	if !ok {
		return IngredientCost{}, false
	}
	purchase, ok := latest[models.NormalizeKey(match.Key)]
	if !ok {
		return IngredientCost{}, false
	}

	purchaseBase, purchaseAmount, ok := models.NormalizeQuantity(purchase.Amount, purchase.Unit)
	if !ok {
		return IngredientCost{}, false
	}
	neededBase, neededAmount, ok := models.NormalizeQuantity(ingredient.Qty, unit)
	if !ok || neededBase != purchaseBase {
		return IngredientCost{}, false
	}

	return IngredientCost{
		Ingredient: name,
		Amount:     ingredient.Qty,
		Unit:       unit,
		Cost:       purchase.Price / purchaseAmount * neededAmount,
	}, true
}

func purchaseDay(purchase models.Purchase) time.Time {
	at := purchase.PurchasedAt.UTC()
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
}

// daysBetween counts the calendar days from first to last inclusive.
func daysBetween(first, last time.Time) int {
	if first.IsZero() || last.IsZero() {
		return 0
	}
	days := int(last.Sub(first).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
