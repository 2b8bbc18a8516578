package mealplan

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mealplanner/models"
)

const dateLayout = "2006-01-02"

// DateRange is the inclusive range a shopping list covers.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ShoppingListItem is the accumulated quantity of one (name, unit) pair.
type ShoppingListItem struct {
	Name   string   `json:"name"`
	Unit   string   `json:"unit"`
	Qty    float64  `json:"qty"`
	Dishes []string `json:"dishes"`
}

// ShoppingList is the response of BuildShoppingList.
type ShoppingList struct {
	Range DateRange          `json:"range"`
	Items []ShoppingListItem `json:"items"`
}

type shoppingKey struct {
	name string
	unit string
}

// BuildShoppingList sums the ingredient quantities of every dish planned
// between start and end inclusive. A dish planned several times contributes
// once per occurrence and is listed once per item.
func (s *Service) BuildShoppingList(ctx context.Context, start, end string) (ShoppingList, error) {
	started := time.Now()

	startDate, err := ParseDate(start)
	if err != nil {
		return ShoppingList{}, err
	}
	endDate, err := ParseDate(end)
	if err != nil {
		return ShoppingList{}, err
	}
	if endDate.Before(startDate) {
		return ShoppingList{}, fmt.Errorf("%w: end date must not be before start date", ErrInvalidRange)
	}
	start, end = startDate.Format(dateLayout), endDate.Format(dateLayout)

	result := ShoppingList{
		Range: DateRange{Start: start, End: end},
		Items: []ShoppingListItem{},
	}

	plans, err := s.store.PlansInRange(ctx, start, end)
	if err != nil {
		return ShoppingList{}, fmt.Errorf("load plans: %w", err)
	}

	occurrences := make([]string, 0)
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, plan := range plans {
		for _, id := range plan.DishIDs() {
			occurrences = append(occurrences, id)
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		s.observeShoppingList(0, started)
		return result, nil
	}

	dishes, err := s.store.FindDishes(ctx, ids)
	if err != nil {
		return ShoppingList{}, fmt.Errorf("load dishes: %w", err)
	}
	byID := make(map[string]models.Dish, len(dishes))
	for _, dish := range dishes {
		byID[dish.ID] = dish
	}

	result.Items = accumulateShoppingItems(occurrences, byID)
	s.observeShoppingList(len(result.Items), started)
	return result, nil
}

func accumulateShoppingItems(occurrences []string, dishes map[string]models.Dish) []ShoppingListItem {
	totals := make(map[shoppingKey]*ShoppingListItem)
	order := make([]shoppingKey, 0)

	for _, dishID := range occurrences {
		dish, ok := dishes[dishID]
		if !ok {
			continue
		}
		for _, ingredient := range dish.Ingredients {
			key := shoppingKey{name: ingredient.Name, unit: ingredient.Unit}
			item, exists := totals[key]
			if !exists {
				item = &ShoppingListItem{Name: ingredient.Name, Unit: ingredient.Unit, Dishes: []string{}}
				totals[key] = item
				order = append(order, key)
			}
			item.Qty += ingredient.Qty
			if !containsString(item.Dishes, dishID) {
				item.Dishes = append(item.Dishes, dishID)
			}
		}
	}

	items := make([]ShoppingListItem, 0, len(order))
	for _, key := range order {
		items = append(items, *totals[key])
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

func (s *Service) observeShoppingList(items int, started time.Time) {
	if s.recorder != nil {
		s.recorder.ObserveShoppingList(items, time.Since(started))
	}
}

// ParseDate validates a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed, nil
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
