package mealplan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mealplanner/models"
)

// ListPlans returns the plans whose date falls inside the optional bounds.
func (s *Service) ListPlans(ctx context.Context, start, end string) ([]models.DayPlan, error) {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	if start != "" {
		if _, err := ParseDate(start); err != nil {
			return nil, err
		}
	}
	if end != "" {
		if _, err := ParseDate(end); err != nil {
			return nil, err
		}
	}
	return s.store.PlansInRange(ctx, start, end)
}

// SavePlan replaces the plan for date. Unknown or repeated slot names are
// rejected and blank assignments dropped.
func (s *Service) SavePlan(ctx context.Context, date string, slots map[string]*string) (models.DayPlan, error) {
	parsed, err := ParseDate(date)
	if err != nil {
		return models.DayPlan{}, err
	}

	plan := models.DayPlan{DateISO: parsed.Format(dateLayout)}
	seen := make(map[models.MealSlot]string, len(slots))
	for name, dishID := range slots {
		slot, err := models.ParseMealSlot(name)
		if err != nil {
			return models.DayPlan{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if previous, ok := seen[slot]; ok {
			return models.DayPlan{}, fmt.Errorf("%w: slot %s given twice (%q and %q)", ErrInvalidInput, slot, previous, name)
		}
		seen[slot] = name
		if dishID == nil || strings.TrimSpace(*dishID) == "" {
			continue
		}
		plan.Slots = append(plan.Slots, models.PlanSlot{
			PlanDate: plan.DateISO,
			Slot:     slot,
			DishID:   strings.TrimSpace(*dishID),
		})
	}
	sort.SliceStable(plan.Slots, func(i, j int) bool {
		return models.SlotRank(plan.Slots[i].Slot) < models.SlotRank(plan.Slots[j].Slot)
	})

	if err := s.store.SavePlan(ctx, &plan); err != nil {
		return models.DayPlan{}, fmt.Errorf("save plan: %w", err)
	}
	return plan, nil
}

// DeletePlan removes the plan for date.
func (s *Service) DeletePlan(ctx context.Context, date string) error {
	parsed, err := ParseDate(date)
	if err != nil {
		return err
	}
	return s.store.DeletePlan(ctx, parsed.Format(dateLayout))
}
