package models

import (
	"fmt"
	"strings"
)

// MealSlot names one meal occasion within a day.
type MealSlot string

const (
	SlotBreakfast MealSlot = "breakfast"
	SlotLunch     MealSlot = "lunch"
	SlotDinner    MealSlot = "dinner"
	SlotSnack     MealSlot = "snack"
)

// MealSlots is the canonical ordering of slots within a day.
var MealSlots = []MealSlot{SlotBreakfast, SlotLunch, SlotDinner, SlotSnack}

// ParseMealSlot validates value against the known slots.
func ParseMealSlot(value string) (MealSlot, error) {
	normalized := MealSlot(strings.ToLower(strings.TrimSpace(value)))
	for _, slot := range MealSlots {
		if slot == normalized {
			return slot, nil
		}
	}
	return "", fmt.Errorf("unknown meal slot: %q", value)
}

// SlotRank returns the position of slot in MealSlots, or len(MealSlots) when unknown.
func SlotRank(slot MealSlot) int {
	for idx, candidate := range MealSlots {
		if candidate == slot {
			return idx
		}
	}
	return len(MealSlots)
}
