package models

import (
	"encoding/json"
	"time"
)

// DayPlan holds the dishes assigned to the meal slots of one calendar day.
// Only assigned slots are stored.
type DayPlan struct {
	DateISO   string     `gorm:"primaryKey;size:10" json:"dateISO"`
	Slots     []PlanSlot `gorm:"foreignKey:PlanDate;references:DateISO;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
}

// PlanSlot assigns a dish to one slot of a day plan.
type PlanSlot struct {
	ID       uint     `gorm:"primaryKey"`
	PlanDate string   `gorm:"size:10;not null;uniqueIndex:idx_plan_slot"`
	Slot     MealSlot `gorm:"type:varchar(16);not null;uniqueIndex:idx_plan_slot"`
	DishID   string   `gorm:"size:191;not null;index"`
}

// SlotMap returns the plan's assignments keyed by slot.
func (p DayPlan) SlotMap() map[MealSlot]string {
	out := make(map[MealSlot]string, len(p.Slots))
	for _, slot := range p.Slots {
		if trimmed(slot.DishID) == "" {
			continue
		}
		out[slot.Slot] = slot.DishID
	}
	return out
}

// DishIDs lists the dishes assigned in the plan in canonical slot order.
func (p DayPlan) DishIDs() []string {
	assigned := p.SlotMap()
	ids := make([]string, 0, len(assigned))
	for _, slot := range MealSlots {
		if id, ok := assigned[slot]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// MarshalJSON renders the plan as {"dateISO": ..., "slots": {slot: dishId}}.
func (p DayPlan) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		DateISO string              `json:"dateISO"`
		Slots   map[MealSlot]string `json:"slots"`
	}{
		DateISO: p.DateISO,
		Slots:   p.SlotMap(),
	})
}
