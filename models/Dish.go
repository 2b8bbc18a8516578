package models

import "time"

// Dish is a catalog entry that can be assigned to a meal slot.
// Calories is derived from Ingredients and is never set by clients.
type Dish struct {
	ID            string           `gorm:"primaryKey;size:191" json:"id"`
	Name          string           `gorm:"not null" json:"name"`
	Meal          MealSlot         `gorm:"type:varchar(16);not null" json:"meal"`
	Ingredients   []DishIngredient `gorm:"foreignKey:DishID;constraint:OnDelete:CASCADE" json:"ingredients"`
	Notes         string           `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy     string           `gorm:"index" json:"createdBy,omitempty"`
	CreatedByName string           `json:"createdByName,omitempty"`
	Calories      float64          `gorm:"not null;default:0" json:"calories"`
	CreatedAt     time.Time        `json:"-"`
	UpdatedAt     time.Time        `json:"-"`
}

// DishIngredient is the per-serving requirement of one ingredient in a dish.
type DishIngredient struct {
	ID            uint    `gorm:"primaryKey" json:"-"`
	DishID        string  `gorm:"index;not null;size:191" json:"-"`
	Position      int     `gorm:"not null" json:"-"`
	IngredientKey string  `json:"ingredientKey,omitempty"`
	Name          string  `gorm:"not null" json:"name"`
	Unit          string  `gorm:"not null" json:"unit"`
	Qty           float64 `gorm:"not null" json:"qty"`
}

// ResolvedKey returns the directory key for the ingredient: the explicit key
// when one was supplied, otherwise the key derived from name and unit.
// Blank names without an explicit key resolve to "".
func (i DishIngredient) ResolvedKey() string {
	if key := NormalizeKey(i.IngredientKey); key != "" {
		return key
	}
	if len(trimmed(i.Name)) == 0 {
		return ""
	}
	return IngredientKey(i.Name, i.Unit)
}
