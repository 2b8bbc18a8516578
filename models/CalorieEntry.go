package models

import "time"

// CalorieEntry states the calories contained in Amount Unit of an ingredient.
type CalorieEntry struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	IngredientKey  string    `gorm:"not null;size:191;uniqueIndex:idx_calorie_reference" json:"ingredientKey"`
	IngredientName string    `gorm:"not null" json:"ingredientName"`
	Unit           string    `gorm:"not null;size:16;uniqueIndex:idx_calorie_reference" json:"unit"`
	Amount         float64   `gorm:"not null;uniqueIndex:idx_calorie_reference" json:"amount"`
	Calories       float64   `gorm:"not null" json:"calories"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}
