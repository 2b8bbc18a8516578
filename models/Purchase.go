package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Purchase is an append-only record of an ingredient bought by the household.
type Purchase struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	IngredientKey  string    `gorm:"index;not null;size:191" json:"ingredientKey"`
	IngredientName string    `gorm:"not null" json:"ingredientName"`
	Amount         float64   `gorm:"not null" json:"amount"`
	Unit           string    `gorm:"not null" json:"unit"`
	Price          float64   `gorm:"not null;default:0" json:"price"`
	PurchasedAt    time.Time `gorm:"index;not null" json:"purchasedAt"`
	CreatedAt      time.Time `json:"-"`
}

// BeforeCreate assigns a random identifier when none was provided.
func (p *Purchase) BeforeCreate(*gorm.DB) error {
	if strings.TrimSpace(p.ID) == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
