package models

import (
	"time"

	"gorm.io/datatypes"
)

// Ingredient is the directory record for one (name, unit) pair.
type Ingredient struct {
	ID           uint              `gorm:"primaryKey" json:"-"`
	Key          string            `gorm:"uniqueIndex;not null;size:191" json:"key"`
	Name         string            `gorm:"not null" json:"name"`
	Unit         string            `gorm:"not null" json:"unit"`
	Translations datatypes.JSONMap `json:"translations"`
	CreatedAt    time.Time         `json:"-"`
	UpdatedAt    time.Time         `json:"-"`
}
