package models

import "gorm.io/gorm"

// User represents a household member that can sign in to the planner.
type User struct {
	gorm.Model
	Login        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Name         string
	IsAdmin      bool `gorm:"not null;default:false"`
}
