package models

import (
	"math"
	"strings"
)

// MeasurementUnits lists the units accepted for ingredients, calorie references
// and purchases. The first entry doubles as the fallback for unknown input.
var MeasurementUnits = []string{
	"g",
	"kg",
	"mg",
	"lb",
	"oz",
	"ml",
	"l",
	"pcs",
	"tbsp",
	"tsp",
	"cup",
}

// DefaultUnit is used whenever a unit cannot be recognised.
var DefaultUnit = MeasurementUnits[0]

// ValidUnit reports whether value is one of the MeasurementUnits after trimming
// and lowercasing.
func ValidUnit(value string) bool {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, unit := range MeasurementUnits {
		if unit == normalized {
			return true
		}
	}
	return false
}

// SanitizeUnit maps value onto the measurement unit set, coercing anything
// unrecognised to DefaultUnit.
func SanitizeUnit(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, unit := range MeasurementUnits {
		if unit == normalized {
			return unit
		}
	}
	return DefaultUnit
}

// IngredientKey builds the directory key shared by dishes, calorie references
// and purchases: lowercase(name) + "__" + unit.
func IngredientKey(name, unit string) string {
	return strings.ToLower(strings.TrimSpace(name)) + "__" + SanitizeUnit(unit)
}

// NormalizeKey trims and lowercases a caller supplied key. Blank input yields "".
func NormalizeKey(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// Base units quantities are normalised to when comparing purchases.
const (
	BaseMass   = "kg"
	BaseVolume = "l"
	BaseCount  = "pcs"
)

var massFactors = map[string]float64{
	"kg": 1,
	"g":  1.0 / 1000,
	"mg": 1.0 / 1_000_000,
	"lb": 0.453592,
	"oz": 0.0283495,
}

var volumeFactors = map[string]float64{
	"l":    1,
	"ml":   1.0 / 1000,
	"cup":  0.236588,
	"tbsp": 0.0147868,
	"tsp":  0.00492892,
}

// NormalizeQuantity expresses amount in the base unit of its dimension.
// Non-positive or non-finite amounts and unknown units are not normalisable.
func NormalizeQuantity(amount float64, unit string) (string, float64, bool) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return "", 0, false
	}
	unit = strings.ToLower(strings.TrimSpace(unit))
	if factor, ok := massFactors[unit]; ok {
		return BaseMass, amount * factor, true
	}
	if factor, ok := volumeFactors[unit]; ok {
		return BaseVolume, amount * factor, true
	}
	if unit == BaseCount {
		return BaseCount, amount, true
	}
	return "", 0, false
}

// ConvertQuantity converts amount between two units of the same dimension.
func ConvertQuantity(amount float64, from, to string) (float64, bool) {
	from = strings.ToLower(strings.TrimSpace(from))
	to = strings.ToLower(strings.TrimSpace(to))
	if from == to {
		return amount, true
	}
	if f, ok := massFactors[from]; ok {
		if t, ok := massFactors[to]; ok {
			return amount * f / t, true
		}
	}
	if f, ok := volumeFactors[from]; ok {
		if t, ok := volumeFactors[to]; ok {
			return amount * f / t, true
		}
	}
	return 0, false
}
