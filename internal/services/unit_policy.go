package services

import (
	"katalog/internal/models"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// RequiresInteger reports whether quantities in unit must be whole numbers.
// Only a step of exactly 1 qualifies; 0.999 or 1.001 do not.
func RequiresInteger(unit models.Unit) bool {
	return unit.Step.Equal(one)
}

// IsValidQuantity is the one quantity predicate used by product validation
// and unit replacement.
func IsValidQuantity(unit models.Unit, v decimal.Decimal) bool {
	if v.IsNegative() {
		return false
	}
	if RequiresInteger(unit) {
		return v.Equal(v.Floor())
	}
	return true
}

// DisplayQuantity renders v for clients: a whole number for integer units,
// a float otherwise.
func DisplayQuantity(unit models.Unit, v decimal.Decimal) interface{} {
	if RequiresInteger(unit) {
		return v.IntPart()
	}
	return v.InexactFloat64()
}
