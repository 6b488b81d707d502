package services_test

import (
	"testing"

	"katalog/internal/models"
	"katalog/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var (
	metre = models.Unit{ID: 1, Name: "metre", Text: "Metre", Step: decimal.RequireFromString("0.01"), IsActive: true}
	adet  = models.Unit{ID: 2, Name: "adet", Text: "Adet", Step: decimal.NewFromInt(1), IsActive: true}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRequiresInteger(t *testing.T) {
	tests := []struct {
		step string
		want bool
	}{
		{"1", true},
		{"1.000", true},
		{"0.999", false},
		{"1.001", false},
		{"0.01", false},
		{"0", false},
		{"2", false},
	}
	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			assert.Equal(t, tt.want, services.RequiresInteger(models.Unit{Step: dec(tt.step)}))
		})
	}
}

func TestIsValidQuantity(t *testing.T) {
	assert.True(t, services.IsValidQuantity(adet, dec("3")))
	assert.True(t, services.IsValidQuantity(adet, dec("3.000")))
	assert.False(t, services.IsValidQuantity(adet, dec("2.5")))
	assert.False(t, services.IsValidQuantity(adet, dec("-1")))

	assert.True(t, services.IsValidQuantity(metre, dec("2.5")))
	assert.True(t, services.IsValidQuantity(metre, dec("0")))
	assert.False(t, services.IsValidQuantity(metre, dec("-0.5")))
}

func TestDisplayQuantity(t *testing.T) {
	assert.Equal(t, int64(3), services.DisplayQuantity(adet, dec("3.000")))
	assert.Equal(t, 2.5, services.DisplayQuantity(metre, dec("2.500")))
	assert.Equal(t, float64(3), services.DisplayQuantity(metre, dec("3")))
}
