package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is a measurement granularity. Step is the smallest valid increment of a
// quantity expressed in this unit; a step of exactly 1 makes it an integer unit.
type Unit struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"size:50;not null"`
	Text      string          `json:"text" gorm:"size:20;not null"`
	Step      decimal.Decimal `json:"step" gorm:"type:decimal(10,3);not null"`
	IsActive  bool            `json:"is_active" gorm:"not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
