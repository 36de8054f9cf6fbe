// Package models contains database model definitions.
package models

import (
	"time"
)

// Setting represents a site setting stored in the database. Values are
// raw bytes, typed access lives in the setting controller.
type Setting struct {
	ID        uint64 `gorm:"primaryKey"`
	Name      string `gorm:"unique"`
	Value     []byte `gorm:"type:blob"`
	UpdatedAt time.Time
}
