package domain

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID        uuid.UUID `gorm:"size:36;primaryKey"`
	SKU       string    `gorm:"size:64;not null;uniqueIndex"`
	Name      string    `gorm:"size:180;not null"`
	Category  string    `gorm:"size:100;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProductFilter struct {
	Category string
	Query    string
	Page     int
	PageSize int
}
