package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID        uuid.UUID       `gorm:"size:36;primaryKey"`
	ClientID  uuid.UUID       `gorm:"size:36;not null;index"`
	Date      time.Time       `gorm:"not null;index"`
	Channel   string          `gorm:"size:20;not null"`
	Currency  string          `gorm:"size:3;not null;default:CRC"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Lines     []OrderLine
	CreatedAt time.Time
}

type OrderLine struct {
	ID        uuid.UUID        `gorm:"size:36;primaryKey"`
	OrderID   uuid.UUID        `gorm:"size:36;not null;index"`
	ProductID uuid.UUID        `gorm:"size:36;not null;index"`
	Quantity  int              `gorm:"not null"`
	UnitPrice decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Discount  *decimal.Decimal `gorm:"type:decimal(5,2)"`
	CreatedAt time.Time
}

// Subtotal aplica el descuento porcentual sobre cantidad * precio unitario.
func (l OrderLine) Subtotal() decimal.Decimal {
	gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	if l.Discount == nil || l.Discount.IsZero() {
		return gross
	}
	factor := decimal.NewFromInt(100).Sub(*l.Discount).Div(decimal.NewFromInt(100))
	return gross.Mul(factor).Round(2)
}

type Page struct {
	Page     int
	PageSize int
}

// Normalize aplica los valores por defecto de paginación.
func (p Page) Normalize() Page {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 200 {
		p.PageSize = 200
	}
	return p
}

func (p Page) Offset() int { return (p.Page - 1) * p.PageSize }
