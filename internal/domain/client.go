package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Gender string

const (
	GenderMale        Gender = "M"
	GenderFemale      Gender = "F"
	GenderUnspecified Gender = "X"
)

// ParseGender acepta la forma corta (M, F, X) o la larga en español.
func ParseGender(s string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return GenderUnspecified, true
	case "m", "masculino":
		return GenderMale, true
	case "f", "femenino":
		return GenderFemale, true
	case "x", "otro":
		return GenderUnspecified, true
	}
	return "", false
}

type Client struct {
	ID           uuid.UUID `gorm:"size:36;primaryKey"`
	Email        *string   `gorm:"size:140"`
	Name         string    `gorm:"size:120;not null"`
	Gender       Gender    `gorm:"size:1;not null;default:X"`
	Country      string    `gorm:"size:60;not null"`
	RegisteredAt time.Time `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// EmailKey devuelve el email normalizado o "" si el cliente no tiene.
func (c *Client) EmailKey() string {
	if c.Email == nil {
		return ""
	}
	return NormalizeEmail(*c.Email)
}

func NormalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
