package tariffs

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("tariff not found")

type Tariff struct {
	ID           int64
	Name         string
	PriceFiat    float64
	PriceStars   int
	DurationDays int
	IsActive     bool
	CreatedAt    time.Time
}

// Критерии для списка тарифов
type ListCriteria struct {
	IsActive *bool
	Limit    int
}
