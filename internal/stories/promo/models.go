package promo

import (
	"errors"
	"time"
)

// ErrInvalid код не найден или исчерпан.
var ErrInvalid = errors.New("promocode is invalid or exhausted")

type Promocode struct {
	Code         string
	DurationDays int
	UsesLeft     int
	CreatedAt    time.Time
}

type ActivationResult struct {
	DurationDays int
	ExpireAt     time.Time
}
