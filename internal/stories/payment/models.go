package payment

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrDuplicate возвращается хранилищем, если payment_id уже обработан.
	ErrDuplicate  = errors.New("payment already processed")
	ErrBadPayload = errors.New("malformed invoice payload")
	ErrWrongPayer = errors.New("invoice payload belongs to another user")
)

type Provider string

const (
	ProviderStars    Provider = "stars"
	ProviderYooKassa Provider = "yookassa"
)

// StarsCurrency валюта Telegram Stars.
const StarsCurrency = "XTR"

// Activation событие подтверждённой оплаты от любого провайдера.
type Activation struct {
	PaymentID string
	UserID    int64
	TariffID  int64
	Provider  Provider
}

type ActivationResult struct {
	// Applied false, если платёж уже был обработан ранее.
	Applied      bool
	ExpireAt     time.Time
	DurationDays int
	TariffName   string
}

type PendingStatus string

const (
	PendingStatusPending   PendingStatus = "pending"
	PendingStatusSucceeded PendingStatus = "succeeded"
	PendingStatusCanceled  PendingStatus = "canceled"
)

// PendingPayment созданный, но ещё не подтверждённый платёж картой.
type PendingPayment struct {
	PaymentID string
	UserID    int64
	TariffID  int64
	Status    PendingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PendingCriteria struct {
	Status        *PendingStatus
	CreatedBefore *time.Time
	Limit         int
}

// Invoice ссылка на оплату картой.
type Invoice struct {
	PaymentID       string
	ConfirmationURL string
}

const starsPayloadPrefix = "subscribe"

// StarsPayload полезная нагрузка инвойса: subscribe_{tariff_id}_{user_id}_{nonce}.
type StarsPayload struct {
	TariffID int64
	UserID   int64
	Nonce    string
}

func (p StarsPayload) String() string {
	return fmt.Sprintf("%s_%d_%d_%s", starsPayloadPrefix, p.TariffID, p.UserID, p.Nonce)
}

func ParseStarsPayload(raw string) (StarsPayload, error) {
	parts := strings.SplitN(raw, "_", 4)
	if len(parts) != 4 || parts[0] != starsPayloadPrefix || parts[3] == "" {
		return StarsPayload{}, fmt.Errorf("%w: %q", ErrBadPayload, raw)
	}

	tariffID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return StarsPayload{}, fmt.Errorf("%w: tariff id %q", ErrBadPayload, parts[1])
	}
	userID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return StarsPayload{}, fmt.Errorf("%w: user id %q", ErrBadPayload, parts[2])
	}

	return StarsPayload{TariffID: tariffID, UserID: userID, Nonce: parts[3]}, nil
}
