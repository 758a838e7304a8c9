package users

import "time"

type User struct {
	ID          int64
	FirstName   string
	Username    string
	ReferrerID  *int64
	HasPaidEver bool
	FirstPaidAt *time.Time
	CreatedAt   time.Time
}

// Критерии выборки аудитории для рассылок
type AudienceCriteria struct {
	// Только те, кто ни разу не платил
	NeverPaid bool
	// Без активной подписки на момент Now
	WithoutActiveSubscription bool
	// Исключить VIP (уровень 4 и выше)
	ExcludeVIP bool
	Now        time.Time
}
