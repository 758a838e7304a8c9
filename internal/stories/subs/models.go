package subs

import "time"

type Subscriber struct {
	UserID    int64
	ExpireAt  time.Time
	UpdatedAt time.Time
}

// Active reports whether the subscription is still running at now.
func (s *Subscriber) Active(now time.Time) bool {
	return s != nil && s.ExpireAt.After(now)
}

// Extend применяет правило продления: отсчёт идёт от max(now, expireAt).
func Extend(expireAt *time.Time, now time.Time, days int) time.Time {
	base := now
	if expireAt != nil && expireAt.After(now) {
		base = *expireAt
	}
	return base.Add(time.Duration(days) * 24 * time.Hour)
}

// Критерии для списка подписчиков
type ListCriteria struct {
	ExpireFrom *time.Time
	ExpireTo   *time.Time
	Limit      int
}
