package entitlement

import (
	"sort"

	"grabber-bot/internal/stories/users"
)

// Unlimited дневной лимит без ограничений.
const Unlimited = -1

// defaultDailyLimit используется, если для уровня нет настройки.
const defaultDailyLimit = 10

// Resolutions варианты качества, которые показываются пользователю.
var Resolutions = []int{240, 360, 480, 720, 1080}

// Множители базового потолка размера по уровню.
var levelCeilingMultiplier = map[int]int64{
	1: 1,
	2: 2,
	3: 4,
	4: 10,
	5: 10,
}

const subscriberCeilingMultiplier = 10

type Policy struct {
	BaseBytes            int64
	DailyLimits          map[int]int
	SubscriberDailyLimit int
}

// Snapshot состояние пользователя, прочитанное из хранилища.
type Snapshot struct {
	SubscriptionActive bool
	ReferralCount      int
	DailyUsed          int
	ChannelGuardOn     bool
}

type Limits struct {
	Level      int
	IsVIP      bool
	Subscribed bool
	DailyLimit int
	DailyUsed  int
	// MaxFileBytes потолок размера для текущего тарифа пользователя.
	MaxFileBytes int64
	// SubscriberBytes потолок, который открывает подписка.
	SubscriberBytes int64
	NeedsGuard      bool
}

func (l Limits) Unlimited() bool {
	return l.DailyLimit == Unlimited
}

// DailyLeft возвращает Unlimited для безлимита.
func (l Limits) DailyLeft() int {
	if l.Unlimited() {
		return Unlimited
	}
	return max(l.DailyLimit-l.DailyUsed, 0)
}

func (l Limits) QuotaExceeded() bool {
	return !l.Unlimited() && l.DailyUsed >= l.DailyLimit
}

// Resolve вычисляет эффективные лимиты по снимку.
func Resolve(s Snapshot, p Policy) Limits {
	level := users.LevelFor(s.ReferralCount)
	vip := users.IsVIP(level)

	l := Limits{
		Level:           level,
		IsVIP:           vip,
		Subscribed:      s.SubscriptionActive,
		DailyUsed:       s.DailyUsed,
		SubscriberBytes: p.BaseBytes * subscriberCeilingMultiplier,
		NeedsGuard:      s.ChannelGuardOn && !vip,
	}

	if s.SubscriptionActive {
		l.MaxFileBytes = l.SubscriberBytes
		l.DailyLimit = Unlimited
		if p.SubscriberDailyLimit > 0 {
			l.DailyLimit = p.SubscriberDailyLimit
		}
		return l
	}

	l.MaxFileBytes = p.BaseBytes * levelCeilingMultiplier[level]
	l.DailyLimit = dailyLimitFor(level, p.DailyLimits)
	return l
}

// dailyLimitFor берёт лимит ближайшего настроенного уровня не выше текущего.
func dailyLimitFor(level int, limits map[int]int) int {
	if v, ok := limits[level]; ok {
		return v
	}

	levels := make([]int, 0, len(limits))
	for l := range limits {
		if l <= level {
			levels = append(levels, l)
		}
	}
	if len(levels) == 0 {
		return defaultDailyLimit
	}
	sort.Ints(levels)
	return limits[levels[len(levels)-1]]
}

// FreeResolutions бесплатные разрешения в зависимости от максимального доступного.
func FreeResolutions(maxAvailable int) []int {
	switch {
	case maxAvailable >= 720:
		return []int{240, 360, 480}
	case maxAvailable == 480:
		return []int{240, 360}
	case maxAvailable == 360:
		return []int{240}
	default:
		return nil
	}
}

type Reason string

const (
	Allowed            Reason = ""
	ReasonSize         Reason = "size"
	ReasonSubscription Reason = "subscription"
)

// Gate решает, доступен ли вариант height/size пользователю. Вариант закрыт,
// если его запрещает хотя бы одно правило: размер или бесплатное качество.
// sizeBytes nil означает, что размер заранее неизвестен.
func Gate(l Limits, height int, sizeBytes *int64, maxAvailable int) Reason {
	tooBig := sizeBytes != nil && *sizeBytes > l.MaxFileBytes

	if l.Subscribed {
		if tooBig {
			return ReasonSize
		}
		return Allowed
	}

	free := false
	for _, r := range FreeResolutions(maxAvailable) {
		if r == height {
			free = true
			break
		}
	}
	if !free {
		return ReasonSubscription
	}
	if tooBig {
		if *sizeBytes <= l.SubscriberBytes {
			return ReasonSubscription
		}
		return ReasonSize
	}
	return Allowed
}
