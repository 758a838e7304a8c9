package entitlement

import (
	"reflect"
	"testing"
)

const mb = 1024 * 1024

var testPolicy = Policy{
	BaseBytes:   50 * mb,
	DailyLimits: map[int]int{1: 10, 2: 20, 3: 30, 4: 50, 5: 100},
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		snap      Snapshot
		level     int
		vip       bool
		limit     int
		ceiling   int64
		needGuard bool
	}{
		{"new user", Snapshot{}, 1, false, 10, 50 * mb, false},
		{"one referral", Snapshot{ReferralCount: 1}, 2, false, 20, 100 * mb, false},
		{"three referrals", Snapshot{ReferralCount: 3}, 3, false, 30, 200 * mb, false},
		{"vip", Snapshot{ReferralCount: 10, ChannelGuardOn: true}, 4, true, 50, 500 * mb, false},
		{"top level", Snapshot{ReferralCount: 30}, 5, true, 100, 500 * mb, false},
		{"guard on", Snapshot{ReferralCount: 2, ChannelGuardOn: true}, 2, false, 20, 100 * mb, true},
		{"subscriber", Snapshot{SubscriptionActive: true}, 1, false, Unlimited, 500 * mb, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Resolve(tt.snap, testPolicy)
			if l.Level != tt.level || l.IsVIP != tt.vip {
				t.Errorf("level = %d vip = %v, want %d %v", l.Level, l.IsVIP, tt.level, tt.vip)
			}
			if l.DailyLimit != tt.limit {
				t.Errorf("DailyLimit = %d, want %d", l.DailyLimit, tt.limit)
			}
			if l.MaxFileBytes != tt.ceiling {
				t.Errorf("MaxFileBytes = %d, want %d", l.MaxFileBytes, tt.ceiling)
			}
			if l.NeedsGuard != tt.needGuard {
				t.Errorf("NeedsGuard = %v, want %v", l.NeedsGuard, tt.needGuard)
			}
		})
	}
}

func TestResolveSubscriberDailyLimit(t *testing.T) {
	p := testPolicy
	p.SubscriberDailyLimit = 200
	l := Resolve(Snapshot{SubscriptionActive: true, DailyUsed: 200}, p)
	if !l.QuotaExceeded() {
		t.Errorf("QuotaExceeded() = false with %d/%d", l.DailyUsed, l.DailyLimit)
	}
}

func TestQuota(t *testing.T) {
	l := Resolve(Snapshot{DailyUsed: 10}, testPolicy)
	if !l.QuotaExceeded() || l.DailyLeft() != 0 {
		t.Errorf("quota at 10/10: exceeded = %v left = %d", l.QuotaExceeded(), l.DailyLeft())
	}

	l = Resolve(Snapshot{DailyUsed: 4}, testPolicy)
	if l.QuotaExceeded() || l.DailyLeft() != 6 {
		t.Errorf("quota at 4/10: exceeded = %v left = %d", l.QuotaExceeded(), l.DailyLeft())
	}

	l = Resolve(Snapshot{SubscriptionActive: true, DailyUsed: 1000}, testPolicy)
	if l.QuotaExceeded() || l.DailyLeft() != Unlimited {
		t.Errorf("subscriber quota: exceeded = %v left = %d", l.QuotaExceeded(), l.DailyLeft())
	}
}

func TestDailyLimitFallback(t *testing.T) {
	limits := map[int]int{1: 5, 3: 15}
	tests := []struct {
		level int
		want  int
	}{
		{1, 5},
		{2, 5},
		{3, 15},
		{5, 15},
	}
	for _, tt := range tests {
		if got := dailyLimitFor(tt.level, limits); got != tt.want {
			t.Errorf("dailyLimitFor(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
	if got := dailyLimitFor(1, nil); got != defaultDailyLimit {
		t.Errorf("dailyLimitFor(1, nil) = %d, want %d", got, defaultDailyLimit)
	}
}

func TestFreeResolutions(t *testing.T) {
	tests := []struct {
		max  int
		want []int
	}{
		{1080, []int{240, 360, 480}},
		{720, []int{240, 360, 480}},
		{480, []int{240, 360}},
		{360, []int{240}},
		{240, nil},
		{0, nil},
	}
	for _, tt := range tests {
		if got := FreeResolutions(tt.max); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("FreeResolutions(%d) = %v, want %v", tt.max, got, tt.want)
		}
	}
}

func size(n int64) *int64 { return &n }

func TestGate(t *testing.T) {
	free := Resolve(Snapshot{}, testPolicy)
	sub := Resolve(Snapshot{SubscriptionActive: true}, testPolicy)

	tests := []struct {
		name   string
		limits Limits
		height int
		size   *int64
		max    int
		want   Reason
	}{
		{"free 480 of 1080", free, 480, size(20 * mb), 1080, Allowed},
		{"free 1080 of 1080", free, 1080, size(20 * mb), 1080, ReasonSubscription},
		{"free 720 of 720", free, 720, nil, 720, ReasonSubscription},
		{"free 360 too big for level", free, 360, size(120 * mb), 1080, ReasonSubscription},
		{"free 360 too big for anyone", free, 360, size(600 * mb), 1080, ReasonSize},
		{"free unknown size", free, 240, nil, 480, Allowed},
		{"free 240 of 240", free, 240, nil, 240, ReasonSubscription},
		{"subscriber 1080 300mb", sub, 1080, size(300 * mb), 1080, Allowed},
		{"subscriber over ceiling", sub, 1080, size(600 * mb), 1080, ReasonSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Gate(tt.limits, tt.height, tt.size, tt.max); got != tt.want {
				t.Errorf("Gate() = %q, want %q", got, tt.want)
			}
		})
	}
}
