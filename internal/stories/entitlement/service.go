package entitlement

import (
	"context"
	"fmt"
	"time"

	"grabber-bot/internal/stories/channels"
	"grabber-bot/internal/stories/subs"
)

type (
	SubscriberProvider interface {
		GetSubscriber(ctx context.Context, userID int64) (*subs.Subscriber, error)
	}

	ReferralCounter interface {
		CountReferrals(ctx context.Context, userID int64) (int, error)
	}

	DailyCounter interface {
		GetDailyCount(ctx context.Context, userID int64, day time.Time) (int, error)
	}

	FlagProvider interface {
		GetFlag(ctx context.Context, key string) (bool, error)
	}
)

// Service читает снимок пользователя и применяет политику.
type Service struct {
	subscribers SubscriberProvider
	referrals   ReferralCounter
	daily       DailyCounter
	flags       FlagProvider
	policy      Policy
	now         func() time.Time
}

func NewService(
	subscribers SubscriberProvider,
	referrals ReferralCounter,
	daily DailyCounter,
	flags FlagProvider,
	policy Policy,
) *Service {
	return &Service{
		subscribers: subscribers,
		referrals:   referrals,
		daily:       daily,
		flags:       flags,
		policy:      policy,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) Resolve(ctx context.Context, userID int64) (Limits, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return Limits{}, err
	}
	return Resolve(snap, s.policy), nil
}

func (s *Service) Snapshot(ctx context.Context, userID int64) (Snapshot, error) {
	now := s.now()

	sub, err := s.subscribers.GetSubscriber(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get subscriber: %w", err)
	}
	refs, err := s.referrals.CountReferrals(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count referrals: %w", err)
	}
	used, err := s.daily.GetDailyCount(ctx, userID, now)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get daily count: %w", err)
	}
	guard, err := s.flags.GetFlag(ctx, channels.FlagChannelGuard)
	if err != nil {
		return Snapshot{}, fmt.Errorf("get channel guard flag: %w", err)
	}

	return Snapshot{
		SubscriptionActive: sub.Active(now),
		ReferralCount:      refs,
		DailyUsed:          used,
		ChannelGuardOn:     guard,
	}, nil
}
