package subs

import (
	"context"
	"fmt"
	"time"
)

type Service struct {
	storage Storage
	now     func() time.Time
}

func NewService(storage Storage) *Service {
	return &Service{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) GetSubscriber(ctx context.Context, userID int64) (*Subscriber, error) {
	return s.storage.GetSubscriber(ctx, userID)
}

// ActiveUntil returns the expiry of a running subscription or nil.
func (s *Service) ActiveUntil(ctx context.Context, userID int64) (*time.Time, error) {
	sub, err := s.storage.GetSubscriber(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	if !sub.Active(s.now()) {
		return nil, nil
	}
	return &sub.ExpireAt, nil
}

// ExpiringWithin lists subscribers whose subscription ends in (now, now+d].
func (s *Service) ExpiringWithin(ctx context.Context, d time.Duration) ([]*Subscriber, error) {
	from := s.now()
	to := from.Add(d)
	return s.storage.ListSubscribers(ctx, ListCriteria{ExpireFrom: &from, ExpireTo: &to})
}

func (s *Service) CountActive(ctx context.Context) (int, error) {
	return s.storage.CountActiveSubscribers(ctx, s.now())
}
