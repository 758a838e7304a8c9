package subs

import (
	"context"
	"time"
)

type Storage interface {
	GetSubscriber(ctx context.Context, userID int64) (*Subscriber, error)
	ListSubscribers(ctx context.Context, criteria ListCriteria) ([]*Subscriber, error)
	CountActiveSubscribers(ctx context.Context, now time.Time) (int, error)
}
