package expiration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"grabber-bot/internal/stories/subs"
)

type fakeSubs struct {
	list   []*subs.Subscriber
	window time.Duration
}

func (f *fakeSubs) ExpiringWithin(_ context.Context, d time.Duration) ([]*subs.Subscriber, error) {
	f.window = d
	return f.list, nil
}

type fakeReminder struct {
	failFor  int64
	reminded []int64
}

func (f *fakeReminder) Remind(_ context.Context, userID int64, _ time.Time) error {
	if userID == f.failFor {
		return errors.New("bot was blocked by the user")
	}
	f.reminded = append(f.reminded, userID)
	return nil
}

func TestRunRemindsEachSubscriber(t *testing.T) {
	expire := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := &fakeSubs{list: []*subs.Subscriber{
		{UserID: 1, ExpireAt: expire},
		{UserID: 2, ExpireAt: expire},
		{UserID: 3, ExpireAt: expire},
	}}
	r := &fakeReminder{failFor: 2}
	w := NewWorker(s, r, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := w.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if s.window != window {
		t.Errorf("window = %v, want %v", s.window, window)
	}
	if len(r.reminded) != 2 || r.reminded[0] != 1 || r.reminded[1] != 3 {
		t.Errorf("reminded = %v, want [1 3]", r.reminded)
	}
}
