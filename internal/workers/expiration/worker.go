package expiration

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"grabber-bot/internal/stories/subs"
	"grabber-bot/internal/workers"
)

// Раз в сутки окно в 24 часа покрывает каждую подписку ровно один раз.
const (
	schedule = "0 12 * * *"
	window   = 24 * time.Hour
)

type (
	SubscriptionService interface {
		ExpiringWithin(ctx context.Context, d time.Duration) ([]*subs.Subscriber, error)
	}

	Reminder interface {
		Remind(ctx context.Context, userID int64, expireAt time.Time) error
	}
)

// Worker напоминает подписчикам, что подписка заканчивается в ближайшие сутки.
type Worker struct {
	subs     SubscriptionService
	reminder Reminder
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewWorker(subs SubscriptionService, reminder Reminder, logger *slog.Logger) *Worker {
	return &Worker{
		subs:     subs,
		reminder: reminder,
		logger:   logger,
		cron:     cron.New(cron.WithLocation(time.UTC)),
	}
}

func (w *Worker) Name() string {
	return "expiration-reminder"
}

func (w *Worker) Start() error {
	_, err := w.cron.AddFunc(schedule, workers.Job(w.logger, w.Name(), 10*time.Minute, w.run))
	if err != nil {
		return fmt.Errorf("failed to add expiration worker: %w", err)
	}
	w.cron.Start()
	return nil
}

func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
}

func (w *Worker) run(ctx context.Context) error {
	expiring, err := w.subs.ExpiringWithin(ctx, window)
	if err != nil {
		return fmt.Errorf("list expiring subscriptions: %w", err)
	}

	sent := 0
	for _, s := range expiring {
		if err := w.reminder.Remind(ctx, s.UserID, s.ExpireAt); err != nil {
			w.logger.Warn("Failed to send expiration reminder", "user_id", s.UserID, "error", err)
			continue
		}
		sent++
	}

	w.logger.Info("Expiration reminders sent", "sent", sent, "total", len(expiring))
	return nil
}
