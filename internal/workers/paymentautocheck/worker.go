package paymentautocheck

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"grabber-bot/internal/workers"
)

const (
	schedule = "@every 1m"
	// Младше этого возраста платёж ещё может прийти вебхуком.
	minAge = 2 * time.Minute
)

type PaymentService interface {
	FiatEnabled() bool
	CheckPending(ctx context.Context, olderThan time.Duration) (int, error)
}

// Worker опрашивает YooKassa по ожидающим платежам, если вебхук потерялся.
type Worker struct {
	payments PaymentService
	logger   *slog.Logger
	cron     *cron.Cron
}

func NewWorker(payments PaymentService, logger *slog.Logger) *Worker {
	return &Worker{
		payments: payments,
		logger:   logger,
		cron:     cron.New(),
	}
}

func (w *Worker) Name() string {
	return "payment-autocheck"
}

func (w *Worker) Start() error {
	if !w.payments.FiatEnabled() {
		w.logger.Info("Card payments disabled, skipping payment auto-check worker")
		return nil
	}

	_, err := w.cron.AddFunc(schedule, workers.Job(w.logger, w.Name(), time.Minute, w.run))
	if err != nil {
		return fmt.Errorf("failed to schedule payment autocheck worker: %w", err)
	}

	w.cron.Start()
	w.logger.Info("Payment autocheck worker started", "schedule", schedule)
	return nil
}

func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
}

func (w *Worker) run(ctx context.Context) error {
	activated, err := w.payments.CheckPending(ctx, minAge)
	if err != nil {
		return err
	}
	if activated > 0 {
		w.logger.Info("Activated payments missed by webhook", "count", activated)
	}
	return nil
}
