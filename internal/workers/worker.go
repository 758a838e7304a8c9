package workers

import (
	"context"
	"log/slog"
	"time"
)

// Worker defines the interface for all background workers
type Worker interface {
	// Start starts the worker
	Start() error

	// Stop gracefully stops the worker
	Stop()

	// Name returns the worker name for logging
	Name() string
}

// Job оборачивает периодическую задачу для cron: таймаут на запуск,
// восстановление после паники и логирование ошибки.
func Job(logger *slog.Logger, name string, timeout time.Duration, run func(ctx context.Context) error) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in worker", "worker", name, "panic", r)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := run(ctx); err != nil {
			logger.Error("Worker run failed", "worker", name, "error", err)
		}
	}
}
