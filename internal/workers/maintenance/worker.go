package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"grabber-bot/internal/workers"
)

const (
	// Файл старше этого возраста точно не принадлежит живой задаче.
	fileMaxAge = 30 * time.Minute
	// Диалог, брошенный на полпути.
	stateMaxIdle = time.Hour
	// Клавиатура качества, на которую так и не нажали.
	selectionMaxAge = 15 * time.Minute
	// Дневные счётчики нужны только для статистики за месяц.
	dailyRetention = 30 * 24 * time.Hour
)

type (
	FileSweeper interface {
		Sweep(maxAge time.Duration) (int, error)
	}

	StatePurger interface {
		Purge(maxIdle time.Duration) int
	}

	SelectionPurger interface {
		PurgeSelections(maxAge time.Duration) int
	}

	DownloadStorage interface {
		PruneDailyDownloads(ctx context.Context, before time.Time) (int64, error)
	}
)

// Worker чистит временные файлы, зависшие состояния и старые счётчики.
type Worker struct {
	files      FileSweeper
	states     StatePurger
	selections SelectionPurger
	storage    DownloadStorage
	logger     *slog.Logger
	cron       *cron.Cron
	now        func() time.Time
}

func NewWorker(
	files FileSweeper,
	states StatePurger,
	selections SelectionPurger,
	storage DownloadStorage,
	logger *slog.Logger,
) *Worker {
	return &Worker{
		files:      files,
		states:     states,
		selections: selections,
		storage:    storage,
		logger:     logger,
		cron:       cron.New(cron.WithLocation(time.UTC)),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (w *Worker) Name() string {
	return "maintenance"
}

func (w *Worker) Start() error {
	jobs := []struct {
		schedule string
		name string
		run  func(ctx context.Context) error
	}{
		{"@every 10m", "sweep-files", w.sweepFiles},
		{"@every 5m", "purge-memory", w.purgeMemory},
		{"30 0 * * *", "prune-daily", w.pruneDaily},
	}

	for _, j := range jobs {
		if _, err := w.cron.AddFunc(j.schedule, workers.Job(w.logger, j.name, 5*time.Minute, j.run)); err != nil {
			return fmt.Errorf("failed to add %s: %w", j.name, err)
		}
	}

	w.cron.Start()
	return nil
}

func (w *Worker) Stop() {
	<-w.cron.Stop().Done()
}

func (w *Worker) sweepFiles(_ context.Context) error {
	removed, err := w.files.Sweep(fileMaxAge)
	if removed > 0 {
		w.logger.Info("Removed stale files", "count", removed)
	}
	return err
}

func (w *Worker) purgeMemory(_ context.Context) error {
	states := w.states.Purge(stateMaxIdle)
	selections := w.selections.PurgeSelections(selectionMaxAge)
	if states+selections > 0 {
		w.logger.Debug("Purged idle entries", "states", states, "selections", selections)
	}
	return nil
}

func (w *Worker) pruneDaily(ctx context.Context) error {
	pruned, err := w.storage.PruneDailyDownloads(ctx, w.now().Add(-dailyRetention))
	if err != nil {
		return fmt.Errorf("prune daily downloads: %w", err)
	}
	w.logger.Info("Pruned daily download counters", "rows", pruned)
	return nil
}
