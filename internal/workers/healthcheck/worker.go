package healthcheck

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"grabber-bot/internal/metrics"
)

const (
	checkInterval = 10 * time.Minute
	checkTimeout  = 30 * time.Second
)

type (
	// Extractor отвечает версией yt-dlp или ошибкой.
	Extractor interface {
		Healthy(ctx context.Context) (string, error)
	}

	TelegramNotifier interface {
		SendHTML(ctx context.Context, chatID int64, text string) error
	}
)

// Worker периодически проверяет экстрактор и сообщает админам о смене состояния.
type Worker struct {
	extractor Extractor
	telegram  TelegramNotifier
	adminIDs  []int64
	logger    *slog.Logger
	interval  time.Duration

	// nil пока не было ни одной проверки
	healthy *bool

	stopCh chan struct{}
	doneCh chan struct{}
}

func NewWorker(extractor Extractor, telegram TelegramNotifier, adminIDs []int64, logger *slog.Logger) *Worker {
	return &Worker{
		extractor: extractor,
		telegram:  telegram,
		adminIDs:  adminIDs,
		logger:    logger,
		interval:  checkInterval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

func (w *Worker) Name() string {
	return "healthcheck"
}

func (w *Worker) Start() error {
	w.logger.Info("Starting health check worker",
		"interval", w.interval,
		"admin_count", len(w.adminIDs))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.Error("Panic in healthcheck worker goroutine", "panic", r)
			}
		}()
		w.run()
	}()
	return nil
}

func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Worker) run() {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.check(context.Background())
	for {
		select {
		case <-ticker.C:
			w.check(context.Background())
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	version, err := w.extractor.Healthy(ctx)
	up := err == nil
	if up {
		metrics.ExtractorUp.Set(1)
		w.logger.Debug("Extractor healthy", "version", version)
	} else {
		metrics.ExtractorUp.Set(0)
		w.logger.Error("Extractor health check failed", "error", err)
	}

	previous := w.healthy
	w.healthy = &up

	// Первая успешная проверка не шумит
	if previous == nil && up {
		return
	}
	if previous != nil && *previous == up {
		return
	}

	var text string
	if up {
		text = fmt.Sprintf("✅ <b>Экстрактор снова работает</b>\nyt-dlp %s", html.EscapeString(version))
	} else {
		text = fmt.Sprintf("🔴 <b>Экстрактор недоступен</b>\n<code>%s</code>", html.EscapeString(err.Error()))
	}
	w.notifyAdmins(ctx, text)
}

func (w *Worker) notifyAdmins(ctx context.Context, text string) {
	for _, adminID := range w.adminIDs {
		if err := w.telegram.SendHTML(ctx, adminID, text); err != nil {
			w.logger.Warn("Failed to notify admin", "admin_id", adminID, "error", err)
		}
	}
}
