package broadcast

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"grabber-bot/internal/metrics"
	"grabber-bot/internal/stories/users"
)

// Обновлять прогресс после каждых progressEvery успешных отправок.
const progressEvery = 100

type Config struct {
	PerMessageDelay        time.Duration
	ProgressUpdateInterval time.Duration
}

type Engine struct {
	sender   Sender
	audience AudienceProvider
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	running  atomic.Bool
}

func NewEngine(sender Sender, audience AudienceProvider, cfg Config, logger *slog.Logger) *Engine {
	return &Engine{
		sender:   sender,
		audience: audience,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Recipients возвращает получателей для аудитории.
func (e *Engine) Recipients(ctx context.Context, audience Audience) ([]int64, error) {
	var criteria users.AudienceCriteria
	switch audience {
	case AudienceAll:
	case AudienceFree:
		criteria.NeverPaid = true
	case AudienceAds:
		criteria.NeverPaid = true
		criteria.ExcludeVIP = true
	case AudienceNoSub:
		criteria.WithoutActiveSubscription = true
	default:
		return nil, fmt.Errorf("unknown audience %q", audience)
	}
	return e.audience.Audience(ctx, criteria)
}

// Run рассылает msg получателям с паузой между сообщениями.
func (e *Engine) Run(ctx context.Context, recipients []int64, msg Message, progress ProgressFunc) Report {
	started := e.now()
	report := Report{
		Progress: Progress{Total: len(recipients)},
		ByKind:   map[ErrorKind]int{},
	}

	var limiter *rate.Limiter
	if e.cfg.PerMessageDelay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.cfg.PerMessageDelay), 1)
	}

	lastUpdate := started
	sinceUpdate := 0

	for _, chatID := range recipients {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		kind, err := e.send(ctx, chatID, msg)
		if err != nil {
			report.Failed++
			report.ByKind[kind]++
			metrics.BroadcastMessages.WithLabelValues(string(kind)).Inc()
			e.logger.Debug("Broadcast send failed", "chat_id", chatID, "kind", kind, "error", err)
		} else {
			report.Sent++
			sinceUpdate++
			metrics.BroadcastMessages.WithLabelValues("sent").Inc()
		}

		if progress != nil && (sinceUpdate >= progressEvery || e.now().Sub(lastUpdate) >= e.cfg.ProgressUpdateInterval) {
			progress(ctx, report.Progress)
			lastUpdate = e.now()
			sinceUpdate = 0
		}
	}

	report.Duration = e.now().Sub(started)
	if progress != nil {
		progress(ctx, report.Progress)
	}

	e.logger.Info("Broadcast finished",
		"total", report.Total,
		"sent", report.Sent,
		"failed", report.Failed,
		"duration", report.Duration.Round(time.Second),
	)
	return report
}

// send отправляет одно сообщение; при FloodWait ждёт и повторяет один раз.
func (e *Engine) send(ctx context.Context, chatID int64, msg Message) (ErrorKind, error) {
	err := e.sender.SendBroadcast(ctx, chatID, msg)
	if err == nil {
		return "", nil
	}

	kind, retryAfter := Classify(err)
	if kind != ErrFloodWait {
		return kind, err
	}

	e.logger.Warn("Broadcast flood wait", "retry_after", retryAfter)
	if err := e.sleep(ctx, retryAfter); err != nil {
		return ErrFloodWait, err
	}

	if err = e.sender.SendBroadcast(ctx, chatID, msg); err != nil {
		kind, _ = Classify(err)
		return kind, err
	}
	return "", nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
