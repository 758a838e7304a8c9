package downloads

import (
	"context"
	"time"

	"grabber-bot/internal/infra/extractor"
	"grabber-bot/internal/stories/channels"
	"grabber-bot/internal/stories/entitlement"
)

type (
	Storage interface {
		GetDailyCount(ctx context.Context, userID int64, day time.Time) (int, error)
		// RecordDownload увеличивает счётчики, добавляет ссылку и обрезает кольцо.
		RecordDownload(ctx context.Context, record Record) error
		ListRecentLinks(ctx context.Context, userID int64, limit int) ([]*Link, error)
		GetTotals(ctx context.Context, userID int64) (*Totals, error)
		PruneDailyDownloads(ctx context.Context, before time.Time) (int64, error)
	}

	Extractor interface {
		Probe(ctx context.Context, url string) (*extractor.MediaInfo, error)
		FetchByTag(ctx context.Context, url string, r extractor.Rendition) (*extractor.LocalFile, error)
		FetchBestOf(ctx context.Context, url string, info *extractor.MediaInfo, ceiling int64) (*extractor.LocalFile, error)
		FetchAudio(ctx context.Context, url string) (*extractor.LocalFile, error)
	}

	// ProbeCache кэш результатов probe по нормализованному URL.
	ProbeCache interface {
		Get(ctx context.Context, url string) (*extractor.MediaInfo, bool)
		Set(ctx context.Context, url string, info *extractor.MediaInfo, ttl time.Duration)
	}

	Entitlements interface {
		Resolve(ctx context.Context, userID int64) (entitlement.Limits, error)
	}

	Guard interface {
		NotJoined(ctx context.Context, userID int64) ([]channels.Channel, error)
	}

	// Publisher выкладывает большой файл по публичной ссылке и сам удаляет его после ttl.
	Publisher interface {
		Publish(ctx context.Context, path string, ttl time.Duration) (string, error)
	}

	ErrorReporter interface {
		Report(ctx context.Context, err error, attrs ...any)
	}

	// Responder отвечает пользователю; тексты и клавиатуры на стороне транспорта.
	Responder interface {
		Busy(ctx context.Context, chatID int64)
		Unsupported(ctx context.Context, chatID int64)
		QuotaExceeded(ctx context.Context, chatID int64, limits entitlement.Limits)
		NotJoined(ctx context.Context, chatID int64, missing []channels.Channel)
		ExtractFailed(ctx context.Context, chatID int64, err error)
		Choose(ctx context.Context, chatID int64, selection *Selection)
		SelectionExpired(ctx context.Context, chatID int64)
		Gated(ctx context.Context, chatID int64, option Option, limits entitlement.Limits)
		SizeExceeded(ctx context.Context, chatID int64, actual, ceiling int64)
		Fetching(ctx context.Context, chatID int64)
		InternalError(ctx context.Context, chatID int64)

		SendVideo(ctx context.Context, chatID int64, file *extractor.LocalFile, caption string) error
		SendAudio(ctx context.Context, chatID int64, file *extractor.LocalFile, caption string) error
		SendLink(ctx context.Context, chatID int64, url string, sizeBytes int64, ttl time.Duration) error
	}
)
