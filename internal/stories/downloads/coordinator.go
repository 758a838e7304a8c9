package downloads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/xid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"grabber-bot/internal/infra/extractor"
	"grabber-bot/internal/metrics"
	"grabber-bot/internal/stories/alerts"
	"grabber-bot/internal/stories/entitlement"
	"grabber-bot/internal/stories/platform"
)

var tracer = otel.Tracer("grabber-bot/downloads")

type Config struct {
	ProbeTimeout      time.Duration
	ProbeCacheTTL     time.Duration
	CleanupDelay      time.Duration
	InlineUploadBytes int64
	FreeLinkTTL       time.Duration
	SubscriberLinkTTL time.Duration
	MaxStoredLinks    int
	Workers           int64
}

// Request входящая ссылка от пользователя.
type Request struct {
	UserID int64
	ChatID int64
	URL    string
}

// Choice нажатие кнопки на клавиатуре выбора качества.
type Choice struct {
	UserID      int64
	ChatID      int64
	SelectionID string
	Choice      string
}

// Coordinator ведёт задачу загрузки: допуск, probe, проверки, загрузка,
// доставка, учёт и очистка. У пользователя не больше одной задачи.
type Coordinator struct {
	cfg          Config
	storage      Storage
	extractor    Extractor
	prober       *prober
	entitlements Entitlements
	guard        Guard
	publisher    Publisher
	responder    Responder
	reporter     ErrorReporter
	logger       *slog.Logger

	locks      *userLocks
	selections *selections
	pool       *semaphore.Weighted
	now        func() time.Time
}

// NewCoordinator builds the coordinator. cache and publisher are optional.
func NewCoordinator(
	cfg Config,
	storage Storage,
	ext Extractor,
	cache ProbeCache,
	entitlements Entitlements,
	guard Guard,
	publisher Publisher,
	responder Responder,
	reporter ErrorReporter,
	logger *slog.Logger,
) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Coordinator{
		cfg:          cfg,
		storage:      storage,
		extractor:    ext,
		prober:       &prober{extractor: ext, cache: cache, ttl: cfg.ProbeCacheTTL, timeout: cfg.ProbeTimeout, logger: logger},
		entitlements: entitlements,
		guard:        guard,
		publisher:    publisher,
		responder:    responder,
		reporter:     reporter,
		logger:       logger,
		locks:        newUserLocks(),
		selections:   newSelections(),
		pool:         semaphore.NewWeighted(cfg.Workers),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// job состояние одной задачи пользователя.
type job struct {
	id       string
	userID   int64
	chatID   int64
	url      string
	platform platform.Platform
	logger   *slog.Logger
}

// HandleURL обрабатывает ссылку. Для YouTube задача заканчивается показом
// клавиатуры, загрузка продолжается в HandleChoice.
func (c *Coordinator) HandleURL(ctx context.Context, req Request) {
	url := platform.Normalize(req.URL)
	p := platform.Detect(url)
	if p == platform.Unknown {
		c.responder.Unsupported(ctx, req.ChatID)
		return
	}

	if !c.locks.TryAcquire(req.UserID) {
		c.responder.Busy(ctx, req.ChatID)
		return
	}
	defer c.locks.Release(req.UserID)

	j := c.newJob(req.UserID, req.ChatID, url, p)
	defer c.recoverJob(ctx, j)

	limits, ok := c.admit(ctx, j)
	if !ok {
		return
	}
	limits = c.deliverable(limits)

	if limits.NeedsGuard {
		missing, err := c.guard.NotJoined(ctx, j.userID)
		if err != nil {
			c.internalError(ctx, j, "channel guard", err)
			return
		}
		if len(missing) > 0 {
			j.logger.Info("Channel guard rejected", "missing", len(missing))
			metrics.Downloads.WithLabelValues(string(p), metrics.ResultRejected).Inc()
			c.responder.NotJoined(ctx, j.chatID, missing)
			return
		}
	}

	info, err := c.probe(ctx, j)
	if err != nil {
		c.extractFailed(ctx, j, err)
		return
	}

	if p == platform.YouTube {
		sel := &Selection{
			ID:            j.id,
			UserID:        j.userID,
			ChatID:        j.chatID,
			URL:           url,
			Platform:      p,
			Title:         info.Title,
			MaxResolution: MaxResolution(info),
			Options:       BuildOptions(info, limits),
			CreatedAt:     c.now(),
		}
		c.selections.Put(sel)
		c.responder.Choose(ctx, j.chatID, sel)
		return
	}

	file, err := c.fetch(ctx, j, "fetch_best", func(ctx context.Context) (*extractor.LocalFile, error) {
		return c.extractor.FetchBestOf(ctx, url, info, limits.MaxFileBytes)
	})
	if err != nil {
		c.fetchFailed(ctx, j, err)
		return
	}

	c.complete(ctx, j, file, false, info.Title, limits)
}

// HandleChoice продолжает YouTube-задачу после выбора качества.
func (c *Coordinator) HandleChoice(ctx context.Context, choice Choice) {
	if !c.locks.TryAcquire(choice.UserID) {
		c.responder.Busy(ctx, choice.ChatID)
		return
	}
	defer c.locks.Release(choice.UserID)

	sel, ok := c.selections.Get(choice.SelectionID, choice.UserID)
	if !ok {
		c.responder.SelectionExpired(ctx, choice.ChatID)
		return
	}
	option, ok := sel.Find(choice.Choice)
	if !ok {
		c.responder.SelectionExpired(ctx, choice.ChatID)
		return
	}

	j := c.newJob(choice.UserID, choice.ChatID, sel.URL, sel.Platform)
	j.logger = j.logger.With("selection_id", sel.ID, "choice", option.Choice)
	defer c.recoverJob(ctx, j)

	limits, ok := c.admit(ctx, j)
	if !ok {
		return
	}
	limits = c.deliverable(limits)

	// Проверка повторяется: лимиты могли измениться с момента показа клавиатуры.
	if !option.Audio {
		option.Gate = entitlement.Gate(limits, option.Resolution, option.SizeBytes, sel.MaxResolution)
	}
	if !option.Allowed() {
		j.logger.Info("Rendition gated", "reason", option.Gate)
		metrics.Downloads.WithLabelValues(string(j.platform), metrics.ResultGated).Inc()
		c.responder.Gated(ctx, j.chatID, option, limits)
		return
	}
	c.selections.Delete(sel.ID)

	var (
		file *extractor.LocalFile
		err  error
	)
	if option.Audio {
		file, err = c.fetch(ctx, j, "fetch_audio", func(ctx context.Context) (*extractor.LocalFile, error) {
			return c.extractor.FetchAudio(ctx, sel.URL)
		})
	} else {
		file, err = c.fetch(ctx, j, "fetch_by_tag", func(ctx context.Context) (*extractor.LocalFile, error) {
			return c.extractor.FetchByTag(ctx, sel.URL, option.Rendition)
		})
	}
	if err != nil {
		c.fetchFailed(ctx, j, err)
		return
	}

	if file.SizeBytes > limits.MaxFileBytes {
		c.remove(file.Path)
		c.fetchFailed(ctx, j, &extractor.SizeExceededError{Actual: file.SizeBytes, Ceiling: limits.MaxFileBytes})
		return
	}

	c.complete(ctx, j, file, option.Audio, sel.Title, limits)
}

// PurgeSelections удаляет клавиатуры выбора старше maxAge.
func (c *Coordinator) PurgeSelections(maxAge time.Duration) int {
	return c.selections.Purge(c.now().Add(-maxAge))
}

// Busy reports whether the user has a job in flight.
func (c *Coordinator) Busy(userID int64) bool {
	return c.locks.Held(userID)
}

func (c *Coordinator) newJob(userID, chatID int64, url string, p platform.Platform) *job {
	id := xid.New().String()
	return &job{
		id:       id,
		userID:   userID,
		chatID:   chatID,
		url:      url,
		platform: p,
		logger:   c.logger.With("job_id", id, "user_id", userID, "platform", p),
	}
}

// admit снимает лимиты и проверяет дневную квоту.
func (c *Coordinator) admit(ctx context.Context, j *job) (entitlement.Limits, bool) {
	limits, err := c.entitlements.Resolve(ctx, j.userID)
	if err != nil {
		c.internalError(ctx, j, "resolve entitlement", err)
		return entitlement.Limits{}, false
	}

	if limits.QuotaExceeded() {
		j.logger.Info("Daily quota exceeded", "used", limits.DailyUsed, "limit", limits.DailyLimit)
		metrics.Downloads.WithLabelValues(string(j.platform), metrics.ResultRejected).Inc()
		c.responder.QuotaExceeded(ctx, j.chatID, limits)
		return limits, false
	}
	return limits, true
}

func (c *Coordinator) probe(ctx context.Context, j *job) (*extractor.MediaInfo, error) {
	ctx, span := tracer.Start(ctx, "downloads.probe", trace.WithAttributes(
		attribute.String("platform", string(j.platform)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	info, err := c.prober.Probe(ctx, j.url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "probe failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("renditions", len(info.Renditions)))
	return info, nil
}

// fetch выполняет загрузку в общем пуле воркеров.
func (c *Coordinator) fetch(
	ctx context.Context,
	j *job,
	op string,
	fn func(ctx context.Context) (*extractor.LocalFile, error),
) (*extractor.LocalFile, error) {
	ctx, span := tracer.Start(ctx, "downloads."+op)
	defer span.End()

	c.responder.Fetching(ctx, j.chatID)

	if err := c.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.pool.Release(1)

	started := c.now()
	file, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int64("size_bytes", file.SizeBytes))
	j.logger.Info("Fetched",
		"op", op,
		"size", humanize.IBytes(uint64(file.SizeBytes)),
		"took", c.now().Sub(started).Round(time.Millisecond),
	)
	return file, nil
}

// complete доставляет файл, фиксирует загрузку и планирует удаление.
func (c *Coordinator) complete(ctx context.Context, j *job, file *extractor.LocalFile, audio bool, title string, limits entitlement.Limits) {
	published, err := c.deliver(ctx, j, file, audio, title, limits)
	if !published {
		c.scheduleRemoval(file.Path)
	}
	if errors.Is(err, errTooLargeToSend) {
		c.responder.SizeExceeded(ctx, j.chatID, file.SizeBytes, c.cfg.InlineUploadBytes)
		return
	}
	if errors.Is(err, errPublishFailed) {
		// Пользователь ничего не получил: загрузка не засчитывается.
		c.internalError(ctx, j, "publish", err)
		return
	}
	if err != nil {
		// Доставка могла частично пройти: учёт всё равно выполняется.
		j.logger.Error("Delivery failed", "error", err)
	}

	c.bookkeeping(ctx, j)
	metrics.Downloads.WithLabelValues(string(j.platform), metrics.ResultDelivered).Inc()
	metrics.DownloadBytes.WithLabelValues(string(j.platform)).Add(float64(file.SizeBytes))
}

var (
	errTooLargeToSend = errors.New("artifact is larger than the inline upload limit")
	errPublishFailed  = errors.New("publish artifact")
)

func (c *Coordinator) deliver(
	ctx context.Context,
	j *job,
	file *extractor.LocalFile,
	audio bool,
	title string,
	limits entitlement.Limits,
) (published bool, err error) {
	ctx, span := tracer.Start(ctx, "downloads.deliver")
	defer span.End()

	if file.SizeBytes > c.cfg.InlineUploadBytes {
		if c.publisher == nil {
			return false, errTooLargeToSend
		}

		ttl := c.cfg.FreeLinkTTL
		if limits.Subscribed {
			ttl = c.cfg.SubscriberLinkTTL
		}
		url, err := c.publisher.Publish(ctx, file.Path, ttl)
		if err != nil {
			return false, fmt.Errorf("%w: %w", errPublishFailed, err)
		}
		j.logger.Info("Artifact published", "ttl", ttl)
		return true, c.responder.SendLink(ctx, j.chatID, url, file.SizeBytes, ttl)
	}

	if audio {
		return false, c.responder.SendAudio(ctx, j.chatID, file, title)
	}
	return false, c.responder.SendVideo(ctx, j.chatID, file, title)
}

func (c *Coordinator) bookkeeping(ctx context.Context, j *job) {
	ctx, span := tracer.Start(ctx, "downloads.bookkeeping")
	defer span.End()

	err := c.storage.RecordDownload(ctx, Record{
		UserID:    j.userID,
		Platform:  j.platform,
		URL:       j.url,
		At:        c.now(),
		KeepLinks: c.cfg.MaxStoredLinks,
	})
	if err != nil {
		span.RecordError(err)
		j.logger.Error("Failed to record download", "error", err)
	}
}

// deliverable ограничивает потолки размера тем, что бот может доставить:
// без публикации ссылкой всё упирается в лимит загрузки в Telegram.
// Клавиатура, повторная проверка выбора и загрузка видят одни и те же лимиты.
func (c *Coordinator) deliverable(limits entitlement.Limits) entitlement.Limits {
	if c.publisher == nil && c.cfg.InlineUploadBytes > 0 {
		limits.MaxFileBytes = min(limits.MaxFileBytes, c.cfg.InlineUploadBytes)
		limits.SubscriberBytes = min(limits.SubscriberBytes, c.cfg.InlineUploadBytes)
	}
	return limits
}

func (c *Coordinator) extractFailed(ctx context.Context, j *job, err error) {
	if extractor.IsTerminal(err) {
		j.logger.Info("Extractor rejected content", "error", err)
	} else {
		j.logger.Warn("Extractor failed", "error", err)
	}
	metrics.Downloads.WithLabelValues(string(j.platform), metrics.ResultFailed).Inc()
	c.responder.ExtractFailed(ctx, j.chatID, err)
}

func (c *Coordinator) fetchFailed(ctx context.Context, j *job, err error) {
	var sizeErr *extractor.SizeExceededError
	if errors.As(err, &sizeErr) {
		j.logger.Info("Size ceiling exceeded",
			"actual", humanize.IBytes(uint64(sizeErr.Actual)),
			"ceiling", humanize.IBytes(uint64(sizeErr.Ceiling)),
		)
		metrics.Downloads.WithLabelValues(string(j.platform), metrics.ResultGated).Inc()
		c.responder.SizeExceeded(ctx, j.chatID, sizeErr.Actual, sizeErr.Ceiling)
		return
	}
	c.extractFailed(ctx, j, err)
}

func (c *Coordinator) internalError(ctx context.Context, j *job, op string, err error) {
	j.logger.Error("Download job failed", "op", op, "error", err)
	metrics.Downloads.WithLabelValues(string(j.platform), metrics.ResultFailed).Inc()
	c.responder.InternalError(ctx, j.chatID)
}

// recoverJob превращает панику задачи в отчёт администратору.
// Блокировка пользователя снимается отложенным Release выше по стеку.
func (c *Coordinator) recoverJob(ctx context.Context, j *job) {
	p := recover()
	if p == nil {
		return
	}
	err := alerts.Recovered(p)
	if c.reporter != nil {
		c.reporter.Report(ctx, err, "op", "download job", "job_id", j.id, "user_id", j.userID)
	}
	c.responder.InternalError(ctx, j.chatID)
}

func (c *Coordinator) scheduleRemoval(path string) {
	time.AfterFunc(c.cfg.CleanupDelay, func() { c.remove(path) })
}

func (c *Coordinator) remove(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		c.logger.Warn("Failed to remove artifact", "path", filepath.Base(path), "error", err)
	}
}
