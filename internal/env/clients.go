package environment

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"grabber-bot/internal/config"
	"grabber-bot/internal/infra/extractor"
	"grabber-bot/internal/infra/filestore"
	"grabber-bot/internal/infra/postgres"
	"grabber-bot/internal/infra/redis"
	"grabber-bot/internal/infra/s3"
	"grabber-bot/internal/infra/sqlite3"
	"grabber-bot/internal/infra/telegram"
	"grabber-bot/internal/infra/yookassa"
)

type Clients struct {
	DB          *sqlx.DB
	TelegramBot *telegram.Client
	Extractor   *extractor.Extractor
	Files       *filestore.Store

	// Необязательные: nil, если не настроены
	Redis    *goredis.Client
	YooKassa *yookassa.Client
	S3       *s3.Publisher
}

func newClients(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Clients, []closer, error) {
	var (
		c       Clients
		closers []closer
		err     error
	)

	c.DB, err = provideDB(ctx, cfg)
	if err != nil {
		return nil, nil, errors.Wrap(err, "database")
	}
	closers = append(closers, func() { _ = c.DB.Close() })

	c.TelegramBot, err = telegram.NewClient(cfg.Telegram.BotToken, logger.With("component", "telegram"))
	if err != nil {
		return nil, closers, err
	}

	c.Extractor, err = extractor.New(cfg.Downloads.Dir, logger.With("component", "extractor"),
		extractor.WithBackend(extractor.NewCLIBackend(cfg.Extractor.Binary)),
		extractor.WithAttempts(cfg.Extractor.Attempts),
		extractor.WithBackoff(cfg.Extractor.Backoff),
	)
	if err != nil {
		return nil, closers, err
	}

	c.Files, err = filestore.New(cfg.Downloads.Dir, publicBaseURL(cfg.Domain), logger.With("component", "filestore"))
	if err != nil {
		return nil, closers, err
	}

	if cfg.RedisURL != "" {
		c.Redis, err = redis.New(ctx, cfg.RedisURL)
		if err != nil {
			return nil, closers, errors.Wrap(err, "redis")
		}
		closers = append(closers, func() { _ = c.Redis.Close() })
		logger.Info("Probe cache enabled", "backend", "redis")
	}

	if cfg.YooKassa.Enabled() {
		c.YooKassa = yookassa.NewClient(cfg.YooKassa.ShopID, cfg.YooKassa.SecretKey, cfg.YooKassa.ReturnURL,
			logger.With("component", "yookassa"))
	} else {
		logger.Info("YooKassa is not configured, card payments disabled")
	}

	if cfg.S3.Enabled() {
		c.S3, err = s3.NewPublisher(ctx, s3.Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			UseSSL:    cfg.S3.UseSSL,
		}, logger.With("component", "s3"))
		if err != nil {
			return nil, closers, errors.Wrap(err, "s3")
		}
	}

	return &c, closers, nil
}

func provideDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	if cfg.DB.IsPostgres() {
		return postgres.New(ctx, postgres.Config{
			URL:          cfg.DB.URL,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			MaxLifetime:  cfg.DB.MaxLifetime,
		})
	}

	// SQLite пишет в один поток
	return sqlite3.New(ctx,
		sqlite3.WithDSN(cfg.DB.URL),
		sqlite3.WithMaxOpenConns(1),
		sqlite3.WithMaxIdleConns(1),
		sqlite3.WithConnMaxLifetime(cfg.DB.MaxLifetime),
	)
}

// publicBaseURL добавляет схему к DOMAIN; пустой DOMAIN отключает публичные ссылки.
func publicBaseURL(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if domain == "" || strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain
}
