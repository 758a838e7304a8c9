package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Env              string                  `env:"ENV,default=local"`
	Logger           LoggerConfig            `env:",prefix=LOGGER_"`
	Observability    ObservabilityHTTPConfig `env:",prefix=OBSERVABILITY_"`
	HTTP             APIHTTPConfig           `env:",prefix=HTTP_"`
	ShutdownDuration time.Duration           `env:"SHUTDOWN_DURATION,default=30s"`
	DB               DBConfig
	Telegram         TelegramConfig
	YooKassa         YooKassaConfig
	Downloads        DownloadsConfig
	Extractor        ExtractorConfig `env:",prefix=EXTRACTOR_"`
	Broadcast        BroadcastConfig `env:",prefix=BROADCAST_"`
	S3               S3Config        `env:",prefix=S3_"`

	RedisURL string `env:"REDIS_URL"`
	// Публичный адрес, по которому отдаются большие файлы (/video/{name}).
	Domain string `env:"DOMAIN"`
	// Ключ криптопровайдера; оплата криптой пока не подключена.
	CMCAPIKey string `env:"CMC_API_KEY"`
}

type TelegramConfig struct {
	BotToken         string  `env:"BOT_TOKEN,required"`
	AdminIDs         []int64 `env:"ADMINS"`
	AdminErrorChatID int64   `env:"ADMIN_ERROR"`
	SupportGroupID   int64   `env:"SUPPORT_GROUP_ID"`
	SubscribeTopicID int64   `env:"SUBSCRIBE_TOPIC_ID"`
	BotUsername      string  `env:"BOT_USERNAME"`
}

type YooKassaConfig struct {
	ShopID    string `env:"SHOP_ID"`
	SecretKey string `env:"API_KEY"`
	ReturnURL string `env:"YOOKASSA_RETURN_URL,default=https://t.me"`
}

func (c YooKassaConfig) Enabled() bool {
	return c.ShopID != "" && c.SecretKey != ""
}

type DownloadsConfig struct {
	Dir string `env:"DOWNLOAD_DIR,default=./downloads"`
	// Базовый потолок размера файла в мегабайтах.
	FileLimitMB          int64         `env:"DOWNLOAD_FILE_LIMIT,default=50"`
	DailyLimits          map[int]int   `env:"DAILY_DOWNLOAD_LIMITS,default=1:10,2:20,3:30,4:50,5:100"`
	SubscriberDailyLimit int           `env:"SUBSCRIBER_DAILY_LIMIT,default=0"`
	MaxStoredLinks       int           `env:"MAX_STORED_LINKS,default=10"`
	CleanupDelay         time.Duration `env:"DOWNLOAD_CLEANUP_DELAY,default=10s"`
	FreeLinkTTL          time.Duration `env:"DOWNLOAD_FREE_LINK_TTL,default=300s"`
	SubscriberLinkTTL    time.Duration `env:"DOWNLOAD_SUBSCRIBER_LINK_TTL,default=900s"`
	InlineUploadLimitMB  int64         `env:"DOWNLOAD_INLINE_LIMIT,default=49"`
}

func (c DownloadsConfig) BaseBytes() int64 {
	return c.FileLimitMB * 1024 * 1024
}

func (c DownloadsConfig) InlineUploadBytes() int64 {
	return c.InlineUploadLimitMB * 1024 * 1024
}

type ExtractorConfig struct {
	Binary       string        `env:"BINARY"`
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT,default=30s"`
	Attempts     int           `env:"ATTEMPTS,default=3"`
	Backoff      time.Duration `env:"BACKOFF,default=5s"`
	Workers      int64         `env:"WORKERS,default=4"`
	ProbeTTL     time.Duration `env:"PROBE_CACHE_TTL,default=10m"`
}

type BroadcastConfig struct {
	ProgressUpdateInterval time.Duration `env:"PROGRESS_UPDATE_INTERVAL,default=5s"`
	PerMessageDelay        time.Duration `env:"PER_MESSAGE_DELAY,default=50ms"`
}

type S3Config struct {
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET,default=videos"`
	UseSSL    bool   `env:"USE_SSL,default=true"`
}

func (c S3Config) Enabled() bool {
	return c.Endpoint != "" && c.AccessKey != ""
}

type LoggerConfig struct {
	Level string `env:"LEVEL,default=debug"`
}

type ObservabilityHTTPConfig struct {
	Host         string        `env:"HOST,default=127.0.0.1"`
	Port         uint16        `env:"PORT,default=8383"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT,default=30s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT,default=1m"`
}

func (a ObservabilityHTTPConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type APIHTTPConfig struct {
	Host           string        `env:"HOST,default=0.0.0.0"`
	Port           uint16        `env:"PORT,default=8080"`
	ReadTimeout    time.Duration `env:"READ_TIMEOUT,default=15s"`
	WriteTimeout   time.Duration `env:"WRITE_TIMEOUT,default=5m"`
	WebhookTimeout time.Duration `env:"WEBHOOK_TIMEOUT,default=5s"`
	WebhookRPM     int           `env:"WEBHOOK_RPM,default=120"`
}

func (a APIHTTPConfig) ADDR() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type DBConfig struct {
	URL          string        `env:"DATABASE_URL,default=file:./data/bot.db?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS,default=25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	MaxLifetime  time.Duration `env:"DB_MAX_LIFETIME,default=5m"`
}

// IsPostgres reports whether the DSN points to PostgreSQL.
func (c DBConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://")
}
