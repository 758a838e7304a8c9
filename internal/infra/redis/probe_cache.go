package redis

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"grabber-bot/internal/infra/extractor"
)

const probeKeyPrefix = "grabber:probe:"

// New подключается к Redis по REDIS_URL и проверяет соединение.
func New(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ProbeCache хранит результаты probe. Ошибки Redis не мешают загрузке: кэш просто промахивается.
type ProbeCache struct {
	client goredis.UniversalClient
	logger *slog.Logger
}

func NewProbeCache(client goredis.UniversalClient, logger *slog.Logger) *ProbeCache {
	return &ProbeCache{client: client, logger: logger}
}

func (c *ProbeCache) Get(ctx context.Context, url string) (*extractor.MediaInfo, bool) {
	raw, err := c.client.Get(ctx, probeKey(url)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("Probe cache get failed", "error", err)
		return nil, false
	}

	var info extractor.MediaInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		c.logger.Warn("Probe cache entry is corrupted", "error", err)
		return nil, false
	}
	return &info, true
}

func (c *ProbeCache) Set(ctx context.Context, url string, info *extractor.MediaInfo, ttl time.Duration) {
	raw, err := json.Marshal(info)
	if err != nil {
		c.logger.Warn("Probe cache marshal failed", "error", err)
		return
	}
	if err := c.client.Set(ctx, probeKey(url), raw, ttl).Err(); err != nil {
		c.logger.Warn("Probe cache set failed", "error", err)
	}
}

func probeKey(url string) string {
	sum := sha1.Sum([]byte(url))
	return probeKeyPrefix + hex.EncodeToString(sum[:])
}
