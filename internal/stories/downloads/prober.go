package downloads

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"grabber-bot/internal/infra/extractor"
)

// prober схлопывает одновременные probe одного URL и кэширует результат.
type prober struct {
	extractor Extractor
	cache     ProbeCache
	ttl       time.Duration
	timeout   time.Duration
	group     singleflight.Group
	logger    *slog.Logger
}

func (p *prober) Probe(ctx context.Context, url string) (*extractor.MediaInfo, error) {
	if p.cache != nil {
		if info, ok := p.cache.Get(ctx, url); ok {
			return info, nil
		}
	}

	ch := p.group.DoChan(url, func() (any, error) {
		// Общий probe не зависит от отмены одного из ожидающих.
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		info, err := p.extractor.Probe(pctx, url)
		if err != nil {
			return nil, err
		}
		if p.cache != nil {
			p.cache.Set(pctx, url, info, p.ttl)
		}
		return info, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			p.logger.Debug("probe shared", "url", url)
		}
		return res.Val.(*extractor.MediaInfo), nil
	}
}
