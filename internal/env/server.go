package environment

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"grabber-bot/internal/config"
	"grabber-bot/internal/telegram"
)

type Servers struct {
	HTTP struct {
		Observability *http.Server
		API           *http.Server
	}
}

func newServers(ctx context.Context, cfg config.Config, logger *slog.Logger, clients *Clients, services *Services) *Servers {
	var servers Servers

	// /video отдаём сами, только когда файлы не уходят в S3
	var files interface {
		Open(name string) (*os.File, error)
	}
	if clients.S3 == nil && cfg.Domain != "" {
		files = clients.Files
	}

	servers.HTTP.API = &http.Server{
		Addr: cfg.HTTP.ADDR(),
		Handler: telegram.NewWebRouter(services.Payments, files, telegram.WebConfig{
			WebhookTimeout: cfg.HTTP.WebhookTimeout,
			WebhookRPM:     cfg.HTTP.WebhookRPM,
		}, logger.WithGroup("http")),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	servers.HTTP.Observability = initObservability(ctx, logger.WithGroup("http"), clients, cfg)

	return &servers
}
