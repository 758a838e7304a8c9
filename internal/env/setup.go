package environment

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"

	"grabber-bot/internal/config"
	"grabber-bot/internal/storage"
)

type closer func()

type Env struct {
	Config   *config.Config
	Logger   *slog.Logger
	Servers  *Servers
	Clients  *Clients
	Services *Services

	Closers []closer
}

func Setup(ctx context.Context) (*Env, error) {
	// .env необязателен
	_ = godotenv.Load()

	var cfg config.Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, errors.Wrap(err, "env processing")
	}

	logger, err := initLogger(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "initLogger")
	}

	e := Env{Config: &cfg, Logger: logger}

	clients, closers, err := newClients(ctx, cfg, logger)
	e.Closers = closers
	if err != nil {
		e.Close()
		return nil, errors.Wrap(err, "newClients")
	}
	e.Clients = clients

	if err := storage.Migrate(ctx, clients.DB); err != nil {
		e.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	services, err := newServices(ctx, clients, &cfg, logger)
	if err != nil {
		e.Close()
		return nil, errors.Wrap(err, "newServices")
	}
	e.Services = services

	e.Servers = newServers(ctx, cfg, logger, clients, services)

	return &e, nil
}

// Close освобождает клиенты в обратном порядке.
func (e *Env) Close() {
	for i := len(e.Closers) - 1; i >= 0; i-- {
		e.Closers[i]()
	}
	e.Closers = nil
}
