package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	environment "grabber-bot/internal/env"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	env, err := environment.Setup(ctx)
	if err != nil {
		log.Fatalf("Failed to setup environment: %v", err)
	}
	defer env.Close()

	logger := env.Logger
	logger.Info("Starting grabber-bot")

	serve(logger, "observability", env.Servers.HTTP.Observability)
	serve(logger, "api", env.Servers.HTTP.API)

	if err := startTelegramBot(ctx, env); err != nil {
		logger.Error("Failed to start telegram bot", slog.Any("error", err))
		return
	}

	if err := env.Services.WorkerService.Start(); err != nil {
		logger.Error("Failed to start worker service", slog.Any("error", err))
		env.Clients.TelegramBot.Stop()
		return
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Bot started successfully. Press Ctrl+C to stop.")
	<-quit

	logger.Info("Shutting down application...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), env.Config.ShutdownDuration)
	defer shutdownCancel()

	// Роутер перестаёт брать апдейты, начатые задачи отменяются, но ещё могут ответить
	cancel()

	done := make(chan struct{})
	go func() {
		env.Services.TelegramRouter.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("Updates still in flight at shutdown deadline")
	}

	env.Clients.TelegramBot.Stop()
	env.Services.WorkerService.Stop()

	for name, srv := range map[string]*http.Server{
		"api":           env.Servers.HTTP.API,
		"observability": env.Servers.HTTP.Observability,
	} {
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server shutdown error", slog.String("server", name), slog.Any("error", err))
		}
	}

	logger.Info("Application stopped")
}

func serve(logger *slog.Logger, name string, srv *http.Server) {
	if srv == nil {
		return
	}
	go func() {
		logger.Info("Starting HTTP server", slog.String("server", name), slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.String("server", name), slog.Any("error", err))
		}
	}()
}

func startTelegramBot(ctx context.Context, env *environment.Env) error {
	logger := env.Logger

	if env.Services.TelegramRouter == nil {
		return fmt.Errorf("telegram router не инициализирован")
	}

	// Клиент живёт дольше роутера: его останавливает Stop
	if err := env.Clients.TelegramBot.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("запуск telegram клиента: %w", err)
	}

	if err := env.Services.TelegramRouter.SetupBotCommands(); err != nil {
		// Не критично: меню останется прежним
		logger.Error("Failed to setup bot commands", slog.Any("error", err))
	} else {
		logger.Info("Bot commands set up successfully")
	}

	logger.Info("Started listening for updates with router...")
	go env.Services.TelegramRouter.Run(ctx, env.Clients.TelegramBot.GetUpdates())

	return nil
}
