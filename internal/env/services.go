package environment

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"grabber-bot/internal/config"
	"grabber-bot/internal/infra/redis"
	tgclient "grabber-bot/internal/infra/telegram"
	"grabber-bot/internal/localization"
	"grabber-bot/internal/storage"
	"grabber-bot/internal/stories/alerts"
	"grabber-bot/internal/stories/broadcast"
	"grabber-bot/internal/stories/channels"
	"grabber-bot/internal/stories/downloads"
	"grabber-bot/internal/stories/entitlement"
	"grabber-bot/internal/stories/payment"
	"grabber-bot/internal/stories/promo"
	"grabber-bot/internal/stories/subs"
	"grabber-bot/internal/stories/tariffs"
	"grabber-bot/internal/stories/users"
	"grabber-bot/internal/telegram"
	"grabber-bot/internal/telegram/cmds"
	promoflow "grabber-bot/internal/telegram/flows/promo"
	"grabber-bot/internal/telegram/flows/subscribe"
	"grabber-bot/internal/telegram/states"
	"grabber-bot/internal/workers"
	"grabber-bot/internal/workers/expiration"
	"grabber-bot/internal/workers/healthcheck"
	"grabber-bot/internal/workers/maintenance"
	"grabber-bot/internal/workers/paymentautocheck"
)

const subscribeTopicName = "💎 Подписки"

type Services struct {
	TelegramRouter *telegram.Router
	Coordinator    *downloads.Coordinator
	Payments       *payment.Service
	WorkerService  *workers.Manager
}

func newServices(ctx context.Context, clients *Clients, cfg *config.Config, logger *slog.Logger) (*Services, error) {
	var s Services

	if clients.TelegramBot == nil {
		return nil, errors.New("telegram bot не инициализирован")
	}
	bot := clients.TelegramBot

	storageImpl := storage.New(clients.DB)

	l10n, err := localization.NewService()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load translations")
	}
	langs := telegram.NewLanguages()

	reporter := alerts.NewReporter(bot, cfg.Telegram.AdminErrorChatID, logger.With("component", "alerts"))

	// Доменные сервисы
	userService := users.NewService(storageImpl)
	subsService := subs.NewService(storageImpl)
	tariffService := tariffs.NewService(storageImpl)
	promoService := promo.NewService(storageImpl, logger)
	guard := channels.NewGuard(storageImpl, bot, logger)

	policy := entitlement.Policy{
		BaseBytes:            cfg.Downloads.BaseBytes(),
		DailyLimits:          cfg.Downloads.DailyLimits,
		SubscriberDailyLimit: cfg.Downloads.SubscriberDailyLimit,
	}
	entitlementService := entitlement.NewService(storageImpl, storageImpl, storageImpl, storageImpl, policy)

	botUsername := cfg.Telegram.BotUsername
	if botUsername == "" {
		botUsername = bot.Username()
	}

	notifier := telegram.NewNotifier(bot, bot, userService, l10n, langs,
		cfg.Telegram.SupportGroupID, subscribeTopic(ctx, bot, cfg.Telegram, logger), logger)

	// nil-указатель в интерфейсе не равен nil, поэтому только явное присваивание
	var yooKassa payment.YooKassaClient
	if clients.YooKassa != nil {
		yooKassa = clients.YooKassa
	}
	paymentService := payment.NewService(storageImpl, tariffService, yooKassa, notifier, reporter, logger.With("component", "payment"))

	var cache downloads.ProbeCache
	if clients.Redis != nil {
		cache = redis.NewProbeCache(clients.Redis, logger)
	}

	var publisher downloads.Publisher
	switch {
	case clients.S3 != nil:
		publisher = clients.S3
	case cfg.Domain != "":
		publisher = clients.Files
	default:
		logger.Warn("Neither S3 nor DOMAIN configured, files above the upload limit will be rejected")
	}

	responder := telegram.NewResponder(bot, bot, l10n, langs, botUsername, logger)
	coordinator := downloads.NewCoordinator(downloads.Config{
		ProbeTimeout:      cfg.Extractor.ProbeTimeout,
		ProbeCacheTTL:     cfg.Extractor.ProbeTTL,
		CleanupDelay:      cfg.Downloads.CleanupDelay,
		InlineUploadBytes: cfg.Downloads.InlineUploadBytes(),
		FreeLinkTTL:       cfg.Downloads.FreeLinkTTL,
		SubscriberLinkTTL: cfg.Downloads.SubscriberLinkTTL,
		MaxStoredLinks:    cfg.Downloads.MaxStoredLinks,
		Workers:           cfg.Extractor.Workers,
	}, storageImpl, clients.Extractor, cache, entitlementService, guard, publisher, responder, reporter,
		logger.With("component", "downloads"))

	broadcastEngine := broadcast.NewEngine(telegram.NewBroadcastSender(bot), userService, broadcast.Config{
		PerMessageDelay:        cfg.Broadcast.PerMessageDelay,
		ProgressUpdateInterval: cfg.Broadcast.ProgressUpdateInterval,
	}, logger.With("component", "broadcast"))

	stateManager := states.NewManager()
	adminChecker := telegram.NewAdminChecker(&cfg.Telegram)

	subscriberBytes := entitlement.Resolve(entitlement.Snapshot{SubscriptionActive: true}, policy).SubscriberBytes

	s.TelegramRouter = telegram.NewRouter(
		bot,
		stateManager,
		userService,
		adminChecker,
		langs,
		coordinator,
		l10n,
		reporter,
		logger,
		telegram.Handlers{
			Start:     cmds.NewStartCommand(bot, userService, l10n),
			Profile:   cmds.NewProfileCommand(bot, userService, entitlementService, subsService, storageImpl, l10n, botUsername),
			History:   cmds.NewHistoryCommand(bot, storageImpl, l10n, cfg.Downloads.MaxStoredLinks),
			Stats:     cmds.NewStatsCommand(bot, storageImpl),
			Guard:     cmds.NewGuardCommand(bot, guard),
			NewPromo:  cmds.NewNewPromoCommand(bot, promoService),
			Broadcast: cmds.NewBroadcastCommand(bot, broadcastEngine, logger),
			Subscribe: subscribe.NewHandler(bot, bot, tariffService, paymentService, l10n, subscriberBytes, logger),
			Promo:     promoflow.NewHandler(bot, stateManager, promoService, l10n, logger),
		},
	)

	s.WorkerService = workers.NewManager(logger,
		maintenance.NewWorker(clients.Files, stateManager, coordinator, storageImpl, logger.With("worker", "maintenance")),
		expiration.NewWorker(subsService, notifier, logger.With("worker", "expiration")),
		healthcheck.NewWorker(clients.Extractor, bot, adminChecker.AdminIDs(), logger.With("worker", "healthcheck")),
		paymentautocheck.NewWorker(paymentService, logger.With("worker", "paymentautocheck")),
	)

	s.Coordinator = coordinator
	s.Payments = paymentService
	return &s, nil
}

// subscribeTopic возвращает тему для уведомлений об оплате; если она не задана,
// создаёт новую в группе поддержки.
func subscribeTopic(ctx context.Context, bot *tgclient.Client, cfg config.TelegramConfig, logger *slog.Logger) int64 {
	if cfg.SupportGroupID == 0 || cfg.SubscribeTopicID != 0 {
		return cfg.SubscribeTopicID
	}

	topicID, err := bot.CreateForumTopic(ctx, cfg.SupportGroupID, subscribeTopicName)
	if err != nil {
		logger.Warn("Failed to create subscription topic, posting to the group itself", "error", err)
		return 0
	}
	logger.Info("Subscription topic created, set SUBSCRIBE_TOPIC_ID to keep it", "topic_id", topicID)
	return topicID
}
