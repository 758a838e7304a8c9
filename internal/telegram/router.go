package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/alerts"
	"grabber-bot/internal/stories/downloads"
	"grabber-bot/internal/stories/platform"
	"grabber-bot/internal/stories/users"
	"grabber-bot/internal/telegram/cmds"
	"grabber-bot/internal/telegram/flows/promo"
	"grabber-bot/internal/telegram/flows/subscribe"
	"grabber-bot/internal/telegram/messages"
	"grabber-bot/internal/telegram/states"
)

type (
	stateManager interface {
		GetState(chatID int64) states.State
		Clear(chatID int64)
	}

	userService interface {
		Register(ctx context.Context, user users.User, referrerID *int64) (*users.User, error)
	}

	adminChecker interface {
		IsAdmin(telegramID int64) bool
		AdminIDs() []int64
	}

	downloadCoordinator interface {
		HandleURL(ctx context.Context, req downloads.Request)
		HandleChoice(ctx context.Context, choice downloads.Choice)
	}

	errorReporter interface {
		Report(ctx context.Context, err error, attrs ...any)
	}
)

// Handlers команды и флоу, между которыми роутер распределяет апдейты.
type Handlers struct {
	Start     *cmds.StartCommand
	Profile   *cmds.ProfileCommand
	History   *cmds.HistoryCommand
	Stats     *cmds.StatsCommand
	Guard     *cmds.GuardCommand
	NewPromo  *cmds.NewPromoCommand
	Broadcast *cmds.BroadcastCommand
	Subscribe *subscribe.Handler
	Promo     *promo.Handler
}

type Router struct {
	bot          botApi
	stateManager stateManager
	userService  userService
	adminChecker adminChecker
	langs        *Languages
	coordinator  downloadCoordinator
	l10n         localizer
	reporter     errorReporter
	logger       *slog.Logger
	h            Handlers

	wg sync.WaitGroup
}

// NewRouter создает новый роутер с зависимостями
func NewRouter(
	bot botApi,
	stateManager stateManager,
	userService userService,
	adminChecker adminChecker,
	langs *Languages,
	coordinator downloadCoordinator,
	l10n localizer,
	reporter errorReporter,
	logger *slog.Logger,
	handlers Handlers,
) *Router {
	return &Router{
		bot:          bot,
		stateManager: stateManager,
		userService:  userService,
		adminChecker: adminChecker,
		langs:        langs,
		coordinator:  coordinator,
		l10n:         l10n,
		reporter:     reporter,
		logger:       logger,
		h:            handlers,
	}
}

// Run читает апдейты до закрытия канала или отмены ctx. Каждый апдейт
// обрабатывается в своей горутине: загрузка одного пользователя не держит остальных.
func (r *Router) Run(ctx context.Context, updates <-chan tgbotapi.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			r.wg.Add(1)
			go r.handle(ctx, update)
		}
	}
}

// Wait ждёт завершения уже принятых апдейтов.
func (r *Router) Wait() {
	r.wg.Wait()
}

func (r *Router) handle(ctx context.Context, update tgbotapi.Update) {
	defer r.wg.Done()
	defer func() {
		if p := recover(); p != nil {
			r.reporter.Report(ctx, alerts.Recovered(p), "update_id", update.UpdateID)
		}
	}()

	if err := r.Route(ctx, &update); err != nil {
		r.logger.Error("Ошибка обработки обновления", "error", err, "update_id", update.UpdateID)
	}
}

func (r *Router) Route(ctx context.Context, update *tgbotapi.Update) error {
	switch {
	case update.PreCheckoutQuery != nil:
		q := update.PreCheckoutQuery
		return r.h.Subscribe.HandlePreCheckout(ctx, q, r.langs.Remember(q.From.ID, q.From.LanguageCode))
	case update.CallbackQuery != nil:
		return r.routeCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		return r.routeMessage(ctx, update)
	}
	return nil
}

func (r *Router) routeMessage(ctx context.Context, update *tgbotapi.Update) error {
	msg := update.Message
	if msg.From == nil || msg.Chat == nil || !msg.Chat.IsPrivate() {
		return nil
	}

	userID := msg.From.ID
	chatID := msg.Chat.ID
	lang := r.langs.Remember(userID, msg.From.LanguageCode)

	r.logger.Debug("Получено сообщение", "chat_id", chatID, "user_id", userID, "text", msg.Text)

	if msg.SuccessfulPayment != nil {
		return r.h.Subscribe.HandleSuccessfulPayment(ctx, msg, lang)
	}

	// /start регистрирует сам, с реферером
	if msg.Command() != "start" {
		if err := r.register(ctx, msg.From); err != nil {
			_ = r.sendError(chatID, lang)
			return err
		}
	}

	// ПРИОРИТЕТ: команды отменяют любой флоу
	if msg.IsCommand() {
		r.stateManager.Clear(chatID)
		return r.handleCommand(ctx, msg, lang)
	}

	if r.stateManager.GetState(chatID) == states.UserPromoWaitCode {
		return r.h.Promo.Handle(ctx, update)
	}

	if url, ok := platform.ExtractURL(msg.Text); ok {
		r.coordinator.HandleURL(ctx, downloads.Request{UserID: userID, ChatID: chatID, URL: url})
		return nil
	}

	return r.sendHelp(chatID, lang)
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message, lang string) error {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start":
		return r.h.Start.Execute(ctx, msg, lang)
	case "help":
		return r.sendHelp(chatID, lang)
	case "profile":
		return r.h.Profile.Execute(ctx, userID, chatID, lang)
	case "history":
		return r.h.History.Execute(ctx, userID, chatID, lang)
	case "subscribe":
		return r.h.Subscribe.Start(ctx, chatID, lang)
	case "promo":
		if args != "" {
			return r.h.Promo.Activate(ctx, userID, chatID, args, lang)
		}
		return r.h.Promo.Start(userID, chatID, lang)
	}

	if !r.adminChecker.IsAdmin(userID) {
		return r.sendHelp(chatID, lang)
	}

	switch cmd := msg.Command(); cmd {
	case "stats":
		return r.h.Stats.Execute(ctx, chatID)
	case "guard":
		return r.h.Guard.Execute(ctx, chatID, args)
	case "addchannel":
		return r.h.Guard.AddChannel(ctx, chatID, args)
	case "newpromo":
		return r.h.NewPromo.Execute(ctx, chatID, args)
	default:
		if audience, ok := cmds.BroadcastCommands[cmd]; ok {
			return r.h.Broadcast.Execute(ctx, msg, audience)
		}
		return r.sendHelp(chatID, lang)
	}
}

func (r *Router) routeCallback(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	userID := query.From.ID
	lang := r.langs.Remember(userID, query.From.LanguageCode)
	data := query.Data

	chatID := userID
	if query.Message != nil {
		chatID = query.Message.Chat.ID
	}

	switch {
	case strings.HasPrefix(data, CallbackDownload):
		r.answer(query.ID, "")
		selectionID, choice, ok := ParseChoiceCallback(data)
		if !ok {
			return fmt.Errorf("bad download callback %q", data)
		}
		r.coordinator.HandleChoice(ctx, downloads.Choice{
			UserID:      userID,
			ChatID:      chatID,
			SelectionID: selectionID,
			Choice:      choice,
		})
		return nil
	case subscribe.IsCallback(data):
		return r.h.Subscribe.HandleCallback(ctx, query, lang)
	case data == promo.CallbackStart:
		r.answer(query.ID, "")
		return r.h.Promo.Start(userID, chatID, lang)
	case data == cmds.CallbackProfile:
		r.answer(query.ID, "")
		return r.h.Profile.Execute(ctx, userID, chatID, lang)
	case data == cmds.CallbackStatsRefresh:
		if !r.adminChecker.IsAdmin(userID) || query.Message == nil {
			r.answer(query.ID, messages.NoRights)
			return nil
		}
		r.answer(query.ID, messages.Updated)
		return r.h.Stats.Refresh(ctx, chatID, query.Message.MessageID)
	}

	r.answer(query.ID, "")
	return nil
}

func (r *Router) register(ctx context.Context, from *tgbotapi.User) error {
	_, err := r.userService.Register(ctx, users.User{
		ID:        from.ID,
		FirstName: from.FirstName,
		Username:  from.UserName,
	}, nil)
	return err
}

func (r *Router) answer(queryID, text string) {
	_, _ = r.bot.Request(tgbotapi.NewCallback(queryID, text))
}

func (r *Router) sendHelp(chatID int64, lang string) error {
	msg := tgbotapi.NewMessage(chatID, r.l10n.Get(lang, "common.help", nil))
	msg.ReplyMarkup = cmds.MainMenuKeyboard()
	_, err := r.bot.Send(msg)
	return err
}

func (r *Router) sendError(chatID int64, lang string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(chatID, r.l10n.Get(lang, "common.error", nil)))
	return err
}

var userCommands = []tgbotapi.BotCommand{
	{Command: "start", Description: "Главное меню"},
	{Command: "profile", Description: "Профиль и лимиты"},
	{Command: "history", Description: "Последние ссылки"},
	{Command: "subscribe", Description: "Подписка"},
	{Command: "promo", Description: "Промокод"},
}

var adminCommands = []tgbotapi.BotCommand{
	{Command: "stats", Description: "Статистика"},
	{Command: "guard", Description: "Проверка подписки на каналы"},
	{Command: "addchannel", Description: "Добавить обязательный канал"},
	{Command: "newpromo", Description: "Создать промокод"},
	{Command: "broadcast_all", Description: "Рассылка всем"},
	{Command: "broadcast_free", Description: "Рассылка неплатившим"},
	{Command: "broadcast_ads", Description: "Рассылка неплатившим без VIP"},
	{Command: "broadcast_nosub", Description: "Рассылка без активной подписки"},
}

// SetupBotCommands устанавливает команды для меню бота; админам расширенный список.
func (r *Router) SetupBotCommands() error {
	if _, err := r.bot.Request(tgbotapi.NewSetMyCommands(userCommands...)); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}

	all := append(append([]tgbotapi.BotCommand{}, userCommands...), adminCommands...)
	for _, adminID := range r.adminChecker.AdminIDs() {
		scope := tgbotapi.NewBotCommandScopeChat(adminID)
		// Игнорируем ошибку: админ мог ещё не писать боту
		_, _ = r.bot.Request(tgbotapi.SetMyCommandsConfig{Commands: all, Scope: &scope})
	}
	return nil
}
