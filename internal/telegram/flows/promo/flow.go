package promo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/promo"
	"grabber-bot/internal/telegram/flows"
	"grabber-bot/internal/telegram/states"
)

// CallbackStart кнопка «Промокод» главного меню.
const CallbackStart = "promo"

const dateLayout = "02.01.2006"

type (
	botApi interface {
		Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
		Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	}

	stateManager interface {
		GetState(chatID int64) states.State
		GetData(chatID int64) interface{}
		SetState(chatID int64, state states.State, data interface{})
		Clear(chatID int64)
	}

	promoService interface {
		Activate(ctx context.Context, userID int64, code string) (*promo.ActivationResult, error)
	}

	localizer interface {
		Get(lang, key string, params map[string]interface{}) string
	}
)

type Handler struct {
	bot          botApi
	stateManager stateManager
	promoService promoService
	l10n         localizer
	logger       *slog.Logger
}

func NewHandler(bot botApi, sm stateManager, ps promoService, l10n localizer, logger *slog.Logger) *Handler {
	return &Handler{
		bot:          bot,
		stateManager: sm,
		promoService: ps,
		l10n:         l10n,
		logger:       logger,
	}
}

// Start просит ввести код и ждёт следующее сообщение
func (h *Handler) Start(userID, chatID int64, lang string) error {
	h.stateManager.SetState(chatID, states.UserPromoWaitCode, &flows.PromoFlowData{
		UserID:   userID,
		Language: lang,
	})

	_, err := h.bot.Send(tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "promo.ask", nil)))
	return err
}

// Handle обрабатывает сообщение в состоянии ожидания кода
func (h *Handler) Handle(ctx context.Context, update *tgbotapi.Update) error {
	msg := update.Message
	if msg == nil {
		return nil
	}

	chatID := msg.Chat.ID
	data, ok := h.stateManager.GetData(chatID).(*flows.PromoFlowData)
	h.stateManager.Clear(chatID)
	if !ok {
		return fmt.Errorf("promo state without data for chat %d", chatID)
	}

	return h.Activate(ctx, data.UserID, chatID, msg.Text, data.Language)
}

// Activate применяет код и отвечает результатом. Используется и для /promo CODE.
func (h *Handler) Activate(ctx context.Context, userID, chatID int64, code, lang string) error {
	code = strings.TrimSpace(code)

	result, err := h.promoService.Activate(ctx, userID, code)
	if errors.Is(err, promo.ErrInvalid) {
		_, sendErr := h.bot.Send(tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "promo.invalid", nil)))
		return sendErr
	}
	if err != nil {
		_, _ = h.bot.Send(tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "common.error", nil)))
		return err
	}

	reply := tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "promo.activated", map[string]interface{}{
		"days": result.DurationDays,
		"date": result.ExpireAt.Format(dateLayout),
	}))
	reply.ParseMode = tgbotapi.ModeHTML
	_, err = h.bot.Send(reply)
	return err
}
