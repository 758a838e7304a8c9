package subscribe

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	tgclient "grabber-bot/internal/infra/telegram"
	"grabber-bot/internal/stories/tariffs"
	"grabber-bot/internal/telegram/messages"
)

// Callback data
const (
	CallbackStart  = "subscribe"
	callbackTariff = "sub_t:"
	callbackStars  = "sub_s:"
	callbackCard   = "sub_c:"
)

// IsCallback сообщает, относится ли callback к флоу подписки.
func IsCallback(data string) bool {
	return data == CallbackStart || strings.HasPrefix(data, "sub_")
}

type Handler struct {
	bot             botApi
	invoices        invoiceSender
	tariffService   tariffService
	paymentService  paymentService
	l10n            localizer
	subscriberBytes int64
	logger          *slog.Logger
}

func NewHandler(
	bot botApi,
	invoices invoiceSender,
	ts tariffService,
	ps paymentService,
	l10n localizer,
	subscriberBytes int64,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		bot:             bot,
		invoices:        invoices,
		tariffService:   ts,
		paymentService:  ps,
		l10n:            l10n,
		subscriberBytes: subscriberBytes,
		logger:          logger,
	}
}

// Start показывает список тарифов
func (h *Handler) Start(ctx context.Context, chatID int64, lang string) error {
	list, err := h.tariffService.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("ошибка получения тарифов: %w", err)
	}

	if len(list) == 0 {
		_, err = h.bot.Send(tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "subscribe.no_tariffs", nil)))
		return err
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(list))
	for _, t := range list {
		label := h.l10n.Get(lang, "subscribe.tariff_button", map[string]interface{}{
			"name":  t.Name,
			"days":  t.DurationDays,
			"stars": t.PriceStars,
		})
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackTariff+strconv.FormatInt(t.ID, 10)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "subscribe.choose_tariff", map[string]interface{}{
		"max_size": messages.Size(h.subscriberBytes),
	}))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err = h.bot.Send(msg)
	return err
}

// HandleCallback обрабатывает кнопки флоу
func (h *Handler) HandleCallback(ctx context.Context, query *tgbotapi.CallbackQuery, lang string) error {
	_, _ = h.bot.Request(tgbotapi.NewCallback(query.ID, ""))

	userID := query.From.ID
	chatID := userID
	if query.Message != nil {
		chatID = query.Message.Chat.ID
	}

	data := query.Data
	if data == CallbackStart {
		return h.Start(ctx, chatID, lang)
	}

	prefix, rawID, ok := cutID(data)
	if !ok {
		return fmt.Errorf("bad subscribe callback %q", data)
	}
	tariff, err := h.tariffService.GetTariff(ctx, rawID)
	if err != nil {
		return h.sendError(chatID, lang, err)
	}

	switch prefix {
	case callbackTariff:
		return h.showMethods(chatID, lang, tariff)
	case callbackStars:
		return h.sendStarsInvoice(ctx, userID, chatID, lang, tariff)
	case callbackCard:
		return h.sendCardLink(ctx, userID, chatID, lang, tariff)
	default:
		return fmt.Errorf("unknown subscribe callback %q", data)
	}
}

func (h *Handler) showMethods(chatID int64, lang string, t *tariffs.Tariff) error {
	id := strconv.FormatInt(t.ID, 10)
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			h.l10n.Get(lang, "subscribe.pay_stars", map[string]interface{}{"stars": t.PriceStars}),
			callbackStars+id,
		)),
	}
	if h.paymentService.FiatEnabled() && t.PriceFiat > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(
			h.l10n.Get(lang, "subscribe.pay_card", map[string]interface{}{"price": fmt.Sprintf("%.0f", t.PriceFiat)}),
			callbackCard+id,
		)))
	}

	msg := tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "subscribe.choose_method", map[string]interface{}{
		"name": html.EscapeString(t.Name),
		"days": t.DurationDays,
	}))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := h.bot.Send(msg)
	return err
}

func (h *Handler) sendStarsInvoice(ctx context.Context, userID, chatID int64, lang string, t *tariffs.Tariff) error {
	payload := h.paymentService.NewStarsPayload(userID, t.ID)
	title := h.l10n.Get(lang, "subscribe.invoice_title", map[string]interface{}{"name": t.Name})

	return h.invoices.SendStarsInvoice(ctx, chatID, tgclient.StarsInvoice{
		Title:       title,
		Description: h.l10n.Get(lang, "subscribe.invoice_description", map[string]interface{}{"days": t.DurationDays}),
		Payload:     payload.String(),
		Label:       title,
		Amount:      t.PriceStars,
	})
}

func (h *Handler) sendCardLink(ctx context.Context, userID, chatID int64, lang string, t *tariffs.Tariff) error {
	invoice, err := h.paymentService.CreateFiatPayment(ctx, userID, t.ID)
	if err != nil {
		return h.sendError(chatID, lang, err)
	}

	msg := tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "subscribe.card_link", nil))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonURL(h.l10n.Get(lang, "subscribe.card_button", nil), invoice.ConfirmationURL),
	))
	_, err = h.bot.Send(msg)
	return err
}

// HandlePreCheckout подтверждает списание звёзд только для корректного payload.
func (h *Handler) HandlePreCheckout(ctx context.Context, query *tgbotapi.PreCheckoutQuery, lang string) error {
	err := h.paymentService.ValidatePreCheckout(ctx, query.From.ID, query.InvoicePayload, query.Currency, query.TotalAmount)
	if err != nil {
		h.logger.Warn("Pre-checkout rejected", "user_id", query.From.ID, "error", err)
		return h.invoices.AnswerPreCheckout(ctx, query.ID, false, h.l10n.Get(lang, "subscribe.precheckout_failed", nil))
	}
	return h.invoices.AnswerPreCheckout(ctx, query.ID, true, "")
}

// HandleSuccessfulPayment активирует подписку. Подтверждение пользователю
// отправляет уведомитель платежей после коммита.
func (h *Handler) HandleSuccessfulPayment(ctx context.Context, msg *tgbotapi.Message, lang string) error {
	p := msg.SuccessfulPayment
	result, err := h.paymentService.ActivateStars(ctx, msg.From.ID, p.InvoicePayload, p.TelegramPaymentChargeID)
	if err != nil {
		return h.sendError(msg.Chat.ID, lang, err)
	}
	if !result.Applied {
		h.logger.Info("Stars payment already applied", "charge_id", p.TelegramPaymentChargeID)
	}
	return nil
}

func (h *Handler) sendError(chatID int64, lang string, cause error) error {
	_, _ = h.bot.Send(tgbotapi.NewMessage(chatID, h.l10n.Get(lang, "common.error", nil)))
	return cause
}

func cutID(data string) (prefix string, id int64, ok bool) {
	for _, p := range []string{callbackTariff, callbackStars, callbackCard} {
		if rest, found := strings.CutPrefix(data, p); found {
			id, err := strconv.ParseInt(rest, 10, 64)
			return p, id, err == nil
		}
	}
	return "", 0, false
}

