package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/infra/extractor"
	tgclient "grabber-bot/internal/infra/telegram"
	"grabber-bot/internal/stories/channels"
	"grabber-bot/internal/stories/downloads"
	"grabber-bot/internal/stories/entitlement"
	"grabber-bot/internal/telegram/messages"
)

// CallbackDownload префикс callback выбора качества: dl:{selection}:{choice}.
const CallbackDownload = "dl:"

const maxTitleLen = 200

type (
	botApi interface {
		Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
		Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	}

	fileSender interface {
		SendVideo(ctx context.Context, chatID int64, video tgclient.VideoUpload) error
		SendAudio(ctx context.Context, chatID int64, path, caption string) error
	}

	localizer interface {
		Get(lang, key string, params map[string]interface{}) string
	}
)

// Responder отвечает пользователю от имени координатора загрузок.
type Responder struct {
	bot         botApi
	files       fileSender
	l10n        localizer
	langs       *Languages
	botUsername string
	logger      *slog.Logger

	// id сообщения «Скачиваю...» по чату, удаляется после ответа
	progress sync.Map
}

func NewResponder(bot botApi, files fileSender, l10n localizer, langs *Languages, botUsername string, logger *slog.Logger) *Responder {
	return &Responder{
		bot:         bot,
		files:       files,
		l10n:        l10n,
		langs:       langs,
		botUsername: botUsername,
		logger:      logger,
	}
}

func (r *Responder) Busy(_ context.Context, chatID int64) {
	r.text(chatID, "common.busy", nil)
}

func (r *Responder) Unsupported(_ context.Context, chatID int64) {
	r.text(chatID, "common.unsupported", nil)
}

func (r *Responder) QuotaExceeded(_ context.Context, chatID int64, limits entitlement.Limits) {
	r.text(chatID, "download.quota_exceeded", map[string]interface{}{"limit": limits.DailyLimit})
}

func (r *Responder) NotJoined(_ context.Context, chatID int64, missing []channels.Channel) {
	var list strings.Builder
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(missing))
	for _, ch := range missing {
		title := ch.Title
		if title == "" {
			title = "@" + ch.Handle
		}
		fmt.Fprintf(&list, "• %s\n", html.EscapeString(title))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(title, ch.Link())))
	}

	msg := tgbotapi.NewMessage(chatID, r.l10n.Get(r.langs.Get(chatID), "download.not_joined", map[string]interface{}{
		"channels": strings.TrimRight(list.String(), "\n"),
	}))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	r.send(msg)
}

func (r *Responder) ExtractFailed(_ context.Context, chatID int64, err error) {
	r.dropProgress(chatID)

	key := "download.failed"
	switch {
	case errors.Is(err, extractor.ErrAgeRestricted):
		key = "download.age_restricted"
	case errors.Is(err, extractor.ErrLoginRequired):
		key = "download.login_required"
	case errors.Is(err, extractor.ErrContentUnavailable):
		key = "download.content_unavailable"
	}
	r.text(chatID, key, nil)
}

// Choose показывает клавиатуру качества: ⚡ доступно, 🔒 закрыто.
func (r *Responder) Choose(_ context.Context, chatID int64, selection *downloads.Selection) {
	msg := tgbotapi.NewMessage(chatID, r.l10n.Get(r.langs.Get(chatID), "download.choose", map[string]interface{}{
		"title": html.EscapeString(truncate(selection.Title, maxTitleLen)),
	}))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = ChoiceKeyboard(selection)
	r.send(msg)
}

// ChoiceKeyboard раскладывает варианты по два в ряд.
func ChoiceKeyboard(selection *downloads.Selection) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, o := range selection.Options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(optionLabel(o), CallbackDownload+selection.ID+":"+o.Choice))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func optionLabel(o downloads.Option) string {
	mark := "⚡"
	if !o.Allowed() {
		mark = "🔒"
	}
	label := mark + o.Label()
	if o.SizeBytes != nil {
		label += " · " + messages.Size(*o.SizeBytes)
	}
	return label
}

// ParseChoiceCallback разбирает dl:{selection}:{choice}.
func ParseChoiceCallback(data string) (selectionID, choice string, ok bool) {
	rest, found := strings.CutPrefix(data, CallbackDownload)
	if !found {
		return "", "", false
	}
	selectionID, choice, ok = strings.Cut(rest, ":")
	if !ok || selectionID == "" || choice == "" {
		return "", "", false
	}
	return selectionID, choice, true
}

func (r *Responder) SelectionExpired(_ context.Context, chatID int64) {
	r.text(chatID, "download.selection_expired", nil)
}

func (r *Responder) Gated(_ context.Context, chatID int64, option downloads.Option, limits entitlement.Limits) {
	if option.Gate == entitlement.ReasonSize && option.SizeBytes != nil {
		r.text(chatID, "download.gated_size", map[string]interface{}{
			"quality": option.Label(),
			"size":    messages.Size(*option.SizeBytes),
			"limit":   messages.Size(limits.MaxFileBytes),
		})
		return
	}
	r.text(chatID, "download.gated_subscription", map[string]interface{}{"quality": option.Label()})
}

func (r *Responder) SizeExceeded(_ context.Context, chatID int64, actual, ceiling int64) {
	r.dropProgress(chatID)
	r.text(chatID, "download.size_exceeded", map[string]interface{}{
		"size":  messages.Size(actual),
		"limit": messages.Size(ceiling),
	})
}

func (r *Responder) Fetching(_ context.Context, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, r.l10n.Get(r.langs.Get(chatID), "download.fetching", nil))
	sent, err := r.bot.Send(msg)
	if err != nil {
		r.logger.Warn("Failed to send progress message", "chat_id", chatID, "error", err)
		return
	}
	r.progress.Store(chatID, sent.MessageID)
}

func (r *Responder) InternalError(_ context.Context, chatID int64) {
	r.dropProgress(chatID)
	r.text(chatID, "common.error", nil)
}

func (r *Responder) SendVideo(ctx context.Context, chatID int64, file *extractor.LocalFile, caption string) error {
	defer r.dropProgress(chatID)
	return r.files.SendVideo(ctx, chatID, tgclient.VideoUpload{
		Path:    file.Path,
		Width:   file.Width,
		Height:  file.Height,
		Caption: r.caption(chatID, caption),
	})
}

func (r *Responder) SendAudio(ctx context.Context, chatID int64, file *extractor.LocalFile, caption string) error {
	defer r.dropProgress(chatID)
	return r.files.SendAudio(ctx, chatID, file.Path, r.caption(chatID, caption))
}

func (r *Responder) SendLink(_ context.Context, chatID int64, url string, sizeBytes int64, ttl time.Duration) error {
	defer r.dropProgress(chatID)

	msg := tgbotapi.NewMessage(chatID, r.l10n.Get(r.langs.Get(chatID), "download.link", map[string]interface{}{
		"size":    messages.Size(sizeBytes),
		"minutes": int(ttl.Minutes()),
		"url":     url,
	}))
	msg.DisableWebPagePreview = true
	_, err := r.bot.Send(msg)
	return err
}

func (r *Responder) caption(chatID int64, title string) string {
	if r.botUsername == "" {
		return html.EscapeString(truncate(title, maxTitleLen))
	}
	return strings.TrimSpace(r.l10n.Get(r.langs.Get(chatID), "download.caption", map[string]interface{}{
		"title": html.EscapeString(truncate(title, maxTitleLen)),
		"bot":   r.botUsername,
	}))
}

func (r *Responder) dropProgress(chatID int64) {
	v, ok := r.progress.LoadAndDelete(chatID)
	if !ok {
		return
	}
	if _, err := r.bot.Request(tgbotapi.NewDeleteMessage(chatID, v.(int))); err != nil {
		r.logger.Debug("Failed to delete progress message", "chat_id", chatID, "error", err)
	}
}

func (r *Responder) text(chatID int64, key string, params map[string]interface{}) {
	msg := tgbotapi.NewMessage(chatID, r.l10n.Get(r.langs.Get(chatID), key, params))
	msg.ParseMode = tgbotapi.ModeHTML
	r.send(msg)
}

func (r *Responder) send(msg tgbotapi.MessageConfig) {
	if _, err := r.bot.Send(msg); err != nil {
		r.logger.Warn("Failed to send reply", "chat_id", msg.ChatID, "error", err)
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
