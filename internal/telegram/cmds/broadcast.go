package cmds

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/samber/lo"

	"grabber-bot/internal/stories/broadcast"
	"grabber-bot/internal/telegram/messages"
)

// BroadcastCommands команда -> аудитория
var BroadcastCommands = map[string]broadcast.Audience{
	"broadcast_all":   broadcast.AudienceAll,
	"broadcast_free":  broadcast.AudienceFree,
	"broadcast_ads":   broadcast.AudienceAds,
	"broadcast_nosub": broadcast.AudienceNoSub,
}

// BroadcastCommand запускает рассылку сообщения, на которое ответил админ.
type BroadcastCommand struct {
	bot    botApi
	engine broadcastEngine
	logger *slog.Logger
}

func NewBroadcastCommand(bot botApi, engine broadcastEngine, logger *slog.Logger) *BroadcastCommand {
	return &BroadcastCommand{bot: bot, engine: engine, logger: logger}
}

func (c *BroadcastCommand) Execute(ctx context.Context, msg *tgbotapi.Message, audience broadcast.Audience) error {
	chatID := msg.Chat.ID
	if msg.ReplyToMessage == nil {
		return c.reply(chatID, messages.BroadcastUsage)
	}

	content, ok := MessageFromTelegram(msg.ReplyToMessage)
	if !ok {
		return c.reply(chatID, messages.BroadcastEmpty)
	}

	status, err := c.bot.Send(tgbotapi.NewMessage(chatID, messages.BroadcastStarted(string(audience), 0)))
	if err != nil {
		return err
	}

	progress := func(_ context.Context, p broadcast.Progress) {
		edit := tgbotapi.NewEditMessageText(chatID, status.MessageID, messages.BroadcastProgress(p.Done(), p.Total, p.Sent, p.Failed))
		if _, err := c.bot.Send(edit); err != nil && !strings.Contains(err.Error(), "message is not modified") {
			c.logger.Debug("Failed to update broadcast progress", "error", err)
		}
	}
	done := func(_ context.Context, r broadcast.Report) {
		byKind := lo.MapKeys(r.ByKind, func(_ int, k broadcast.ErrorKind) string { return string(k) })
		text := messages.BroadcastReport(r.Total, r.Sent, r.Failed, r.SentPercent(), byKind)
		_, _ = c.bot.Send(tgbotapi.NewMessage(chatID, text))
	}

	total, err := c.engine.Launch(ctx, audience, content, progress, done)
	if errors.Is(err, broadcast.ErrAlreadyRunning) {
		return c.reply(chatID, messages.BroadcastRunning)
	}
	if err != nil {
		return err
	}

	c.logger.Info("Broadcast started", "audience", audience, "total", total, "admin_id", msg.From.ID)
	_, err = c.bot.Send(tgbotapi.NewEditMessageText(chatID, status.MessageID, messages.BroadcastStarted(string(audience), total)))
	return err
}

// MessageFromTelegram собирает рассылку из сообщения: текст или фото/видео с подписью.
func MessageFromTelegram(m *tgbotapi.Message) (broadcast.Message, bool) {
	text := m.Text
	if text == "" {
		text = m.Caption
	}
	body, button := broadcast.ParseButton(text)
	out := broadcast.Message{Text: html.EscapeString(body), Button: button}

	switch {
	case len(m.Photo) > 0:
		// последний размер самый большой
		out.Media = &broadcast.Media{Kind: broadcast.MediaPhoto, FileID: m.Photo[len(m.Photo)-1].FileID}
	case m.Video != nil:
		out.Media = &broadcast.Media{Kind: broadcast.MediaVideo, FileID: m.Video.FileID}
	}

	if out.Media == nil && strings.TrimSpace(out.Text) == "" {
		return broadcast.Message{}, false
	}
	return out, true
}

func (c *BroadcastCommand) reply(chatID int64, text string) error {
	_, err := c.bot.Send(tgbotapi.NewMessage(chatID, text))
	return err
}
