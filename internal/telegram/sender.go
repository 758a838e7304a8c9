package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/broadcast"
)

// BroadcastSender отправляет сообщение рассылки одному получателю.
type BroadcastSender struct {
	bot botApi
}

func NewBroadcastSender(bot botApi) *BroadcastSender {
	return &BroadcastSender{bot: bot}
}

func (s *BroadcastSender) SendBroadcast(_ context.Context, chatID int64, msg broadcast.Message) error {
	var markup any
	if msg.Button != nil {
		markup = tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(msg.Button.Label, msg.Button.URL),
		))
	}

	var c tgbotapi.Chattable
	switch {
	case msg.Media != nil && msg.Media.Kind == broadcast.MediaPhoto:
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileID(msg.Media.FileID))
		photo.Caption = msg.Text
		photo.ParseMode = tgbotapi.ModeHTML
		photo.ReplyMarkup = markup
		c = photo
	case msg.Media != nil && msg.Media.Kind == broadcast.MediaVideo:
		video := tgbotapi.NewVideo(chatID, tgbotapi.FileID(msg.Media.FileID))
		video.Caption = msg.Text
		video.ParseMode = tgbotapi.ModeHTML
		video.ReplyMarkup = markup
		c = video
	default:
		text := tgbotapi.NewMessage(chatID, msg.Text)
		text.ParseMode = tgbotapi.ModeHTML
		text.ReplyMarkup = markup
		c = text
	}

	_, err := s.bot.Send(c)
	return err
}
