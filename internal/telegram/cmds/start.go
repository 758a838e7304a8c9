package cmds

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/users"
	"grabber-bot/internal/telegram/messages"
)

// StartCommand регистрирует пользователя и принимает реферальный код из /start ref_<id>.
type StartCommand struct {
	bot   botApi
	users userService
	l10n  localizer
}

func NewStartCommand(bot botApi, users userService, l10n localizer) *StartCommand {
	return &StartCommand{bot: bot, users: users, l10n: l10n}
}

func (c *StartCommand) Execute(ctx context.Context, msg *tgbotapi.Message, lang string) error {
	from := msg.From
	_, err := c.users.Register(ctx, users.User{
		ID:        from.ID,
		FirstName: from.FirstName,
		Username:  from.UserName,
	}, ParseReferrer(msg.CommandArguments()))
	if err != nil {
		return fmt.Errorf("register user: %w", err)
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, c.l10n.Get(lang, "start.welcome", map[string]interface{}{
		"name": html.EscapeString(from.FirstName),
	}))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyMarkup = MainMenuKeyboard()
	_, err = c.bot.Send(reply)
	return err
}

// CallbackProfile кнопка «Профиль» главного меню.
const CallbackProfile = "profile"

func MainMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(messages.ButtonSubscribe, "subscribe"),
			tgbotapi.NewInlineKeyboardButtonData(messages.ButtonPromo, "promo"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(messages.ButtonProfile, CallbackProfile),
		),
	)
}

// ParseReferrer принимает "ref_123" или просто "123".
func ParseReferrer(arg string) *int64 {
	arg = strings.TrimPrefix(strings.TrimSpace(arg), "ref_")
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// ReferralLink ссылка для приглашения друзей.
func ReferralLink(botUsername string, userID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=ref_%d", botUsername, userID)
}
