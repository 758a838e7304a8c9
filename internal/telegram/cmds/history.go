package cmds

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type HistoryCommand struct {
	bot       botApi
	downloads downloadStorage
	l10n      localizer
	limit     int
}

func NewHistoryCommand(bot botApi, downloads downloadStorage, l10n localizer, limit int) *HistoryCommand {
	return &HistoryCommand{bot: bot, downloads: downloads, l10n: l10n, limit: limit}
}

func (c *HistoryCommand) Execute(ctx context.Context, userID, chatID int64, lang string) error {
	links, err := c.downloads.ListRecentLinks(ctx, userID, c.limit)
	if err != nil {
		return fmt.Errorf("list recent links: %w", err)
	}

	text := c.l10n.Get(lang, "history.empty", nil)
	if len(links) > 0 {
		var b strings.Builder
		for i, l := range links {
			fmt.Fprintf(&b, "%d. %s\n", i+1, html.EscapeString(l.URL))
		}
		text = c.l10n.Get(lang, "history.title", map[string]interface{}{"links": strings.TrimRight(b.String(), "\n")})
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err = c.bot.Send(msg)
	return err
}
