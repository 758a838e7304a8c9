package cmds

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/telegram/messages"
)

// GuardCommand /guard on|off и список обязательных каналов.
type GuardCommand struct {
	bot   botApi
	guard channelGuard
}

func NewGuardCommand(bot botApi, guard channelGuard) *GuardCommand {
	return &GuardCommand{bot: bot, guard: guard}
}

func (c *GuardCommand) Execute(ctx context.Context, chatID int64, args string) error {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		if err := c.guard.SetEnabled(ctx, true); err != nil {
			return err
		}
	case "off":
		if err := c.guard.SetEnabled(ctx, false); err != nil {
			return err
		}
	case "":
	default:
		return c.reply(chatID, messages.GuardUsage)
	}

	enabled, err := c.guard.Enabled(ctx)
	if err != nil {
		return err
	}
	list, err := c.guard.Channels(ctx)
	if err != nil {
		return err
	}

	var text strings.Builder
	if enabled {
		text.WriteString(messages.GuardEnabled)
	} else {
		text.WriteString(messages.GuardDisabled)
	}
	text.WriteString("\n")
	for _, ch := range list {
		mark := "✅"
		if !ch.Effective() {
			mark = "⏸"
		}
		fmt.Fprintf(&text, "\n%s @%s", mark, html.EscapeString(ch.Handle))
	}
	return c.reply(chatID, text.String())
}

// AddChannel /addchannel @handle [название]
func (c *GuardCommand) AddChannel(ctx context.Context, chatID int64, args string) error {
	handle, title, _ := strings.Cut(strings.TrimSpace(args), " ")
	handle = strings.TrimPrefix(handle, "@")
	if handle == "" || strings.ContainsAny(handle, "/:") {
		return c.reply(chatID, messages.ChannelInvalid)
	}

	ch, err := c.guard.AddChannel(ctx, handle, strings.TrimSpace(title), nil)
	if err != nil {
		return fmt.Errorf("add channel: %w", err)
	}
	return c.reply(chatID, messages.ChannelAdded(ch.Handle))
}

func (c *GuardCommand) reply(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := c.bot.Send(msg)
	return err
}

// NewPromoCommand /newpromo CODE DAYS [USES]
type NewPromoCommand struct {
	bot   botApi
	promo promoService
}

func NewNewPromoCommand(bot botApi, promo promoService) *NewPromoCommand {
	return &NewPromoCommand{bot: bot, promo: promo}
}

func (c *NewPromoCommand) Execute(ctx context.Context, chatID int64, args string) error {
	code, days, uses, ok := ParsePromoArgs(args)
	if !ok {
		_, err := c.bot.Send(tgbotapi.NewMessage(chatID, messages.PromoUsage))
		return err
	}

	p, err := c.promo.Create(ctx, code, days, uses)
	if err != nil {
		_, _ = c.bot.Send(tgbotapi.NewMessage(chatID, messages.PromoInvalid))
		return err
	}

	msg := tgbotapi.NewMessage(chatID, messages.PromoCreated(p.Code, p.DurationDays, p.UsesLeft))
	msg.ParseMode = tgbotapi.ModeHTML
	_, err = c.bot.Send(msg)
	return err
}

// ParsePromoArgs разбирает "CODE DAYS [USES]"; по умолчанию одно использование.
func ParsePromoArgs(args string) (code string, days, uses int, ok bool) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return "", 0, 0, false
	}

	days, err := strconv.Atoi(fields[1])
	if err != nil {
		return "", 0, 0, false
	}
	uses = 1
	if len(fields) == 3 {
		if uses, err = strconv.Atoi(fields[2]); err != nil {
			return "", 0, 0, false
		}
	}
	return fields[0], days, uses, true
}
