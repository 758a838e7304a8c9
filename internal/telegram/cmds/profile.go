package cmds

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/entitlement"
	"grabber-bot/internal/stories/users"
	"grabber-bot/internal/telegram/messages"
)

type ProfileCommand struct {
	bot          botApi
	users        userService
	entitlements entitlementService
	subs         subscriptionService
	downloads    downloadStorage
	l10n         localizer
	botUsername  string
}

func NewProfileCommand(
	bot botApi,
	users userService,
	entitlements entitlementService,
	subs subscriptionService,
	downloads downloadStorage,
	l10n localizer,
	botUsername string,
) *ProfileCommand {
	return &ProfileCommand{
		bot:          bot,
		users:        users,
		entitlements: entitlements,
		subs:         subs,
		downloads:    downloads,
		l10n:         l10n,
		botUsername:  botUsername,
	}
}

func (c *ProfileCommand) Execute(ctx context.Context, userID, chatID int64, lang string) error {
	limits, err := c.entitlements.Resolve(ctx, userID)
	if err != nil {
		return fmt.Errorf("resolve limits: %w", err)
	}
	referrals, _, err := c.users.Referrals(ctx, userID)
	if err != nil {
		return err
	}
	activeUntil, err := c.subs.ActiveUntil(ctx, userID)
	if err != nil {
		return err
	}
	totals, err := c.downloads.GetTotals(ctx, userID)
	if err != nil {
		return fmt.Errorf("get totals: %w", err)
	}

	vip := ""
	if limits.IsVIP {
		vip = c.l10n.Get(lang, "profile.vip", nil)
	}

	nextLevel := c.l10n.Get(lang, "profile.max_level", nil)
	if level, missing := users.NextLevel(referrals); missing > 0 {
		nextLevel = c.l10n.Get(lang, "profile.next_level", map[string]interface{}{"level": level, "missing": missing})
	}

	subscription := c.l10n.Get(lang, "profile.subscription_none", nil)
	if activeUntil != nil {
		subscription = c.l10n.Get(lang, "profile.subscription_active", map[string]interface{}{
			"date": activeUntil.Format("02.01.2006"),
		})
	}

	limit := fmt.Sprint(limits.DailyLimit)
	if limits.DailyLimit == entitlement.Unlimited {
		limit = c.l10n.Get(lang, "profile.unlimited", nil)
	}

	text := c.l10n.Get(lang, "profile.text", map[string]interface{}{
		"level":        limits.Level,
		"vip":          vip,
		"referrals":    referrals,
		"next_level":   nextLevel,
		"subscription": subscription,
		"used":         limits.DailyUsed,
		"limit":        limit,
		"total":        totals.Total,
		"max_size":     messages.Size(limits.MaxFileBytes),
		"ref_link":     ReferralLink(c.botUsername, userID),
	})

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	_, err = c.bot.Send(msg)
	return err
}
