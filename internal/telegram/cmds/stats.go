package cmds

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/storage"
	"grabber-bot/internal/telegram/messages"
)

const CallbackStatsRefresh = "stats_refresh"

type StatsCommand struct {
	bot     botApi
	storage StatisticsStorage
}

func NewStatsCommand(bot botApi, storage StatisticsStorage) *StatsCommand {
	return &StatsCommand{
		bot:     bot,
		storage: storage,
	}
}

func (c *StatsCommand) Execute(ctx context.Context, chatID int64) error {
	stats, err := c.storage.GetStatistics(ctx)
	if err != nil {
		_, _ = c.bot.Send(tgbotapi.NewMessage(chatID, "Ошибка при получении статистики"))
		return fmt.Errorf("get statistics: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, FormatStatistics(stats))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = statsKeyboard()
	_, err = c.bot.Send(msg)
	return err
}

func (c *StatsCommand) Refresh(ctx context.Context, chatID int64, messageID int) error {
	stats, err := c.storage.GetStatistics(ctx)
	if err != nil {
		return fmt.Errorf("get statistics: %w", err)
	}

	keyboard := statsKeyboard()
	edit := tgbotapi.NewEditMessageText(chatID, messageID, FormatStatistics(stats))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = &keyboard
	_, err = c.bot.Send(edit)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func statsKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(messages.ButtonRefresh, CallbackStatsRefresh),
		),
	)
}

func FormatStatistics(stats *storage.StatisticsData) string {
	var text strings.Builder

	text.WriteString("📊 <b>Статистика</b>\n\n")
	fmt.Fprintf(&text, "👥 Пользователей: <b>%d</b> (+%d сегодня)\n", stats.UsersCount, stats.NewUsersToday)
	fmt.Fprintf(&text, "💰 Платили: <b>%d</b>\n", stats.PaidUsersCount)
	fmt.Fprintf(&text, "💎 Активных подписок: <b>%d</b>\n\n", stats.ActiveSubscribersCount)
	fmt.Fprintf(&text, "📥 Загрузок сегодня: <b>%d</b>\n", stats.DownloadsToday)
	fmt.Fprintf(&text, "📦 Загрузок всего: <b>%d</b>\n", stats.DownloadsTotal)
	if stats.PendingPaymentsCount > 0 {
		fmt.Fprintf(&text, "\n⏳ Ожидают оплаты: %d\n", stats.PendingPaymentsCount)
	}

	return text.String()
}
