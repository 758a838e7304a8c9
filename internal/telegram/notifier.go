package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/payment"
	"grabber-bot/internal/stories/users"
)

const dateLayout = "02.01.2006"

type (
	topicSender interface {
		SendToTopic(ctx context.Context, chatID, threadID int64, text string) error
	}

	userGetter interface {
		GetUser(ctx context.Context, userID int64) (*users.User, error)
	}
)

// Notifier сообщает об активации подписки пользователю и в группу поддержки.
type Notifier struct {
	bot            botApi
	topics         topicSender
	users          userGetter
	l10n           localizer
	langs          *Languages
	supportGroupID int64
	topicID        int64
	logger         *slog.Logger
}

func NewNotifier(
	bot botApi,
	topics topicSender,
	users userGetter,
	l10n localizer,
	langs *Languages,
	supportGroupID, topicID int64,
	logger *slog.Logger,
) *Notifier {
	return &Notifier{
		bot:            bot,
		topics:         topics,
		users:          users,
		l10n:           l10n,
		langs:          langs,
		supportGroupID: supportGroupID,
		topicID:        topicID,
		logger:         logger,
	}
}

func (n *Notifier) PaymentActivated(ctx context.Context, activation payment.Activation, result payment.ActivationResult) {
	msg := tgbotapi.NewMessage(activation.UserID, n.l10n.Get(n.langs.Get(activation.UserID), "subscribe.activated", map[string]interface{}{
		"date": result.ExpireAt.Format(dateLayout),
	}))
	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Warn("Failed to notify user about payment", "user_id", activation.UserID, "error", err)
	}

	if n.supportGroupID == 0 {
		return
	}

	who := fmt.Sprintf("<code>%d</code>", activation.UserID)
	if u, err := n.users.GetUser(ctx, activation.UserID); err == nil && u != nil && u.Username != "" {
		who += " @" + html.EscapeString(u.Username)
	}
	text := fmt.Sprintf("💰 <b>Оплата</b> (%s)\nПользователь: %s\nТариф: %s, %d дн.\nДо: %s\nID: <code>%s</code>",
		activation.Provider,
		who,
		html.EscapeString(result.TariffName),
		result.DurationDays,
		result.ExpireAt.Format(dateLayout),
		html.EscapeString(activation.PaymentID),
	)
	if err := n.topics.SendToTopic(ctx, n.supportGroupID, n.topicID, text); err != nil {
		n.logger.Warn("Failed to post payment to support group", "error", err)
	}
}

// Remind напоминает об окончании подписки.
func (n *Notifier) Remind(_ context.Context, userID int64, expireAt time.Time) error {
	msg := tgbotapi.NewMessage(userID, n.l10n.Get(n.langs.Get(userID), "reminder.expiring", map[string]interface{}{
		"date": expireAt.Format(dateLayout),
	}))
	_, err := n.bot.Send(msg)
	return err
}
