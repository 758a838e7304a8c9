package cmds

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/storage"
	"grabber-bot/internal/stories/broadcast"
	"grabber-bot/internal/stories/channels"
	"grabber-bot/internal/stories/downloads"
	"grabber-bot/internal/stories/entitlement"
	"grabber-bot/internal/stories/promo"
	"grabber-bot/internal/stories/users"
)

type (
	botApi interface {
		Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
		Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	}

	localizer interface {
		Get(lang, key string, params map[string]interface{}) string
	}

	userService interface {
		Register(ctx context.Context, user users.User, referrerID *int64) (*users.User, error)
		Referrals(ctx context.Context, userID int64) (count int, level int, err error)
	}

	entitlementService interface {
		Resolve(ctx context.Context, userID int64) (entitlement.Limits, error)
	}

	subscriptionService interface {
		ActiveUntil(ctx context.Context, userID int64) (*time.Time, error)
	}

	downloadStorage interface {
		ListRecentLinks(ctx context.Context, userID int64, limit int) ([]*downloads.Link, error)
		GetTotals(ctx context.Context, userID int64) (*downloads.Totals, error)
	}

	StatisticsStorage interface {
		GetStatistics(ctx context.Context) (*storage.StatisticsData, error)
	}

	channelGuard interface {
		Enabled(ctx context.Context) (bool, error)
		SetEnabled(ctx context.Context, enabled bool) error
		Channels(ctx context.Context) ([]*channels.Channel, error)
		AddChannel(ctx context.Context, handle, title string, chatID *int64) (*channels.Channel, error)
	}

	promoService interface {
		Create(ctx context.Context, code string, days, uses int) (*promo.Promocode, error)
	}

	broadcastEngine interface {
		Launch(ctx context.Context, audience broadcast.Audience, msg broadcast.Message, progress broadcast.ProgressFunc, done func(context.Context, broadcast.Report)) (int, error)
	}
)
