package broadcast

import (
	"context"

	"grabber-bot/internal/stories/users"
)

type (
	Sender interface {
		SendBroadcast(ctx context.Context, chatID int64, msg Message) error
	}

	AudienceProvider interface {
		Audience(ctx context.Context, criteria users.AudienceCriteria) ([]int64, error)
	}

	// ProgressFunc вызывается не чаще раза в интервал и в конце рассылки.
	ProgressFunc func(ctx context.Context, p Progress)
)
