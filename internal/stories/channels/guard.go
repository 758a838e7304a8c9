package channels

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

var memberStatuses = map[string]struct{}{
	"member":        {},
	"administrator": {},
	"creator":       {},
	"restricted":    {},
}

// IsMemberStatus reports whether a chat member status counts as joined.
func IsMemberStatus(status string) bool {
	_, ok := memberStatuses[status]
	return ok
}

// Guard проверяет подписку пользователя на обязательные каналы.
type Guard struct {
	storage Storage
	members MembershipChecker
	logger  *slog.Logger
}

func NewGuard(storage Storage, members MembershipChecker, logger *slog.Logger) *Guard {
	return &Guard{storage: storage, members: members, logger: logger}
}

func (g *Guard) Enabled(ctx context.Context) (bool, error) {
	return g.storage.GetFlag(ctx, FlagChannelGuard)
}

func (g *Guard) SetEnabled(ctx context.Context, enabled bool) error {
	return g.storage.SetFlag(ctx, FlagChannelGuard, enabled)
}

// NotJoined возвращает обязательные каналы, где пользователь не состоит.
// Любая ошибка транспорта считается отсутствием подписки.
func (g *Guard) NotJoined(ctx context.Context, userID int64) ([]Channel, error) {
	required, err := g.storage.ListChannels(ctx, ListCriteria{OnlyEffective: true})
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	var missing []Channel
	for _, ch := range required {
		var chatID int64
		if ch.ChatID != nil {
			chatID = *ch.ChatID
		}
		username := ch.Handle
		if username != "" && !strings.HasPrefix(username, "@") {
			username = "@" + username
		}

		status, err := g.members.GetChatMemberStatus(ctx, chatID, username, userID)
		if err != nil {
			g.logger.Warn("Failed to check channel membership",
				"error", err,
				"user_id", userID,
				"channel", ch.Handle,
			)
			missing = append(missing, *ch)
			continue
		}
		if !IsMemberStatus(status) {
			missing = append(missing, *ch)
		}
	}

	return missing, nil
}

func (g *Guard) Channels(ctx context.Context) ([]*Channel, error) {
	return g.storage.ListChannels(ctx, ListCriteria{})
}

func (g *Guard) AddChannel(ctx context.Context, handle, title string, chatID *int64) (*Channel, error) {
	return g.storage.CreateChannel(ctx, Channel{
		Handle:     handle,
		Title:      title,
		ChatID:     chatID,
		IsRequired: true,
		Active:     true,
	})
}
