package channels

import "context"

type (
	Storage interface {
		ListChannels(ctx context.Context, criteria ListCriteria) ([]*Channel, error)
		CreateChannel(ctx context.Context, channel Channel) (*Channel, error)
		GetFlag(ctx context.Context, key string) (bool, error)
		SetFlag(ctx context.Context, key string, enabled bool) error
	}

	// MembershipChecker возвращает статус участника чата (member, left, kicked...).
	MembershipChecker interface {
		GetChatMemberStatus(ctx context.Context, chatID int64, username string, userID int64) (string, error)
	}
)
