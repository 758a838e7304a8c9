package users

import "context"

type (
	Storage interface {
		CreateUser(ctx context.Context, user User) (*User, error)
		GetUser(ctx context.Context, userID int64) (*User, error)
		UpdateUserProfile(ctx context.Context, userID int64, firstName, username string) error
		SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error)
		CountReferrals(ctx context.Context, userID int64) (int, error)
		ListUserIDs(ctx context.Context, criteria AudienceCriteria) ([]int64, error)
	}
)
