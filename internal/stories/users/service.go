package users

import (
	"context"
	"fmt"
	"time"
)

// Service provides business logic for user operations
type Service struct {
	storage Storage
	now     func() time.Time
}

// NewService creates a new user service
func NewService(storage Storage) *Service {
	return &Service{
		storage: storage,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register получает пользователя или создаёт нового. Реферер проставляется
// только один раз и никогда не указывает на самого пользователя.
func (s *Service) Register(ctx context.Context, user User, referrerID *int64) (*User, error) {
	existing, err := s.storage.GetUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	if existing == nil {
		user.CreatedAt = s.now()
		existing, err = s.storage.CreateUser(ctx, user)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	} else if existing.FirstName != user.FirstName || existing.Username != user.Username {
		if err := s.storage.UpdateUserProfile(ctx, user.ID, user.FirstName, user.Username); err != nil {
			return nil, fmt.Errorf("update user profile: %w", err)
		}
		existing.FirstName, existing.Username = user.FirstName, user.Username
	}

	if referrerID != nil && *referrerID != user.ID && existing.ReferrerID == nil {
		referrer, err := s.storage.GetUser(ctx, *referrerID)
		if err != nil {
			return nil, fmt.Errorf("get referrer: %w", err)
		}
		if referrer != nil {
			set, err := s.storage.SetReferrer(ctx, user.ID, *referrerID)
			if err != nil {
				return nil, fmt.Errorf("set referrer: %w", err)
			}
			if set {
				existing.ReferrerID = referrerID
			}
		}
	}

	return existing, nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.storage.GetUser(ctx, userID)
}

// Referrals возвращает число приглашённых и уровень пользователя.
func (s *Service) Referrals(ctx context.Context, userID int64) (count int, level int, err error) {
	count, err = s.storage.CountReferrals(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("count referrals: %w", err)
	}
	return count, LevelFor(count), nil
}

// Audience returns user ids for a broadcast.
func (s *Service) Audience(ctx context.Context, criteria AudienceCriteria) ([]int64, error) {
	if criteria.Now.IsZero() {
		criteria.Now = s.now()
	}
	return s.storage.ListUserIDs(ctx, criteria)
}
