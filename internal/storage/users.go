package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"grabber-bot/internal/stories/users"
)

const usersTable = "users"

var userRowFields = fields(userRow{})

type userRow struct {
	UserID      int64      `db:"user_id"`
	FirstName   string     `db:"first_name"`
	Username    string     `db:"username"`
	ReferrerID  *int64     `db:"referrer_id"`
	HasPaidEver bool       `db:"has_paid_ever"`
	FirstPaidAt *time.Time `db:"first_paid_at"`
	CreatedAt   time.Time  `db:"created_at"`
}

func (u userRow) ToModel() *users.User {
	return &users.User{
		ID:          u.UserID,
		FirstName:   u.FirstName,
		Username:    u.Username,
		ReferrerID:  u.ReferrerID,
		HasPaidEver: u.HasPaidEver,
		FirstPaidAt: u.FirstPaidAt,
		CreatedAt:   u.CreatedAt,
	}
}

func (s *storageImpl) CreateUser(ctx context.Context, user users.User) (*users.User, error) {
	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	params := map[string]interface{}{
		"user_id":     user.ID,
		"first_name":  user.FirstName,
		"username":    user.Username,
		"referrer_id": user.ReferrerID,
		"created_at":  createdAt,
	}

	q, args, err := s.stmpBuilder().
		Insert(usersTable).
		SetMap(params).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetUser(ctx, user.ID)
}

func (s *storageImpl) GetUser(ctx context.Context, userID int64) (*users.User, error) {
	q, args, err := s.stmpBuilder().
		Select(userRowFields).
		From(usersTable).
		Where(sq.Eq{"user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var u userRow
	if err = s.db.GetContext(ctx, &u, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	return u.ToModel(), nil
}

func (s *storageImpl) UpdateUserProfile(ctx context.Context, userID int64, firstName, username string) error {
	q, args, err := s.stmpBuilder().
		Update(usersTable).
		Set("first_name", firstName).
		Set("username", username).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}

// SetReferrer проставляет реферера, только если он ещё не задан.
func (s *storageImpl) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	if userID == referrerID {
		return false, nil
	}

	q, args, err := s.stmpBuilder().
		Update(usersTable).
		Set("referrer_id", referrerID).
		Where(sq.Eq{"user_id": userID}).
		Where(sq.Eq{"referrer_id": nil}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build sql query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("db.ExecContext: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("result.RowsAffected: %w", err)
	}
	return affected > 0, nil
}

func (s *storageImpl) CountReferrals(ctx context.Context, userID int64) (int, error) {
	return s.countReferrals(ctx, s.db, userID)
}

func (s *storageImpl) countReferrals(ctx context.Context, db sqlx.QueryerContext, userID int64) (int, error) {
	q, args, err := s.stmpBuilder().
		Select("COUNT(*)").
		From(usersTable).
		Where(sq.Eq{"referrer_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql query: %w", err)
	}

	var count int
	if err = sqlx.GetContext(ctx, db, &count, q, args...); err != nil {
		return 0, fmt.Errorf("db.GetContext: %w", err)
	}
	return count, nil
}

// ListUserIDs выбирает аудиторию рассылки.
func (s *storageImpl) ListUserIDs(ctx context.Context, criteria users.AudienceCriteria) ([]int64, error) {
	query := s.stmpBuilder().
		Select("u.user_id").
		From(usersTable + " u").
		OrderBy("u.user_id")

	if criteria.NeverPaid {
		query = query.Where(sq.Eq{"u.has_paid_ever": false})
	}
	if criteria.WithoutActiveSubscription {
		now := criteria.Now
		if now.IsZero() {
			now = s.now()
		}
		query = query.
			LeftJoin(subscribersTable + " s ON s.user_id = u.user_id").
			Where(sq.Or{
				sq.Eq{"s.user_id": nil},
				sq.LtOrEq{"s.expire_at": now},
			})
	}
	if criteria.ExcludeVIP {
		vips := s.stmpBuilder().
			Select("referrer_id").
			From(usersTable).
			Where(sq.NotEq{"referrer_id": nil}).
			GroupBy("referrer_id").
			Having(sq.GtOrEq{"COUNT(*)": users.VIPReferralThreshold})
		query = query.Where(notInSubquery{column: "u.user_id", sub: vips})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var ids []int64
	if err = s.db.SelectContext(ctx, &ids, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}
	return ids, nil
}

// ensureUser создаёт пустую запись пользователя для внешних событий
// (вебхук оплаты может прийти раньше, чем пользователь написал боту).
func (s *storageImpl) ensureUser(ctx context.Context, tx *sqlx.Tx, userID int64) error {
	q, args, err := s.stmpBuilder().
		Insert(usersTable).
		Columns("user_id", "created_at").
		Values(userID, s.now()).
		Suffix("ON CONFLICT (user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("tx.ExecContext: %w", err)
	}
	return nil
}
