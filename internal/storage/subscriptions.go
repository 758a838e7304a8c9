package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"grabber-bot/internal/stories/subs"
)

const subscribersTable = "subscribers"

var subscriberRowFields = fields(subscriberRow{})

type subscriberRow struct {
	UserID    int64     `db:"user_id"`
	ExpireAt  time.Time `db:"expire_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r subscriberRow) ToModel() *subs.Subscriber {
	return &subs.Subscriber{
		UserID:    r.UserID,
		ExpireAt:  r.ExpireAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (s *storageImpl) GetSubscriber(ctx context.Context, userID int64) (*subs.Subscriber, error) {
	return s.getSubscriber(ctx, s.db, s.stmpBuilder().Select(subscriberRowFields), userID)
}

func (s *storageImpl) getSubscriber(ctx context.Context, db sqlx.QueryerContext, query sq.SelectBuilder, userID int64) (*subs.Subscriber, error) {
	q, args, err := query.
		From(subscribersTable).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var r subscriberRow
	if err = sqlx.GetContext(ctx, db, &r, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}
	return r.ToModel(), nil
}

func (s *storageImpl) ListSubscribers(ctx context.Context, criteria subs.ListCriteria) ([]*subs.Subscriber, error) {
	query := s.stmpBuilder().
		Select(subscriberRowFields).
		From(subscribersTable).
		OrderBy("expire_at")

	if criteria.ExpireFrom != nil {
		query = query.Where(sq.Gt{"expire_at": *criteria.ExpireFrom})
	}
	if criteria.ExpireTo != nil {
		query = query.Where(sq.LtOrEq{"expire_at": *criteria.ExpireTo})
	}
	if criteria.Limit > 0 {
		query = query.Limit(uint64(criteria.Limit))
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []subscriberRow
	if err = s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	result := make([]*subs.Subscriber, 0, len(rows))
	for _, r := range rows {
		result = append(result, r.ToModel())
	}
	return result, nil
}

func (s *storageImpl) CountActiveSubscribers(ctx context.Context, now time.Time) (int, error) {
	q, args, err := s.stmpBuilder().
		Select("COUNT(*)").
		From(subscribersTable).
		Where(sq.Gt{"expire_at": now.UTC()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql query: %w", err)
	}

	var count int
	if err = s.db.GetContext(ctx, &count, q, args...); err != nil {
		return 0, fmt.Errorf("db.GetContext: %w", err)
	}
	return count, nil
}

// extendSubscription продлевает подписку внутри транзакции: max(now, expire_at) + days.
func (s *storageImpl) extendSubscription(ctx context.Context, tx *sqlx.Tx, userID int64, days int) (time.Time, error) {
	if err := s.ensureUser(ctx, tx, userID); err != nil {
		return time.Time{}, err
	}

	current, err := s.getSubscriber(ctx, tx, s.forUpdate(s.stmpBuilder().Select(subscriberRowFields)), userID)
	if err != nil {
		return time.Time{}, err
	}

	now := s.now()
	var expireAt *time.Time
	if current != nil {
		expireAt = &current.ExpireAt
	}
	newExpireAt := subs.Extend(expireAt, now, days)

	q, args, err := s.stmpBuilder().
		Insert(subscribersTable).
		Columns("user_id", "expire_at", "updated_at").
		Values(userID, newExpireAt, now).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET expire_at = excluded.expire_at, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return time.Time{}, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = tx.ExecContext(ctx, q, args...); err != nil {
		return time.Time{}, fmt.Errorf("tx.ExecContext: %w", err)
	}
	return newExpireAt, nil
}

// ImportSubscriber переносит подписку из внешнего источника. Срок только растёт:
// более ранняя дата не укорачивает уже оплаченную подписку.
func (s *storageImpl) ImportSubscriber(ctx context.Context, userID int64, expireAt time.Time) (bool, error) {
	var applied bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.ensureUser(ctx, tx, userID); err != nil {
			return err
		}

		current, err := s.getSubscriber(ctx, tx, s.forUpdate(s.stmpBuilder().Select(subscriberRowFields)), userID)
		if err != nil {
			return err
		}
		if current != nil && !expireAt.After(current.ExpireAt) {
			return nil
		}

		q, args, err := s.stmpBuilder().
			Insert(subscribersTable).
			Columns("user_id", "expire_at", "updated_at").
			Values(userID, expireAt.UTC(), s.now()).
			Suffix("ON CONFLICT (user_id) DO UPDATE SET expire_at = excluded.expire_at, updated_at = excluded.updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build sql query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}
