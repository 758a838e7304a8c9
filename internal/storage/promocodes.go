package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"grabber-bot/internal/stories/promo"
)

const promocodesTable = "promocodes"

var promocodeRowFields = fields(promocodeRow{})

type promocodeRow struct {
	Code         string    `db:"code"`
	DurationDays int       `db:"duration_days"`
	UsesLeft     int       `db:"uses_left"`
	CreatedAt    time.Time `db:"created_at"`
}

func (p promocodeRow) ToModel() *promo.Promocode {
	return &promo.Promocode{
		Code:         p.Code,
		DurationDays: p.DurationDays,
		UsesLeft:     p.UsesLeft,
		CreatedAt:    p.CreatedAt,
	}
}

func (s *storageImpl) CreatePromocode(ctx context.Context, p promo.Promocode) error {
	q, args, err := s.stmpBuilder().
		Insert(promocodesTable).
		Columns("code", "duration_days", "uses_left", "created_at").
		Values(p.Code, p.DurationDays, p.UsesLeft, s.now()).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}

func (s *storageImpl) GetPromocode(ctx context.Context, code string) (*promo.Promocode, error) {
	return s.getPromocode(ctx, s.db, s.stmpBuilder().Select(promocodeRowFields), code)
}

func (s *storageImpl) getPromocode(ctx context.Context, db sqlx.QueryerContext, query sq.SelectBuilder, code string) (*promo.Promocode, error) {
	q, args, err := query.
		From(promocodesTable).
		Where(sq.Eq{"code": code}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var p promocodeRow
	if err = sqlx.GetContext(ctx, db, &p, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}
	return p.ToModel(), nil
}

// ActivatePromo списывает одно использование кода и продлевает подписку.
// Строка удаляется, когда uses_left доходит до нуля.
func (s *storageImpl) ActivatePromo(ctx context.Context, userID int64, code string) (*promo.ActivationResult, error) {
	var result *promo.ActivationResult

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		p, err := s.getPromocode(ctx, tx, s.forUpdate(s.stmpBuilder().Select(promocodeRowFields)), code)
		if err != nil {
			return err
		}
		if p == nil || p.UsesLeft <= 0 {
			return promo.ErrInvalid
		}

		var q string
		var args []interface{}
		if p.UsesLeft == 1 {
			q, args, err = s.stmpBuilder().
				Delete(promocodesTable).
				Where(sq.Eq{"code": code}).
				Where(sq.Eq{"uses_left": 1}).
				ToSql()
		} else {
			q, args, err = s.stmpBuilder().
				Update(promocodesTable).
				Set("uses_left", sq.Expr("uses_left - 1")).
				Where(sq.Eq{"code": code}).
				Where(sq.Gt{"uses_left": 0}).
				ToSql()
		}
		if err != nil {
			return fmt.Errorf("build sql query: %w", err)
		}

		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("result.RowsAffected: %w", err)
		}
		if affected == 0 {
			return promo.ErrInvalid
		}

		expireAt, err := s.extendSubscription(ctx, tx, userID, p.DurationDays)
		if err != nil {
			return err
		}

		result = &promo.ActivationResult{DurationDays: p.DurationDays, ExpireAt: expireAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}
