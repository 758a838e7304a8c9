package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"grabber-bot/internal/stories/tariffs"
)

const tariffsTable = "tariffs"

var tariffRowFields = fields(tariffRow{})

type tariffRow struct {
	ID           int64     `db:"tariff_id"`
	Name         string    `db:"name"`
	PriceFiat    float64   `db:"price_fiat"`
	PriceStars   int       `db:"price_stars"`
	DurationDays int       `db:"duration_days"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

func (t tariffRow) ToModel() *tariffs.Tariff {
	return &tariffs.Tariff{
		ID:           t.ID,
		Name:         t.Name,
		PriceFiat:    t.PriceFiat,
		PriceStars:   t.PriceStars,
		DurationDays: t.DurationDays,
		IsActive:     t.IsActive,
		CreatedAt:    t.CreatedAt,
	}
}

func (s *storageImpl) CreateTariff(ctx context.Context, tariff tariffs.Tariff) (*tariffs.Tariff, error) {
	params := map[string]interface{}{
		"name":          tariff.Name,
		"price_fiat":    tariff.PriceFiat,
		"price_stars":   tariff.PriceStars,
		"duration_days": tariff.DurationDays,
		"is_active":     tariff.IsActive,
		"created_at":    s.now(),
	}

	q, args, err := s.stmpBuilder().
		Insert(tariffsTable).
		SetMap(params).
		Suffix("RETURNING tariff_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var id int64
	if err = s.db.GetContext(ctx, &id, q, args...); err != nil {
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	return s.GetTariff(ctx, id)
}

func (s *storageImpl) GetTariff(ctx context.Context, id int64) (*tariffs.Tariff, error) {
	return s.getTariff(ctx, s.db, id)
}

func (s *storageImpl) getTariff(ctx context.Context, db sqlx.QueryerContext, id int64) (*tariffs.Tariff, error) {
	q, args, err := s.stmpBuilder().
		Select(tariffRowFields).
		From(tariffsTable).
		Where(sq.Eq{"tariff_id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var t tariffRow
	if err = sqlx.GetContext(ctx, db, &t, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	return t.ToModel(), nil
}

func (s *storageImpl) ListTariffs(ctx context.Context, criteria tariffs.ListCriteria) ([]*tariffs.Tariff, error) {
	query := s.stmpBuilder().
		Select(tariffRowFields).
		From(tariffsTable).
		OrderBy("duration_days", "tariff_id")

	if criteria.IsActive != nil {
		query = query.Where(sq.Eq{"is_active": *criteria.IsActive})
	}
	if criteria.Limit > 0 {
		query = query.Limit(uint64(criteria.Limit))
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []tariffRow
	if err = s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	result := make([]*tariffs.Tariff, 0, len(rows))
	for _, t := range rows {
		result = append(result, t.ToModel())
	}
	return result, nil
}
