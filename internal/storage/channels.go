package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"grabber-bot/internal/stories/channels"
)

const (
	channelsTable     = "channels"
	featureFlagsTable = "feature_flags"
)

var channelRowFields = fields(channelRow{})

type channelRow struct {
	ID         int64  `db:"channel_id"`
	Handle     string `db:"handle"`
	Title      string `db:"title"`
	ChatID     *int64 `db:"chat_id"`
	IsRequired bool   `db:"is_required"`
	Active     bool   `db:"active"`
}

func (c channelRow) ToModel() *channels.Channel {
	return &channels.Channel{
		ID:         c.ID,
		Handle:     c.Handle,
		Title:      c.Title,
		ChatID:     c.ChatID,
		IsRequired: c.IsRequired,
		Active:     c.Active,
	}
}

func (s *storageImpl) ListChannels(ctx context.Context, criteria channels.ListCriteria) ([]*channels.Channel, error) {
	query := s.stmpBuilder().
		Select(channelRowFields).
		From(channelsTable).
		OrderBy("channel_id")

	if criteria.OnlyEffective {
		query = query.Where(sq.Eq{"active": true, "is_required": true})
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []channelRow
	if err = s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	result := make([]*channels.Channel, 0, len(rows))
	for _, c := range rows {
		result = append(result, c.ToModel())
	}
	return result, nil
}

func (s *storageImpl) CreateChannel(ctx context.Context, channel channels.Channel) (*channels.Channel, error) {
	q, args, err := s.stmpBuilder().
		Insert(channelsTable).
		Columns("handle", "title", "chat_id", "is_required", "active").
		Values(channel.Handle, channel.Title, channel.ChatID, channel.IsRequired, channel.Active).
		Suffix("RETURNING channel_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if err = s.db.GetContext(ctx, &channel.ID, q, args...); err != nil {
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}
	return &channel, nil
}

// GetFlag возвращает false для неизвестного ключа.
func (s *storageImpl) GetFlag(ctx context.Context, key string) (bool, error) {
	q, args, err := s.stmpBuilder().
		Select("enabled").
		From(featureFlagsTable).
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build sql query: %w", err)
	}

	var enabled bool
	if err = s.db.GetContext(ctx, &enabled, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db.GetContext: %w", err)
	}
	return enabled, nil
}

func (s *storageImpl) SetFlag(ctx context.Context, key string, enabled bool) error {
	q, args, err := s.stmpBuilder().
		Insert(featureFlagsTable).
		Columns("key", "enabled").
		Values(key, enabled).
		Suffix("ON CONFLICT (key) DO UPDATE SET enabled = excluded.enabled").
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}
