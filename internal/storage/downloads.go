package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"grabber-bot/internal/stories/downloads"
	"grabber-bot/internal/stories/platform"
)

const (
	dailyDownloadsTable    = "daily_downloads"
	totalDownloadsTable    = "total_downloads"
	platformDownloadsTable = "platform_downloads"
	downloadLinksTable     = "download_links"

	maxLinkLength = 1024
)

var downloadLinkRowFields = fields(downloadLinkRow{})

type downloadLinkRow struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	URL       string    `db:"url"`
	CreatedAt time.Time `db:"created_at"`
}

func (l downloadLinkRow) ToModel() *downloads.Link {
	return &downloads.Link{
		ID:        l.ID,
		UserID:    l.UserID,
		URL:       l.URL,
		CreatedAt: l.CreatedAt,
	}
}

func (s *storageImpl) GetDailyCount(ctx context.Context, userID int64, day time.Time) (int, error) {
	q, args, err := s.stmpBuilder().
		Select("count").
		From(dailyDownloadsTable).
		Where(sq.Eq{"user_id": userID, "day": dayKey(day)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql query: %w", err)
	}

	var count int
	if err = s.db.GetContext(ctx, &count, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("db.GetContext: %w", err)
	}
	return count, nil
}

// RecordDownload фиксирует успешную загрузку: дневной, общий и платформенный
// счётчики, новая ссылка и обрезка кольца до KeepLinks последних.
func (s *storageImpl) RecordDownload(ctx context.Context, record downloads.Record) error {
	at := record.At
	if at.IsZero() {
		at = s.now()
	}
	link := truncateLink(record.URL)

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		builder := s.stmpBuilder()
		statements := []sq.Sqlizer{
			builder.Insert(dailyDownloadsTable).
				Columns("user_id", "day", "count").
				Values(record.UserID, dayKey(at), 1).
				Suffix("ON CONFLICT (user_id, day) DO UPDATE SET count = " + dailyDownloadsTable + ".count + 1"),
			builder.Insert(totalDownloadsTable).
				Columns("user_id", "total").
				Values(record.UserID, 1).
				Suffix("ON CONFLICT (user_id) DO UPDATE SET total = " + totalDownloadsTable + ".total + 1"),
			builder.Insert(platformDownloadsTable).
				Columns("user_id", "platform", "count").
				Values(record.UserID, string(record.Platform), 1).
				Suffix("ON CONFLICT (user_id, platform) DO UPDATE SET count = " + platformDownloadsTable + ".count + 1"),
			builder.Insert(downloadLinksTable).
				Columns("user_id", "url", "created_at").
				Values(record.UserID, link, at),
		}

		if record.KeepLinks > 0 {
			newest := builder.
				Select("id").
				From(downloadLinksTable).
				Where(sq.Eq{"user_id": record.UserID}).
				OrderBy("id DESC").
				Limit(uint64(record.KeepLinks))
			statements = append(statements, builder.
				Delete(downloadLinksTable).
				Where(sq.Eq{"user_id": record.UserID}).
				Where(notInSubquery{column: "id", sub: newest}))
		}

		for _, stmt := range statements {
			q, args, err := stmt.ToSql()
			if err != nil {
				return fmt.Errorf("build sql query: %w", err)
			}
			if _, err = tx.ExecContext(ctx, q, args...); err != nil {
				return fmt.Errorf("tx.ExecContext: %w", err)
			}
		}
		return nil
	})
}

func (s *storageImpl) ListRecentLinks(ctx context.Context, userID int64, limit int) ([]*downloads.Link, error) {
	query := s.stmpBuilder().
		Select(downloadLinkRowFields).
		From(downloadLinksTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []downloadLinkRow
	if err = s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	result := make([]*downloads.Link, 0, len(rows))
	for _, l := range rows {
		result = append(result, l.ToModel())
	}
	return result, nil
}

type platformCountRow struct {
	Platform string `db:"platform"`
	Count    int    `db:"count"`
}

func (s *storageImpl) GetTotals(ctx context.Context, userID int64) (*downloads.Totals, error) {
	totals := &downloads.Totals{ByPlatform: map[platform.Platform]int{}}

	q, args, err := s.stmpBuilder().
		Select("total").
		From(totalDownloadsTable).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}
	if err = s.db.GetContext(ctx, &totals.Total, q, args...); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}

	q, args, err = s.stmpBuilder().
		Select("platform", "count").
		From(platformDownloadsTable).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []platformCountRow
	if err = s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}
	for _, r := range rows {
		totals.ByPlatform[platform.Platform(r.Platform)] = r.Count
	}

	return totals, nil
}

// PruneDailyDownloads удаляет дневные счётчики раньше before.
func (s *storageImpl) PruneDailyDownloads(ctx context.Context, before time.Time) (int64, error) {
	q, args, err := s.stmpBuilder().
		Delete(dailyDownloadsTable).
		Where(sq.Lt{"day": dayKey(before)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("db.ExecContext: %w", err)
	}
	return res.RowsAffected()
}

// truncateLink обрезает ссылку до maxLinkLength байт по границе руны.
func truncateLink(link string) string {
	if len(link) <= maxLinkLength {
		return link
	}
	n := maxLinkLength
	for n > 0 && !utf8.RuneStart(link[n]) {
		n--
	}
	return link[:n]
}
