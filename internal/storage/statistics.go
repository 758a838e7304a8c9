package storage

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

type StatisticsData struct {
	UsersCount             int
	NewUsersToday          int
	PaidUsersCount         int
	ActiveSubscribersCount int
	DownloadsToday         int
	DownloadsTotal         int
	PendingPaymentsCount   int
}

type statCounter struct {
	name  string
	query sq.SelectBuilder
	dest  *int
}

// GetStatistics собирает сводку для /stats.
func (s *storageImpl) GetStatistics(ctx context.Context) (*StatisticsData, error) {
	now := s.now()
	startOfDay := now.Truncate(24 * time.Hour)
	builder := s.stmpBuilder()

	stats := &StatisticsData{}
	var counters []statCounter
	add := func(name string, query sq.SelectBuilder, dest *int) {
		counters = append(counters, statCounter{name: name, query: query, dest: dest})
	}
	add("users", builder.Select("COUNT(*)").From(usersTable), &stats.UsersCount)
	add("new users", builder.Select("COUNT(*)").From(usersTable).
		Where(sq.GtOrEq{"created_at": startOfDay}), &stats.NewUsersToday)
	add("paid users", builder.Select("COUNT(*)").From(usersTable).
		Where(sq.Eq{"has_paid_ever": true}), &stats.PaidUsersCount)
	add("active subscribers", builder.Select("COUNT(*)").From(subscribersTable).
		Where(sq.Gt{"expire_at": now}), &stats.ActiveSubscribersCount)
	add("downloads today", builder.Select("CAST(COALESCE(SUM(count), 0) AS BIGINT)").From(dailyDownloadsTable).
		Where(sq.Eq{"day": dayKey(now)}), &stats.DownloadsToday)
	add("downloads total", builder.Select("CAST(COALESCE(SUM(total), 0) AS BIGINT)").From(totalDownloadsTable),
		&stats.DownloadsTotal)
	add("pending payments", builder.Select("COUNT(*)").From(pendingPaymentsTable).
		Where(sq.Eq{"status": "pending"}), &stats.PendingPaymentsCount)

	for _, c := range counters {
		q, args, err := c.query.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build sql query (%s): %w", c.name, err)
		}
		if err = s.db.GetContext(ctx, c.dest, q, args...); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.name, err)
		}
	}

	return stats, nil
}
