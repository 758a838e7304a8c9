package storage

import (
	"context"
	"embed"
	"fmt"
	"reflect"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite3/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

const driverPostgres = "pgx"

type storageImpl struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) *storageImpl {
	return &storageImpl{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *storageImpl) postgres() bool {
	return s.db.DriverName() == driverPostgres
}

func (s *storageImpl) stmpBuilder() sq.StatementBuilderType {
	if s.postgres() {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// forUpdate блокирует строку до конца транзакции там, где это поддерживается.
// SQLite сериализует запись на уровне всей базы (_txlock=immediate).
func (s *storageImpl) forUpdate(q sq.SelectBuilder) sq.SelectBuilder {
	if s.postgres() {
		return q.Suffix("FOR UPDATE")
	}
	return q
}

// Migrate applies embedded schema migrations for the current driver.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	dialect, dir := "sqlite3", "migrations/sqlite3"
	if db.DriverName() == driverPostgres {
		dialect, dir = "postgres", "migrations/postgres"
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("goose.SetDialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.DB, dir); err != nil {
		return fmt.Errorf("goose.UpContext: %w", err)
	}
	return nil
}

// Fields возвращает список всех полей структуры, которые есть в БД.
func fields(data any) string {
	var s string
	r := reflect.TypeOf(data)
	for i := 0; i < r.NumField(); i++ {
		tag := r.Field(i).Tag.Get("db")
		if tag != "" {
			s += tag + ","
		}
	}
	return s[:len(s)-1]
}

// notInSubquery собирает "col NOT IN (subquery)" с вопросительными плейсхолдерами,
// итоговый формат подставляет внешний билдер.
type notInSubquery struct {
	column string
	sub    sq.SelectBuilder
}

func (n notInSubquery) ToSql() (string, []interface{}, error) {
	q, args, err := n.sub.PlaceholderFormat(sq.Question).ToSql()
	if err != nil {
		return "", nil, err
	}
	return n.column + " NOT IN (" + q + ")", args, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
