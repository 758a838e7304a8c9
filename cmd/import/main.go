// Command import переносит активные подписки из выгрузки старого бота.
//
// CSV: telegram_id,expire_at (дата 02.01.2006 или 2006-01-02), первая строка заголовок.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"grabber-bot/internal/config"
	"grabber-bot/internal/infra/postgres"
	"grabber-bot/internal/infra/sqlite3"
	"grabber-bot/internal/storage"
)

type subscriberImporter interface {
	ImportSubscriber(ctx context.Context, userID int64, expireAt time.Time) (bool, error)
}

type row struct {
	line     int
	userID   int64
	expireAt time.Time
}

type report struct {
	imported, unchanged, skipped, failed int
}

func main() {
	dsn := flag.String("db", os.Getenv("DATABASE_URL"), "DATABASE_URL of the bot database")
	csvDir := flag.String("csv", "./subs/", "directory with CSV files")
	dryRun := flag.Bool("dry-run", false, "show what would be imported without writing to DB")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("database is required: -db <DATABASE_URL>")
	}

	ctx := context.Background()
	db, err := openDB(ctx, *dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := storage.Migrate(ctx, db); err != nil {
		log.Fatalf("failed to migrate: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(*csvDir, "*.csv"))
	if err != nil {
		log.Fatalf("failed to list CSV files: %v", err)
	}
	if len(files) == 0 {
		log.Fatalf("no CSV files in %s", *csvDir)
	}

	store := storage.New(db)
	now := time.Now().UTC()

	var total report
	for _, path := range files {
		fmt.Printf("Processing %s\n", filepath.Base(path))

		f, err := os.Open(path)
		if err != nil {
			fmt.Printf("  ERROR: %v\n", err)
			total.failed++
			continue
		}
		rows, skipped := readRows(f, now)
		f.Close()

		r := importRows(ctx, store, rows, *dryRun)
		r.skipped += skipped
		fmt.Printf("  imported=%d unchanged=%d skipped=%d failed=%d\n", r.imported, r.unchanged, r.skipped, r.failed)

		total.imported += r.imported
		total.unchanged += r.unchanged
		total.skipped += r.skipped
		total.failed += r.failed
	}

	fmt.Printf("\nTotal: imported=%d unchanged=%d skipped=%d failed=%d\n",
		total.imported, total.unchanged, total.skipped, total.failed)
}

func openDB(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if (config.DBConfig{URL: dsn}).IsPostgres() {
		return postgres.New(ctx, postgres.Config{URL: dsn, MaxOpenConns: 2, MaxIdleConns: 1})
	}
	return sqlite3.New(ctx, sqlite3.WithDSN(dsn), sqlite3.WithMaxOpenConns(1))
}

// readRows разбирает CSV; истёкшие и битые строки пропускаются.
func readRows(r io.Reader, now time.Time) ([]row, int) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		rows    []row
		skipped int
		line    int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			fmt.Printf("  SKIP row %d: %v\n", line, err)
			skipped++
			continue
		}
		if line == 1 {
			continue
		}
		if len(record) < 2 {
			skipped++
			continue
		}

		userID, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
		if err != nil || userID <= 0 {
			fmt.Printf("  SKIP row %d: invalid telegram_id '%s'\n", line, record[0])
			skipped++
			continue
		}

		expireAt, err := parseDate(record[1])
		if err != nil {
			fmt.Printf("  SKIP row %d: %v\n", line, err)
			skipped++
			continue
		}
		if !expireAt.After(now) {
			skipped++
			continue
		}

		rows = append(rows, row{line: line, userID: userID, expireAt: expireAt})
	}
	return rows, skipped
}

func importRows(ctx context.Context, store subscriberImporter, rows []row, dryRun bool) report {
	var r report
	for _, row := range rows {
		if dryRun {
			fmt.Printf("  DRY: %d, expires=%s\n", row.userID, row.expireAt.Format("02.01.2006"))
			r.imported++
			continue
		}

		applied, err := store.ImportSubscriber(ctx, row.userID, row.expireAt)
		switch {
		case err != nil:
			fmt.Printf("  ERROR row %d: %v\n", row.line, err)
			r.failed++
		case applied:
			r.imported++
		default:
			r.unchanged++
		}
	}
	return r
}

// parseDate понимает даты в конце дня по UTC: подписка действует весь последний день.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	formats := []string{
		"02.01.2006",
		"2.1.2006",
		"2006-01-02",
	}

	for _, format := range formats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t.Add(24*time.Hour - time.Second), nil
		}
	}

	return time.Time{}, fmt.Errorf("cannot parse date: %s", s)
}
