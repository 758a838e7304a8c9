package main

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"15.04.2025", time.Date(2025, 4, 15, 23, 59, 59, 0, time.UTC), false},
		{"5.4.2025", time.Date(2025, 4, 5, 23, 59, 59, 0, time.UTC), false},
		{" 2025-04-15 ", time.Date(2025, 4, 15, 23, 59, 59, 0, time.UTC), false},
		{"", time.Time{}, true},
		{"15/04/2025", time.Time{}, true},
	}
	for _, tt := range tests {
		got, err := parseDate(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDate(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestReadRows(t *testing.T) {
	input := "telegram_id,expire_at\n" +
		"100,15.04.2025\n" +
		"abc,15.04.2025\n" +
		"101,01.01.2024\n" +
		"102\n" +
		"103,2025-05-01\n"

	rows, skipped := readRows(strings.NewReader(input), now)
	if skipped != 3 {
		t.Errorf("skipped = %d, want 3", skipped)
	}
	if len(rows) != 2 || rows[0].userID != 100 || rows[1].userID != 103 {
		t.Fatalf("rows = %+v, want users 100 and 103", rows)
	}
	if rows[1].line != 6 {
		t.Errorf("line = %d, want 6", rows[1].line)
	}
}

type fakeImporter struct {
	applied map[int64]bool
	fail    int64
	calls   int
}

func (f *fakeImporter) ImportSubscriber(_ context.Context, userID int64, _ time.Time) (bool, error) {
	f.calls++
	if userID == f.fail {
		return false, errors.New("db is down")
	}
	return f.applied[userID], nil
}

func TestImportRows(t *testing.T) {
	rows := []row{{userID: 1}, {userID: 2}, {userID: 3}}
	store := &fakeImporter{applied: map[int64]bool{1: true}, fail: 3}

	got := importRows(context.Background(), store, rows, false)
	want := report{imported: 1, unchanged: 1, failed: 1}
	if got != want {
		t.Errorf("importRows() = %+v, want %+v", got, want)
	}

	store.calls = 0
	got = importRows(context.Background(), store, rows, true)
	if got.imported != 3 || store.calls != 0 {
		t.Errorf("dry run = %+v with %d calls, want 3 imported and no writes", got, store.calls)
	}
}
