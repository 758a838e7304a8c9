package healthcheck

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type fakeExtractor struct {
	err error
}

func (f *fakeExtractor) Healthy(context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "2025.01.15", nil
}

type fakeTelegram struct {
	sent []string
}

func (f *fakeTelegram) SendHTML(_ context.Context, _ int64, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func TestCheckNotifiesOnTransitions(t *testing.T) {
	ext := &fakeExtractor{}
	tg := &fakeTelegram{}
	w := NewWorker(ext, tg, []int64{1}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	steps := []struct {
		err       error
		wantSent  int
		wantMatch string
	}{
		{nil, 0, ""},
		{errors.New("yt-dlp: not found"), 1, "недоступен"},
		{errors.New("yt-dlp: not found"), 1, ""},
		{nil, 2, "снова работает"},
		{nil, 2, ""},
	}

	for i, s := range steps {
		ext.err = s.err
		w.check(ctx)
		if len(tg.sent) != s.wantSent {
			t.Fatalf("step %d: sent = %d, want %d", i, len(tg.sent), s.wantSent)
		}
		if s.wantMatch != "" && !strings.Contains(tg.sent[len(tg.sent)-1], s.wantMatch) {
			t.Errorf("step %d: message %q does not contain %q", i, tg.sent[len(tg.sent)-1], s.wantMatch)
		}
	}
}

func TestFirstFailureNotifies(t *testing.T) {
	tg := &fakeTelegram{}
	w := NewWorker(&fakeExtractor{err: errors.New("boom")}, tg, []int64{1, 2}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	w.check(context.Background())
	if len(tg.sent) != 2 {
		t.Errorf("sent = %d, want one per admin", len(tg.sent))
	}
}
