package telegram

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grabber-bot/internal/stories/payment"
)

type fakeWebhook struct {
	events []payment.WebhookEvent
	err    error
}

func (f *fakeWebhook) HandleWebhook(_ context.Context, event payment.WebhookEvent) (*payment.ActivationResult, error) {
	f.events = append(f.events, event)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.ActivationResult{Applied: true}, nil
}

type dirOpener string

func (d dirOpener) Open(name string) (*os.File, error) {
	if strings.Contains(name, "..") {
		return nil, os.ErrNotExist
	}
	return os.Open(filepath.Join(string(d), name))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const succeededBody = `{
  "type": "notification",
  "event": "payment.succeeded",
  "object": {
    "id": "2d1b-0001",
    "status": "succeeded",
    "amount": {"value": "199.00", "currency": "RUB"},
    "metadata": {"user_id": "42", "tariff_id": 3}
  }
}`

func TestParseYooKassaEvent(t *testing.T) {
	got, err := ParseYooKassaEvent([]byte(succeededBody))
	if err != nil {
		t.Fatalf("ParseYooKassaEvent() error = %v", err)
	}
	want := payment.WebhookEvent{PaymentID: "2d1b-0001", Status: "succeeded", UserID: 42, TariffID: 3}
	if got != want {
		t.Errorf("ParseYooKassaEvent() = %+v, want %+v", got, want)
	}
}

func TestParseYooKassaEventErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "hello"},
		{"no object", `{"event":"payment.succeeded"}`},
		{"no status", `{"object":{"id":"x"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseYooKassaEvent([]byte(tt.body)); err == nil {
				t.Errorf("ParseYooKassaEvent(%q) error = nil, want error", tt.body)
			}
		})
	}
}

func TestYooKassaWebhook(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantCode   int
	}{
		{"succeeded", succeededBody, nil, http.StatusOK},
		{"malformed", `{"object":`, nil, http.StatusBadRequest},
		{"bad metadata", succeededBody, payment.ErrBadPayload, http.StatusBadRequest},
		{"storage failure", succeededBody, errors.New("db is down"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeWebhook{err: tt.serviceErr}
			h := NewWebRouter(svc, nil, WebConfig{WebhookTimeout: time.Second, WebhookRPM: 100}, discardLogger())

			req := httptest.NewRequest(http.MethodPost, "/yookassa/webhook", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestWebhookRateLimit(t *testing.T) {
	h := NewWebRouter(&fakeWebhook{}, nil, WebConfig{WebhookTimeout: time.Second, WebhookRPM: 2}, discardLogger())

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/yookassa/webhook", strings.NewReader(succeededBody))
		req.RemoteAddr = "10.0.0.1:5000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		last = rec.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want %d", last, http.StatusTooManyRequests)
	}
}

func TestVideoHandler(t *testing.T) {
	dir := t.TempDir()
	name := "0123456789abcdef0123456789abcdef.mp4"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	h := NewWebRouter(&fakeWebhook{}, dirOpener(dir), WebConfig{WebhookTimeout: time.Second, WebhookRPM: 10}, discardLogger())

	tests := []struct {
		path     string
		wantCode int
	}{
		{"/video/" + name, http.StatusOK},
		{"/video/missing.mp4", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
		if rec.Code != tt.wantCode {
			t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.wantCode)
		}
		if tt.wantCode == http.StatusOK && rec.Body.String() != "video-bytes" {
			t.Errorf("GET %s body = %q", tt.path, rec.Body.String())
		}
	}
}
