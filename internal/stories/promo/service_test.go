package promo

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type MockStorage struct {
	Codes   map[string]*Promocode
	Used    []string
	Created []Promocode
	Err     error
}

func (m *MockStorage) ActivatePromo(_ context.Context, _ int64, code string) (*ActivationResult, error) {
	m.Used = append(m.Used, code)
	if m.Err != nil {
		return nil, m.Err
	}
	p, ok := m.Codes[code]
	if !ok || p.UsesLeft <= 0 {
		return nil, ErrInvalid
	}
	p.UsesLeft--
	return &ActivationResult{DurationDays: p.DurationDays, ExpireAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)}, nil
}

func (m *MockStorage) CreatePromocode(_ context.Context, p Promocode) error {
	m.Created = append(m.Created, p)
	return nil
}

func (m *MockStorage) GetPromocode(_ context.Context, code string) (*Promocode, error) {
	if p, ok := m.Codes[code]; ok {
		return p, nil
	}
	return nil, ErrInvalid
}

func newTestService() (*Service, *MockStorage) {
	storage := &MockStorage{Codes: map[string]*Promocode{
		"WELCOME-123456": {Code: "WELCOME-123456", DurationDays: 7, UsesLeft: 1},
		"SUMMER_24":      {Code: "SUMMER_24", DurationDays: 30, UsesLeft: 100},
	}}
	return NewService(storage, slog.New(slog.NewTextHandler(io.Discard, nil))), storage
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"welcome-123456", "WELCOME-123456"},
		{"  Summer_24\n", "SUMMER_24"},
		{"ABC", "ABC"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestActivate(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantDays int
		wantErr  error
		wantUsed string
	}{
		{name: "lowercase input", code: "welcome-123456", wantDays: 7, wantUsed: "WELCOME-123456"},
		{name: "spaces around", code: " summer_24 ", wantDays: 30, wantUsed: "SUMMER_24"},
		{name: "unknown", code: "NOPE", wantErr: ErrInvalid, wantUsed: "NOPE"},
		{name: "too short", code: "ab", wantErr: ErrInvalid},
		{name: "bad characters", code: "промо код", wantErr: ErrInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, storage := newTestService()

			result, err := s.Activate(context.Background(), 7, tt.code)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Activate(%q) error = %v, want %v", tt.code, err, tt.wantErr)
			}
			if tt.wantErr == nil && result.DurationDays != tt.wantDays {
				t.Errorf("Activate(%q) days = %d, want %d", tt.code, result.DurationDays, tt.wantDays)
			}

			switch {
			case tt.wantUsed == "" && len(storage.Used) != 0:
				t.Errorf("storage called with %v for a malformed code", storage.Used)
			case tt.wantUsed != "" && (len(storage.Used) != 1 || storage.Used[0] != tt.wantUsed):
				t.Errorf("storage called with %v, want [%s]", storage.Used, tt.wantUsed)
			}
		})
	}
}

func TestActivateExhausted(t *testing.T) {
	s, _ := newTestService()
	ctx := context.Background()

	if _, err := s.Activate(ctx, 1, "WELCOME-123456"); err != nil {
		t.Fatalf("first Activate() error = %v", err)
	}
	if _, err := s.Activate(ctx, 2, "welcome-123456"); !errors.Is(err, ErrInvalid) {
		t.Errorf("second Activate() error = %v, want ErrInvalid", err)
	}
}

func TestActivateStorageFailure(t *testing.T) {
	s, storage := newTestService()
	storage.Err = errors.New("database is locked")

	_, err := s.Activate(context.Background(), 7, "SUMMER_24")
	if err == nil || errors.Is(err, ErrInvalid) {
		t.Errorf("Activate() error = %v, want wrapped storage failure", err)
	}
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		days    int
		uses    int
		wantErr bool
	}{
		{name: "ok", code: "spring-25", days: 14, uses: 50},
		{name: "bad code", code: "a b", days: 14, uses: 50, wantErr: true},
		{name: "zero days", code: "SPRING", days: 0, uses: 50, wantErr: true},
		{name: "zero uses", code: "SPRING", days: 14, uses: 0, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, storage := newTestService()
			p, err := s.Create(context.Background(), tt.code, tt.days, tt.uses)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Create() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if len(storage.Created) != 0 {
					t.Errorf("stored %v for invalid input", storage.Created)
				}
				return
			}
			if p.Code != "SPRING-25" || len(storage.Created) != 1 || storage.Created[0].UsesLeft != 50 {
				t.Errorf("Create() = %+v, stored %+v", p, storage.Created)
			}
		})
	}
}
