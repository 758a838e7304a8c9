package promo

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/promo"
	"grabber-bot/internal/telegram/states"
)

type MockBotApi struct {
	Texts []string
}

func (m *MockBotApi) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		m.Texts = append(m.Texts, msg.Text)
	}
	return tgbotapi.Message{}, nil
}

func (m *MockBotApi) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type MockPromo struct {
	Codes map[string]int
	Got   []string
}

func (m *MockPromo) Activate(_ context.Context, _ int64, code string) (*promo.ActivationResult, error) {
	m.Got = append(m.Got, code)
	days, ok := m.Codes[promo.Normalize(code)]
	if !ok {
		return nil, promo.ErrInvalid
	}
	return &promo.ActivationResult{DurationDays: days, ExpireAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
}

type echoL10n struct{}

func (echoL10n) Get(_, key string, _ map[string]interface{}) string { return key }

func newTestHandler() (*Handler, *MockBotApi, *states.Manager, *MockPromo) {
	bot := &MockBotApi{}
	sm := states.NewManager()
	ps := &MockPromo{Codes: map[string]int{"SUMMER": 7}}
	return NewHandler(bot, sm, ps, echoL10n{}, slog.New(slog.NewTextHandler(io.Discard, nil))), bot, sm, ps
}

func TestPromoFlow(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid code", " summer ", "promo.activated"},
		{"unknown code", "WINTER", "promo.invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, bot, sm, _ := newTestHandler()

			if err := h.Start(42, 42, "ru"); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			if got := sm.GetState(42); got != states.UserPromoWaitCode {
				t.Fatalf("state = %q, want %q", got, states.UserPromoWaitCode)
			}

			update := &tgbotapi.Update{Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 42},
				Text: tt.input,
			}}
			if err := h.Handle(context.Background(), update); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := bot.Texts[len(bot.Texts)-1]; got != tt.want {
				t.Errorf("reply = %q, want %q", got, tt.want)
			}
			if got := sm.GetState(42); got != states.StateNone {
				t.Errorf("state after input = %q, want cleared", got)
			}
		})
	}
}

func TestActivateDirect(t *testing.T) {
	h, bot, _, ps := newTestHandler()

	if err := h.Activate(context.Background(), 42, 42, "SUMMER", "ru"); err != nil {
		t.Fatalf("Activate() error = %v", err)
	}
	if len(ps.Got) != 1 || ps.Got[0] != "SUMMER" {
		t.Errorf("service got %v, want [SUMMER]", ps.Got)
	}
	if bot.Texts[0] != "promo.activated" {
		t.Errorf("reply = %q", bot.Texts[0])
	}
}
