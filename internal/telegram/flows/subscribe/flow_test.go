package subscribe

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/tariffs"
)

func newTestHandler(fiat bool) (*Handler, *MockBotApi, *MockInvoices, *MockPayments) {
	bot := &MockBotApi{}
	inv := &MockInvoices{}
	pay := &MockPayments{Fiat: fiat}
	ts := &MockTariffs{List: []*tariffs.Tariff{
		{ID: 1, Name: "Месяц", PriceStars: 150, PriceFiat: 199, DurationDays: 30, IsActive: true},
		{ID: 2, Name: "Год", PriceStars: 1200, DurationDays: 365, IsActive: true},
	}}
	h := NewHandler(bot, inv, ts, pay, echoL10n{}, 500<<20, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h, bot, inv, pay
}

func callback(data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    &tgbotapi.User{ID: 42},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 42}},
		Data:    data,
	}
}

func TestStartListsTariffs(t *testing.T) {
	h, bot, _, _ := newTestHandler(false)

	if err := h.Start(context.Background(), 42, "ru"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(bot.SentMessages) != 1 {
		t.Fatalf("sent %d messages, want 1", len(bot.SentMessages))
	}
	msg := bot.SentMessages[0].(tgbotapi.MessageConfig)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if len(kb.InlineKeyboard) != 2 {
		t.Fatalf("keyboard rows = %d, want 2", len(kb.InlineKeyboard))
	}
	if got := *kb.InlineKeyboard[1][0].CallbackData; got != "sub_t:2" {
		t.Errorf("second button = %q, want %q", got, "sub_t:2")
	}
}

func TestMethodsHideCardWhenDisabled(t *testing.T) {
	tests := []struct {
		name     string
		fiat     bool
		callback string
		wantRows int
	}{
		{"fiat disabled", false, "sub_t:1", 1},
		{"fiat enabled", true, "sub_t:1", 2},
		{"no fiat price", true, "sub_t:2", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, bot, _, _ := newTestHandler(tt.fiat)
			if err := h.HandleCallback(context.Background(), callback(tt.callback), "ru"); err != nil {
				t.Fatalf("HandleCallback() error = %v", err)
			}
			msg := bot.SentMessages[len(bot.SentMessages)-1].(tgbotapi.MessageConfig)
			kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
			if len(kb.InlineKeyboard) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(kb.InlineKeyboard), tt.wantRows)
			}
		})
	}
}

func TestStarsInvoice(t *testing.T) {
	h, _, inv, _ := newTestHandler(false)

	if err := h.HandleCallback(context.Background(), callback("sub_s:1"), "ru"); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if len(inv.Invoices) != 1 {
		t.Fatalf("invoices = %d, want 1", len(inv.Invoices))
	}
	got := inv.Invoices[0]
	if got.Amount != 150 {
		t.Errorf("Amount = %d, want 150", got.Amount)
	}
	if !strings.HasPrefix(got.Payload, "subscribe_1_42_") {
		t.Errorf("Payload = %q, want prefix subscribe_1_42_", got.Payload)
	}
}

func TestCardLink(t *testing.T) {
	h, bot, _, pay := newTestHandler(true)

	if err := h.HandleCallback(context.Background(), callback("sub_c:1"), "ru"); err != nil {
		t.Fatalf("HandleCallback() error = %v", err)
	}
	if len(pay.FiatRequested) != 1 || pay.FiatRequested[0] != 1 {
		t.Fatalf("FiatRequested = %v, want [1]", pay.FiatRequested)
	}
	msg := bot.SentMessages[0].(tgbotapi.MessageConfig)
	kb := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if got := *kb.InlineKeyboard[0][0].URL; got != "https://pay.example/x" {
		t.Errorf("button url = %q", got)
	}
}

func TestUnknownTariff(t *testing.T) {
	h, bot, _, _ := newTestHandler(false)

	err := h.HandleCallback(context.Background(), callback("sub_t:99"), "ru")
	if !errors.Is(err, tariffs.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if len(bot.SentMessages) != 1 {
		t.Errorf("user should get an error message")
	}
}

func TestPreCheckout(t *testing.T) {
	tests := []struct {
		name   string
		result error
		want   bool
	}{
		{"valid", nil, true},
		{"rejected", errors.New("amount mismatch"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, inv, pay := newTestHandler(false)
			pay.PreCheckout = tt.result

			q := &tgbotapi.PreCheckoutQuery{ID: "pc", From: &tgbotapi.User{ID: 42}, Currency: "XTR", TotalAmount: 150}
			if err := h.HandlePreCheckout(context.Background(), q, "ru"); err != nil {
				t.Fatalf("HandlePreCheckout() error = %v", err)
			}
			if len(inv.Answers) != 1 || inv.Answers[0] != tt.want {
				t.Errorf("answers = %v, want [%v]", inv.Answers, tt.want)
			}
		})
	}
}

func TestSuccessfulPayment(t *testing.T) {
	h, _, _, pay := newTestHandler(false)

	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: 42},
		Chat: &tgbotapi.Chat{ID: 42},
		SuccessfulPayment: &tgbotapi.SuccessfulPayment{
			Currency:                "XTR",
			TotalAmount:             150,
			InvoicePayload:          "subscribe_1_42_n0nce",
			TelegramPaymentChargeID: "charge-1",
		},
	}
	if err := h.HandleSuccessfulPayment(context.Background(), msg, "ru"); err != nil {
		t.Fatalf("HandleSuccessfulPayment() error = %v", err)
	}
	if len(pay.Activated) != 1 || pay.Activated[0] != "charge-1" {
		t.Errorf("Activated = %v, want [charge-1]", pay.Activated)
	}
}

func TestIsCallback(t *testing.T) {
	tests := map[string]bool{
		"subscribe": true,
		"sub_t:1":   true,
		"sub_c:3":   true,
		"dl:a:b":    false,
		"promo":     false,
	}
	for data, want := range tests {
		if got := IsCallback(data); got != want {
			t.Errorf("IsCallback(%q) = %v, want %v", data, got, want)
		}
	}
}
