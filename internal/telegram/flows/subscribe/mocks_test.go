package subscribe

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	tgclient "grabber-bot/internal/infra/telegram"
	"grabber-bot/internal/stories/payment"
	"grabber-bot/internal/stories/tariffs"
)

// MockBotApi - мок Telegram Bot API
type MockBotApi struct {
	SentMessages []tgbotapi.Chattable
}

func (m *MockBotApi) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.SentMessages = append(m.SentMessages, c)
	return tgbotapi.Message{MessageID: len(m.SentMessages)}, nil
}

func (m *MockBotApi) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type MockInvoices struct {
	Invoices []tgclient.StarsInvoice
	Answers  []bool
}

func (m *MockInvoices) SendStarsInvoice(_ context.Context, _ int64, inv tgclient.StarsInvoice) error {
	m.Invoices = append(m.Invoices, inv)
	return nil
}

func (m *MockInvoices) AnswerPreCheckout(_ context.Context, _ string, ok bool, _ string) error {
	m.Answers = append(m.Answers, ok)
	return nil
}

type MockTariffs struct {
	List []*tariffs.Tariff
}

func (m *MockTariffs) ListActive(context.Context) ([]*tariffs.Tariff, error) {
	return m.List, nil
}

func (m *MockTariffs) GetTariff(_ context.Context, id int64) (*tariffs.Tariff, error) {
	for _, t := range m.List {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, tariffs.ErrNotFound
}

type MockPayments struct {
	Fiat          bool
	PreCheckout   error
	Activated     []string
	FiatRequested []int64
}

func (m *MockPayments) FiatEnabled() bool { return m.Fiat }

func (m *MockPayments) NewStarsPayload(userID, tariffID int64) payment.StarsPayload {
	return payment.StarsPayload{TariffID: tariffID, UserID: userID, Nonce: "n0nce"}
}

func (m *MockPayments) ValidatePreCheckout(context.Context, int64, string, string, int) error {
	return m.PreCheckout
}

func (m *MockPayments) ActivateStars(_ context.Context, _ int64, _ string, chargeID string) (*payment.ActivationResult, error) {
	m.Activated = append(m.Activated, chargeID)
	return &payment.ActivationResult{Applied: true}, nil
}

func (m *MockPayments) CreateFiatPayment(_ context.Context, _ int64, tariffID int64) (*payment.Invoice, error) {
	m.FiatRequested = append(m.FiatRequested, tariffID)
	return &payment.Invoice{PaymentID: fmt.Sprintf("p-%d", tariffID), ConfirmationURL: "https://pay.example/x"}, nil
}

type echoL10n struct{}

func (echoL10n) Get(_, key string, _ map[string]interface{}) string { return key }
