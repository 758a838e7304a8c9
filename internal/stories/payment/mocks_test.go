package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	yoopayment "github.com/rvinnie/yookassa-sdk-go/yookassa/payment"

	"grabber-bot/internal/stories/tariffs"
)

var testExpireAt = time.Date(2025, 4, 9, 12, 0, 0, 0, time.UTC)

// MockStorage хранит платежи в памяти и повторяет контракт ActivatePayment:
// повторный payment_id даёт ErrDuplicate.
type MockStorage struct {
	mu          sync.Mutex
	Processed   map[string]bool
	Pending     map[string]*PendingPayment
	Activations []Activation
	ActivateErr error
}

func NewMockStorage(pending ...*PendingPayment) *MockStorage {
	m := &MockStorage{Processed: map[string]bool{}, Pending: map[string]*PendingPayment{}}
	for _, p := range pending {
		m.Pending[p.PaymentID] = p
	}
	return m
}

func (m *MockStorage) ActivatePayment(_ context.Context, a Activation) (*ActivationResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ActivateErr != nil {
		return nil, m.ActivateErr
	}
	if m.Processed[a.PaymentID] {
		return nil, ErrDuplicate
	}
	m.Processed[a.PaymentID] = true
	m.Activations = append(m.Activations, a)
	return &ActivationResult{Applied: true, ExpireAt: testExpireAt, DurationDays: 30, TariffName: "Месяц"}, nil
}

func (m *MockStorage) CreatePendingPayment(_ context.Context, p PendingPayment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pending[p.PaymentID] = &p
	return nil
}

func (m *MockStorage) GetPendingPayment(_ context.Context, id string) (*PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Pending[id]
	if !ok {
		return nil, fmt.Errorf("pending payment %s not found", id)
	}
	return p, nil
}

func (m *MockStorage) ListPendingPayments(_ context.Context, c PendingCriteria) ([]*PendingPayment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*PendingPayment
	for _, p := range m.Pending {
		if c.Status != nil && p.Status != *c.Status {
			continue
		}
		if c.CreatedBefore != nil && !p.CreatedAt.Before(*c.CreatedBefore) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *MockStorage) UpdatePendingStatus(_ context.Context, id string, status PendingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Pending[id]
	if !ok {
		return fmt.Errorf("pending payment %s not found", id)
	}
	p.Status = status
	return nil
}

func (m *MockStorage) status(id string) PendingStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.Pending[id]; ok {
		return p.Status
	}
	return ""
}

func (m *MockStorage) activations() []Activation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Activation(nil), m.Activations...)
}

type MockTariffs struct {
	List []*tariffs.Tariff
}

func (m *MockTariffs) GetTariff(_ context.Context, id int64) (*tariffs.Tariff, error) {
	for _, t := range m.List {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, tariffs.ErrNotFound
}

// MockYooKassa отдаёт заранее заданные платежи по id.
type MockYooKassa struct {
	Payments map[string]*yoopayment.Payment
	Created  []map[string]string
	Amounts  []float64
}

func (m *MockYooKassa) CreatePayment(_ context.Context, amount float64, _ string, metadata map[string]string) (*yoopayment.Payment, error) {
	m.Created = append(m.Created, metadata)
	m.Amounts = append(m.Amounts, amount)
	return &yoopayment.Payment{
		ID:           "pay-new",
		Status:       yoopayment.Pending,
		Confirmation: &yoopayment.Redirect{ConfirmationURL: "https://yoomoney.ru/checkout/pay-new"},
	}, nil
}

func (m *MockYooKassa) GetPaymentStatus(_ context.Context, id string) (*yoopayment.Payment, error) {
	p, ok := m.Payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", id)
	}
	return p, nil
}

func remotePayment(id string, status yoopayment.Status, userID, tariffID string) *yoopayment.Payment {
	return &yoopayment.Payment{
		ID:       id,
		Status:   status,
		Metadata: map[string]interface{}{"user_id": userID, "tariff_id": tariffID},
	}
}

// MockNotifier складывает уведомления в канал: Service шлёт их из горутины.
type MockNotifier struct {
	Activated chan Activation
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Activated: make(chan Activation, 16)}
}

func (m *MockNotifier) PaymentActivated(_ context.Context, a Activation, _ ActivationResult) {
	m.Activated <- a
}
