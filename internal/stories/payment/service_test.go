package payment

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	yoopayment "github.com/rvinnie/yookassa-sdk-go/yookassa/payment"

	"grabber-bot/internal/stories/tariffs"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(storage *MockStorage, yk YooKassaClient, notifier *MockNotifier) *Service {
	tariffList := &MockTariffs{List: []*tariffs.Tariff{
		{ID: 1, Name: "Месяц", PriceFiat: 199, PriceStars: 100, DurationDays: 30, IsActive: true},
		{ID: 2, Name: "Архив", PriceFiat: 0, PriceStars: 50, DurationDays: 7, IsActive: false},
	}}
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	s := NewService(storage, tariffList, yk, n, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.now = func() time.Time { return testNow }
	return s
}

func waitNotified(t *testing.T, n *MockNotifier) Activation {
	t.Helper()
	select {
	case a := <-n.Activated:
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("activation was not notified")
		return Activation{}
	}
}

func TestHandleWebhook(t *testing.T) {
	tests := []struct {
		name       string
		event      WebhookEvent
		remote     *yoopayment.Payment
		wantErr    error
		wantUser   int64
		wantStatus PendingStatus
	}{
		{
			name:       "succeeded",
			event:      WebhookEvent{PaymentID: "p1", Status: "succeeded", UserID: 7, TariffID: 1},
			remote:     remotePayment("p1", yoopayment.Succeeded, "7", "1"),
			wantUser:   7,
			wantStatus: PendingStatusSucceeded,
		},
		{
			name:       "metadata from yookassa wins over body",
			event:      WebhookEvent{PaymentID: "p1", Status: "succeeded", UserID: 999, TariffID: 5},
			remote:     remotePayment("p1", yoopayment.Succeeded, "7", "1"),
			wantUser:   7,
			wantStatus: PendingStatusSucceeded,
		},
		{
			name:       "waiting for capture is ignored",
			event:      WebhookEvent{PaymentID: "p1", Status: "waiting_for_capture", UserID: 7, TariffID: 1},
			remote:     remotePayment("p1", yoopayment.WaitingForCapture, "7", "1"),
			wantStatus: PendingStatusPending,
		},
		{
			name:       "canceled",
			event:      WebhookEvent{PaymentID: "p1", Status: "canceled", UserID: 7, TariffID: 1},
			remote:     remotePayment("p1", yoopayment.Canceled, "7", "1"),
			wantStatus: PendingStatusCanceled,
		},
		{
			name:       "unverified success",
			event:      WebhookEvent{PaymentID: "p1", Status: "succeeded", UserID: 7, TariffID: 1},
			remote:     remotePayment("p1", yoopayment.Pending, "7", "1"),
			wantStatus: PendingStatusPending,
		},
		{
			name:       "no metadata anywhere",
			event:      WebhookEvent{PaymentID: "p1", Status: "succeeded"},
			remote:     &yoopayment.Payment{ID: "p1", Status: yoopayment.Succeeded},
			wantErr:    ErrBadPayload,
			wantStatus: PendingStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := NewMockStorage(&PendingPayment{PaymentID: "p1", UserID: 7, TariffID: 1, Status: PendingStatusPending})
			yk := &MockYooKassa{Payments: map[string]*yoopayment.Payment{"p1": tt.remote}}
			notifier := NewMockNotifier()
			s := newTestService(storage, yk, notifier)

			result, err := s.HandleWebhook(context.Background(), tt.event)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("HandleWebhook() error = %v, want %v", err, tt.wantErr)
			}
			if got := storage.status("p1"); got != tt.wantStatus {
				t.Errorf("pending status = %q, want %q", got, tt.wantStatus)
			}

			activations := storage.activations()
			if tt.wantUser == 0 {
				if len(activations) != 0 {
					t.Errorf("activations = %+v, want none", activations)
				}
				if result != nil && result.Applied {
					t.Errorf("result.Applied = true, want false")
				}
				return
			}

			if len(activations) != 1 {
				t.Fatalf("activations = %d, want 1", len(activations))
			}
			a := activations[0]
			if a.UserID != tt.wantUser || a.TariffID != 1 || a.Provider != ProviderYooKassa {
				t.Errorf("activation = %+v, want user %d tariff 1 yookassa", a, tt.wantUser)
			}
			if !result.Applied || !result.ExpireAt.Equal(testExpireAt) {
				t.Errorf("result = %+v, want applied until %v", result, testExpireAt)
			}
			if got := waitNotified(t, notifier); got.PaymentID != "p1" {
				t.Errorf("notified payment = %q, want p1", got.PaymentID)
			}
		})
	}
}

func TestHandleWebhookDuplicate(t *testing.T) {
	storage := NewMockStorage(&PendingPayment{PaymentID: "p1", UserID: 7, TariffID: 1, Status: PendingStatusPending})
	yk := &MockYooKassa{Payments: map[string]*yoopayment.Payment{"p1": remotePayment("p1", yoopayment.Succeeded, "7", "1")}}
	notifier := NewMockNotifier()
	s := newTestService(storage, yk, notifier)
	ctx := context.Background()
	event := WebhookEvent{PaymentID: "p1", Status: "succeeded", UserID: 7, TariffID: 1}

	first, err := s.HandleWebhook(ctx, event)
	if err != nil || !first.Applied {
		t.Fatalf("first HandleWebhook() = %+v, %v, want applied", first, err)
	}
	waitNotified(t, notifier)

	second, err := s.HandleWebhook(ctx, event)
	if err != nil {
		t.Fatalf("second HandleWebhook() error = %v", err)
	}
	if second.Applied {
		t.Errorf("second HandleWebhook() applied again")
	}
	if n := len(storage.activations()); n != 1 {
		t.Errorf("activations = %d, want 1", n)
	}
	select {
	case a := <-notifier.Activated:
		t.Errorf("duplicate was notified: %+v", a)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHandleWebhookStorageFailure(t *testing.T) {
	storage := NewMockStorage(&PendingPayment{PaymentID: "p1", UserID: 7, TariffID: 1, Status: PendingStatusPending})
	storage.ActivateErr = errors.New("database is locked")
	yk := &MockYooKassa{Payments: map[string]*yoopayment.Payment{"p1": remotePayment("p1", yoopayment.Succeeded, "7", "1")}}
	s := newTestService(storage, yk, nil)

	_, err := s.HandleWebhook(context.Background(), WebhookEvent{PaymentID: "p1", Status: "succeeded", UserID: 7, TariffID: 1})
	if err == nil {
		t.Fatal("HandleWebhook() error = nil, want storage failure")
	}
	// Ожидающий платёж остаётся для повторной проверки.
	if got := storage.status("p1"); got != PendingStatusPending {
		t.Errorf("pending status = %q, want pending", got)
	}
}

func TestStarsPayload(t *testing.T) {
	s := newTestService(NewMockStorage(), nil, nil)
	payload := s.NewStarsPayload(7, 1)

	got, err := ParseStarsPayload(payload.String())
	if err != nil {
		t.Fatalf("ParseStarsPayload(%q) error = %v", payload.String(), err)
	}
	if got != payload {
		t.Errorf("ParseStarsPayload(%q) = %+v, want %+v", payload.String(), got, payload)
	}

	for _, raw := range []string{
		"",
		"subscribe_1_7",
		"subscribe_1_7_",
		"buy_1_7_nonce",
		"subscribe_x_7_nonce",
		"subscribe_1_x_nonce",
	} {
		if _, err := ParseStarsPayload(raw); !errors.Is(err, ErrBadPayload) {
			t.Errorf("ParseStarsPayload(%q) error = %v, want ErrBadPayload", raw, err)
		}
	}
}

func TestValidatePreCheckout(t *testing.T) {
	tests := []struct {
		name     string
		payer    int64
		payload  string
		currency string
		amount   int
		wantErr  bool
		target   error
	}{
		{name: "ok", payer: 7, payload: "subscribe_1_7_abc", currency: "XTR", amount: 100},
		{name: "another payer", payer: 8, payload: "subscribe_1_7_abc", currency: "XTR", amount: 100, wantErr: true, target: ErrWrongPayer},
		{name: "malformed", payer: 7, payload: "subscribe_1", currency: "XTR", amount: 100, wantErr: true, target: ErrBadPayload},
		{name: "currency", payer: 7, payload: "subscribe_1_7_abc", currency: "RUB", amount: 100, wantErr: true},
		{name: "amount", payer: 7, payload: "subscribe_1_7_abc", currency: "XTR", amount: 1, wantErr: true},
		{name: "inactive tariff", payer: 7, payload: "subscribe_2_7_abc", currency: "XTR", amount: 50, wantErr: true, target: tariffs.ErrNotFound},
		{name: "unknown tariff", payer: 7, payload: "subscribe_9_7_abc", currency: "XTR", amount: 100, wantErr: true, target: tariffs.ErrNotFound},
	}

	s := newTestService(NewMockStorage(), nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidatePreCheckout(context.Background(), tt.payer, tt.payload, tt.currency, tt.amount)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidatePreCheckout() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("ValidatePreCheckout() error = %v, want %v", err, tt.target)
			}
		})
	}
}

func TestActivateStars(t *testing.T) {
	storage := NewMockStorage()
	notifier := NewMockNotifier()
	s := newTestService(storage, nil, notifier)
	ctx := context.Background()

	if _, err := s.ActivateStars(ctx, 8, "subscribe_1_7_abc", "charge-1"); !errors.Is(err, ErrWrongPayer) {
		t.Errorf("ActivateStars(another payer) error = %v, want ErrWrongPayer", err)
	}

	result, err := s.ActivateStars(ctx, 7, "subscribe_1_7_abc", "charge-1")
	if err != nil || !result.Applied {
		t.Fatalf("ActivateStars() = %+v, %v, want applied", result, err)
	}
	a := waitNotified(t, notifier)
	if a.PaymentID != "charge-1" || a.Provider != ProviderStars || a.UserID != 7 || a.TariffID != 1 {
		t.Errorf("activation = %+v", a)
	}

	again, err := s.ActivateStars(ctx, 7, "subscribe_1_7_abc", "charge-1")
	if err != nil || again.Applied {
		t.Errorf("repeated ActivateStars() = %+v, %v, want not applied", again, err)
	}
}

func TestCreateFiatPayment(t *testing.T) {
	storage := NewMockStorage()
	yk := &MockYooKassa{}
	s := newTestService(storage, yk, nil)

	invoice, err := s.CreateFiatPayment(context.Background(), 7, 1)
	if err != nil {
		t.Fatalf("CreateFiatPayment() error = %v", err)
	}
	if invoice.PaymentID != "pay-new" || invoice.ConfirmationURL != "https://yoomoney.ru/checkout/pay-new" {
		t.Errorf("invoice = %+v", invoice)
	}
	if len(yk.Created) != 1 || yk.Created[0]["user_id"] != "7" || yk.Created[0]["tariff_id"] != "1" || yk.Amounts[0] != 199 {
		t.Errorf("yookassa request = %v %v", yk.Created, yk.Amounts)
	}

	pending, err := storage.GetPendingPayment(context.Background(), "pay-new")
	if err != nil {
		t.Fatalf("GetPendingPayment() error = %v", err)
	}
	if pending.Status != PendingStatusPending || pending.UserID != 7 || !pending.CreatedAt.Equal(testNow) {
		t.Errorf("pending = %+v", pending)
	}

	if _, err := s.CreateFiatPayment(context.Background(), 7, 2); err == nil {
		t.Errorf("CreateFiatPayment(no fiat price) error = nil")
	}
	if _, err := newTestService(NewMockStorage(), nil, nil).CreateFiatPayment(context.Background(), 7, 1); err == nil {
		t.Errorf("CreateFiatPayment(disabled) error = nil")
	}
}

func TestCheckPending(t *testing.T) {
	old := testNow.Add(-2 * time.Hour)
	storage := NewMockStorage(
		&PendingPayment{PaymentID: "paid", UserID: 7, TariffID: 1, Status: PendingStatusPending, CreatedAt: old},
		&PendingPayment{PaymentID: "dropped", UserID: 8, TariffID: 1, Status: PendingStatusPending, CreatedAt: old},
		&PendingPayment{PaymentID: "waiting", UserID: 9, TariffID: 1, Status: PendingStatusPending, CreatedAt: old},
		&PendingPayment{PaymentID: "lost", UserID: 10, TariffID: 1, Status: PendingStatusPending, CreatedAt: old},
		&PendingPayment{PaymentID: "fresh", UserID: 11, TariffID: 1, Status: PendingStatusPending, CreatedAt: testNow.Add(-time.Minute)},
	)
	yk := &MockYooKassa{Payments: map[string]*yoopayment.Payment{
		"paid":    remotePayment("paid", yoopayment.Succeeded, "7", "1"),
		"dropped": remotePayment("dropped", yoopayment.Canceled, "8", "1"),
		"waiting": remotePayment("waiting", yoopayment.WaitingForCapture, "9", "1"),
		"fresh":   remotePayment("fresh", yoopayment.Succeeded, "11", "1"),
	}}
	s := newTestService(storage, yk, nil)

	activated, err := s.CheckPending(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("CheckPending() error = %v", err)
	}
	if activated != 1 {
		t.Errorf("CheckPending() = %d, want 1", activated)
	}

	want := map[string]PendingStatus{
		"paid":    PendingStatusSucceeded,
		"dropped": PendingStatusCanceled,
		"waiting": PendingStatusPending,
		"lost":    PendingStatusPending,
		"fresh":   PendingStatusPending,
	}
	for id, status := range want {
		if got := storage.status(id); got != status {
			t.Errorf("status(%s) = %q, want %q", id, got, status)
		}
	}
	if a := storage.activations(); len(a) != 1 || a[0].UserID != 7 {
		t.Errorf("activations = %+v, want user 7 only", a)
	}

	// Повторный прогон ничего не активирует.
	if again, _ := s.CheckPending(context.Background(), 30*time.Minute); again != 0 {
		t.Errorf("second CheckPending() = %d, want 0", again)
	}
}
