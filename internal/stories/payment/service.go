package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	yoopayment "github.com/rvinnie/yookassa-sdk-go/yookassa/payment"

	"grabber-bot/internal/metrics"
	"grabber-bot/internal/stories/tariffs"
)

// Service provides business logic for payment operations
type Service struct {
	storage        Storage
	tariffs        TariffProvider
	yookassaClient YooKassaClient
	notifier       Notifier
	reporter       ErrorReporter
	logger         *slog.Logger
	now            func() time.Time
}

// NewService creates a new payment service. yookassaClient may be nil: card payments are then disabled.
func NewService(
	storage Storage,
	tariffs TariffProvider,
	yookassaClient YooKassaClient,
	notifier Notifier,
	reporter ErrorReporter,
	logger *slog.Logger,
) *Service {
	return &Service{
		storage:        storage,
		tariffs:        tariffs,
		yookassaClient: yookassaClient,
		notifier:       notifier,
		reporter:       reporter,
		logger:         logger,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) FiatEnabled() bool {
	return s.yookassaClient != nil
}

// NewStarsPayload готовит payload инвойса в Stars для пользователя.
func (s *Service) NewStarsPayload(userID, tariffID int64) StarsPayload {
	return StarsPayload{TariffID: tariffID, UserID: userID, Nonce: uuid.NewString()[:8]}
}

// ValidatePreCheckout проверяет запрос перед списанием звёзд.
func (s *Service) ValidatePreCheckout(ctx context.Context, payerID int64, rawPayload, currency string, totalAmount int) error {
	payload, err := ParseStarsPayload(rawPayload)
	if err != nil {
		return err
	}
	if payload.UserID != payerID {
		return ErrWrongPayer
	}
	if currency != StarsCurrency {
		return fmt.Errorf("unexpected currency %q", currency)
	}

	tariff, err := s.tariffs.GetTariff(ctx, payload.TariffID)
	if err != nil {
		return fmt.Errorf("get tariff: %w", err)
	}
	if !tariff.IsActive {
		return tariffs.ErrNotFound
	}
	if tariff.PriceStars != totalAmount {
		return fmt.Errorf("amount mismatch: got %d, want %d", totalAmount, tariff.PriceStars)
	}
	return nil
}

// ActivateStars обрабатывает successful_payment от Telegram.
func (s *Service) ActivateStars(ctx context.Context, payerID int64, rawPayload, chargeID string) (*ActivationResult, error) {
	payload, err := ParseStarsPayload(rawPayload)
	if err != nil {
		return nil, err
	}
	if payload.UserID != payerID {
		return nil, ErrWrongPayer
	}

	return s.activate(ctx, Activation{
		PaymentID: chargeID,
		UserID:    payload.UserID,
		TariffID:  payload.TariffID,
		Provider:  ProviderStars,
	})
}

// WebhookEvent уведомление YooKassa, уже разобранное HTTP-слоем.
type WebhookEvent struct {
	PaymentID string
	Status    string
	UserID    int64
	TariffID  int64
}

// HandleWebhook активирует подписку по уведомлению YooKassa.
// Статусы кроме succeeded только обновляют ожидающий платёж.
func (s *Service) HandleWebhook(ctx context.Context, event WebhookEvent) (*ActivationResult, error) {
	s.logger.Info("YooKassa webhook received",
		"payment_id", event.PaymentID,
		"status", event.Status,
		"user_id", event.UserID,
	)

	if event.Status != string(yoopayment.Succeeded) {
		if event.Status == string(yoopayment.Canceled) {
			s.markPending(ctx, event.PaymentID, PendingStatusCanceled)
		}
		return &ActivationResult{}, nil
	}

	// Повторно запрашиваем платёж: тело вебхука не подписано.
	if s.yookassaClient != nil {
		remote, err := s.yookassaClient.GetPaymentStatus(ctx, event.PaymentID)
		if err != nil {
			return nil, fmt.Errorf("verify payment: %w", err)
		}
		if remote.Status != yoopayment.Succeeded {
			s.logger.Warn("Webhook status does not match YooKassa",
				"payment_id", event.PaymentID,
				"remote_status", remote.Status,
			)
			return &ActivationResult{}, nil
		}
		if userID, tariffID, ok := parseMetadata(remote); ok {
			event.UserID, event.TariffID = userID, tariffID
		}
	}

	if event.UserID <= 0 || event.TariffID <= 0 {
		return nil, fmt.Errorf("%w: metadata user_id=%d tariff_id=%d", ErrBadPayload, event.UserID, event.TariffID)
	}

	result, err := s.activate(ctx, Activation{
		PaymentID: event.PaymentID,
		UserID:    event.UserID,
		TariffID:  event.TariffID,
		Provider:  ProviderYooKassa,
	})
	if err != nil {
		return nil, err
	}
	s.markPending(ctx, event.PaymentID, PendingStatusSucceeded)
	return result, nil
}

// CreateFiatPayment создаёт платёж в YooKassa и запоминает его как ожидающий.
func (s *Service) CreateFiatPayment(ctx context.Context, userID, tariffID int64) (*Invoice, error) {
	if s.yookassaClient == nil {
		return nil, errors.New("card payments are disabled")
	}

	tariff, err := s.tariffs.GetTariff(ctx, tariffID)
	if err != nil {
		return nil, fmt.Errorf("get tariff: %w", err)
	}
	if tariff.PriceFiat <= 0 {
		return nil, fmt.Errorf("tariff %d has no fiat price", tariffID)
	}

	metadata := map[string]string{
		"user_id":   strconv.FormatInt(userID, 10),
		"tariff_id": strconv.FormatInt(tariffID, 10),
	}
	description := fmt.Sprintf("Подписка «%s» на %d дн.", tariff.Name, tariff.DurationDays)

	remote, err := s.yookassaClient.CreatePayment(ctx, tariff.PriceFiat, description, metadata)
	if err != nil {
		s.logger.Error("Failed to create payment in YooKassa", "error", err, "user_id", userID, "tariff_id", tariffID)
		return nil, fmt.Errorf("failed to create payment in YooKassa: %w", err)
	}

	confirmationURL := extractPaymentURL(remote)
	if confirmationURL == "" {
		return nil, fmt.Errorf("no confirmation url for payment %s", remote.ID)
	}

	now := s.now()
	err = s.storage.CreatePendingPayment(ctx, PendingPayment{
		PaymentID: remote.ID,
		UserID:    userID,
		TariffID:  tariffID,
		Status:    PendingStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store pending payment: %w", err)
	}

	s.logger.Info("Payment created in YooKassa", "payment_id", remote.ID, "user_id", userID, "tariff_id", tariffID)
	return &Invoice{PaymentID: remote.ID, ConfirmationURL: confirmationURL}, nil
}

// CheckPending опрашивает YooKassa по ожидающим платежам старше olderThan.
// Покрывает потерянные вебхуки; возвращает число активаций.
func (s *Service) CheckPending(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.yookassaClient == nil {
		return 0, nil
	}

	status := PendingStatusPending
	before := s.now().Add(-olderThan)
	pending, err := s.storage.ListPendingPayments(ctx, PendingCriteria{
		Status:        &status,
		CreatedBefore: &before,
		Limit:         100,
	})
	if err != nil {
		return 0, fmt.Errorf("list pending payments: %w", err)
	}

	activated := 0
	for _, p := range pending {
		remote, err := s.yookassaClient.GetPaymentStatus(ctx, p.PaymentID)
		if err != nil {
			s.logger.Warn("Failed to check pending payment", "error", err, "payment_id", p.PaymentID)
			continue
		}

		switch mapYooKassaStatus(remote.Status) {
		case PendingStatusSucceeded:
			result, err := s.activate(ctx, Activation{
				PaymentID: p.PaymentID,
				UserID:    p.UserID,
				TariffID:  p.TariffID,
				Provider:  ProviderYooKassa,
			})
			if err != nil {
				continue
			}
			if result.Applied {
				activated++
			}
			s.markPending(ctx, p.PaymentID, PendingStatusSucceeded)
		case PendingStatusCanceled:
			s.markPending(ctx, p.PaymentID, PendingStatusCanceled)
		}
	}

	return activated, nil
}

func (s *Service) activate(ctx context.Context, activation Activation) (*ActivationResult, error) {
	result, err := s.storage.ActivatePayment(ctx, activation)
	if errors.Is(err, ErrDuplicate) {
		s.logger.Info("Payment already processed",
			"payment_id", activation.PaymentID,
			"provider", activation.Provider,
		)
		return &ActivationResult{}, nil
	}
	if err != nil {
		s.logger.Error("Failed to activate payment",
			"error", err,
			"payment_id", activation.PaymentID,
			"user_id", activation.UserID,
			"tariff_id", activation.TariffID,
		)
		if s.reporter != nil {
			s.reporter.Report(ctx, err,
				"op", "payment activation",
				"payment_id", activation.PaymentID,
				"user_id", activation.UserID,
			)
		}
		return nil, fmt.Errorf("activate payment: %w", err)
	}

	metrics.PaymentsActivated.WithLabelValues(string(activation.Provider)).Inc()
	s.logger.Info("Payment activated",
		"payment_id", activation.PaymentID,
		"user_id", activation.UserID,
		"expire_at", result.ExpireAt,
	)

	// Уведомление не должно задерживать ответ провайдеру.
	if s.notifier != nil {
		go s.notifier.PaymentActivated(context.WithoutCancel(ctx), activation, *result)
	}
	return result, nil
}

func (s *Service) markPending(ctx context.Context, paymentID string, status PendingStatus) {
	if err := s.storage.UpdatePendingStatus(ctx, paymentID, status); err != nil {
		s.logger.Warn("Failed to update pending payment", "error", err, "payment_id", paymentID, "status", status)
	}
}

// extractPaymentURL извлекает URL для оплаты из YooKassa confirmation
func extractPaymentURL(payment *yoopayment.Payment) string {
	if payment.Confirmation == nil {
		return ""
	}

	if redirect, ok := payment.Confirmation.(*yoopayment.Redirect); ok {
		return redirect.ConfirmationURL
	}

	// SDK иногда возвращает map
	if confMap, ok := payment.Confirmation.(map[string]interface{}); ok {
		if url, exists := confMap["confirmation_url"].(string); exists {
			return url
		}
	}

	return ""
}

func parseMetadata(payment *yoopayment.Payment) (userID, tariffID int64, ok bool) {
	values := map[string]string{}
	switch m := any(payment.Metadata).(type) {
	case map[string]string:
		values = m
	case map[string]interface{}:
		for k, v := range m {
			values[k] = fmt.Sprint(v)
		}
	default:
		return 0, 0, false
	}

	userID, errUser := strconv.ParseInt(values["user_id"], 10, 64)
	tariffID, errTariff := strconv.ParseInt(values["tariff_id"], 10, 64)
	if errUser != nil || errTariff != nil {
		return 0, 0, false
	}
	return userID, tariffID, true
}

func mapYooKassaStatus(status yoopayment.Status) PendingStatus {
	switch status {
	case yoopayment.Succeeded:
		return PendingStatusSucceeded
	case yoopayment.Canceled:
		return PendingStatusCanceled
	default:
		return PendingStatusPending
	}
}
