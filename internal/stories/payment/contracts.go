package payment

import (
	"context"

	yoopayment "github.com/rvinnie/yookassa-sdk-go/yookassa/payment"

	"grabber-bot/internal/stories/tariffs"
)

type (
	// Storage provides database operations for payments
	Storage interface {
		// ActivatePayment атомарно фиксирует payment_id и продлевает подписку.
		ActivatePayment(ctx context.Context, activation Activation) (*ActivationResult, error)
		CreatePendingPayment(ctx context.Context, pending PendingPayment) error
		GetPendingPayment(ctx context.Context, paymentID string) (*PendingPayment, error)
		ListPendingPayments(ctx context.Context, criteria PendingCriteria) ([]*PendingPayment, error)
		UpdatePendingStatus(ctx context.Context, paymentID string, status PendingStatus) error
	}

	TariffProvider interface {
		GetTariff(ctx context.Context, id int64) (*tariffs.Tariff, error)
	}

	// YooKassaClient provides YooKassa API operations
	YooKassaClient interface {
		CreatePayment(ctx context.Context, amount float64, description string, metadata map[string]string) (*yoopayment.Payment, error)
		GetPaymentStatus(ctx context.Context, paymentID string) (*yoopayment.Payment, error)
	}

	// Notifier сообщает пользователю и в группу поддержки об активации.
	Notifier interface {
		PaymentActivated(ctx context.Context, activation Activation, result ActivationResult)
	}

	ErrorReporter interface {
		Report(ctx context.Context, err error, attrs ...any)
	}
)
