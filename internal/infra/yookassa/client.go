package yookassa

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/rvinnie/yookassa-sdk-go/yookassa"
	yoocommon "github.com/rvinnie/yookassa-sdk-go/yookassa/common"
	yoopayment "github.com/rvinnie/yookassa-sdk-go/yookassa/payment"
)

const currencyRUB = "RUB"

// Client wraps the YooKassa SDK client
type Client struct {
	client    *yookassa.Client
	logger    *slog.Logger
	returnURL string
}

func NewClient(shopID, secretKey, returnURL string, logger *slog.Logger) *Client {
	return &Client{
		client:    yookassa.NewClient(shopID, secretKey),
		logger:    logger,
		returnURL: returnURL,
	}
}

// CreatePayment создаёт платёж с редиректом на страницу оплаты.
// metadata возвращается в уведомлении и при FindPayment.
func (c *Client) CreatePayment(ctx context.Context, amount float64, description string, metadata map[string]string) (*yoopayment.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	payment := &yoopayment.Payment{
		Amount: &yoocommon.Amount{
			Value:    fmt.Sprintf("%.2f", amount),
			Currency: currencyRUB,
		},
		Confirmation: &yoopayment.Redirect{
			Type:      yoopayment.TypeRedirect,
			ReturnURL: c.returnURL,
		},
		Description: description,
		Metadata:    metadata,
		Capture:     true,
	}

	handler := yookassa.NewPaymentHandler(c.client).WithIdempotencyKey(uuid.NewString())
	result, err := handler.CreatePayment(payment)
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	c.logger.Debug("YooKassa payment created", "payment_id", result.ID, "status", result.Status)
	return result, nil
}

// GetPaymentStatus запрашивает актуальное состояние платежа.
func (c *Client) GetPaymentStatus(ctx context.Context, paymentID string) (*yoopayment.Payment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := yookassa.NewPaymentHandler(c.client).FindPayment(paymentID)
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", paymentID, err)
	}
	return result, nil
}
