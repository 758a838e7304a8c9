package subscribe

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	tgclient "grabber-bot/internal/infra/telegram"
	"grabber-bot/internal/stories/payment"
	"grabber-bot/internal/stories/tariffs"
)

type (
	botApi interface {
		Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
		Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	}

	invoiceSender interface {
		SendStarsInvoice(ctx context.Context, chatID int64, inv tgclient.StarsInvoice) error
		AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage string) error
	}

	tariffService interface {
		ListActive(ctx context.Context) ([]*tariffs.Tariff, error)
		GetTariff(ctx context.Context, id int64) (*tariffs.Tariff, error)
	}

	paymentService interface {
		FiatEnabled() bool
		NewStarsPayload(userID, tariffID int64) payment.StarsPayload
		ValidatePreCheckout(ctx context.Context, payerID int64, payload, currency string, totalAmount int) error
		ActivateStars(ctx context.Context, payerID int64, payload, chargeID string) (*payment.ActivationResult, error)
		CreateFiatPayment(ctx context.Context, userID, tariffID int64) (*payment.Invoice, error)
	}

	localizer interface {
		Get(lang, key string, params map[string]interface{}) string
	}
)
