package telegram

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"grabber-bot/internal/stories/payment"
)

const maxWebhookBody = 64 << 10

type (
	webhookProcessor interface {
		HandleWebhook(ctx context.Context, event payment.WebhookEvent) (*payment.ActivationResult, error)
	}

	fileOpener interface {
		Open(name string) (*os.File, error)
	}
)

type WebConfig struct {
	WebhookTimeout time.Duration
	WebhookRPM     int
}

type webHandlers struct {
	payments webhookProcessor
	files    fileOpener
	logger   *slog.Logger
}

// NewWebRouter HTTP-вход бота: уведомления YooKassa и раздача больших файлов.
// files nil, если файлы отдаёт S3.
func NewWebRouter(payments webhookProcessor, files fileOpener, cfg WebConfig, logger *slog.Logger) http.Handler {
	h := &webHandlers{payments: payments, files: files, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.With(
		httprate.LimitByIP(cfg.WebhookRPM, time.Minute),
		middleware.Timeout(cfg.WebhookTimeout),
	).Post("/yookassa/webhook", h.yookassaWebhook)

	if files != nil {
		r.Get("/video/{name}", h.video)
	}
	return r
}

func (h *webHandlers) yookassaWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	event, err := ParseYooKassaEvent(body)
	if err != nil {
		h.logger.Warn("Malformed YooKassa webhook", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if _, err := h.payments.HandleWebhook(r.Context(), event); err != nil {
		if errors.Is(err, payment.ErrBadPayload) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		// 5xx: YooKassa повторит уведомление
		h.logger.Error("YooKassa webhook failed", "error", err, "payment_id", event.PaymentID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
	})
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(e.Bytes())
}

func (h *webHandlers) video(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	f, err := h.files.Open(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	http.ServeContent(w, r, name, st.ModTime(), f)
}

// ParseYooKassaEvent достаёт из уведомления object.id, object.status и metadata.
func ParseYooKassaEvent(body []byte) (payment.WebhookEvent, error) {
	var event payment.WebhookEvent

	err := jx.DecodeBytes(body).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "object" {
			return d.Skip()
		}
		return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
			switch string(key) {
			case "id":
				v, err := d.Str()
				event.PaymentID = v
				return err
			case "status":
				v, err := d.Str()
				event.Status = v
				return err
			case "metadata":
				return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					v, err := scalar(d)
					if err != nil {
						return err
					}
					switch string(key) {
					case "user_id":
						event.UserID, _ = strconv.ParseInt(v, 10, 64)
					case "tariff_id":
						event.TariffID, _ = strconv.ParseInt(v, 10, 64)
					}
					return nil
				})
			default:
				return d.Skip()
			}
		})
	})
	if err != nil {
		return event, errors.Wrap(err, "decode webhook")
	}
	if event.PaymentID == "" || event.Status == "" {
		return event, errors.New("webhook without object.id or object.status")
	}
	return event, nil
}

// scalar читает строку или число; прочие значения пропускаются.
func scalar(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		return d.Str()
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	default:
		return "", d.Skip()
	}
}
