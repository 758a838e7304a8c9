package alerts

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/go-faster/errors"
)

const maxMessageLen = 4000

type Sender interface {
	SendHTML(ctx context.Context, chatID int64, text string) error
}

// Reporter отправляет критичные ошибки в чат администратора.
type Reporter struct {
	sender Sender
	chatID int64
	logger *slog.Logger
}

// NewReporter returns a reporter that only logs when chatID is zero.
func NewReporter(sender Sender, chatID int64, logger *slog.Logger) *Reporter {
	return &Reporter{sender: sender, chatID: chatID, logger: logger}
}

// Report logs err with attrs and forwards it with stack context to the admin chat.
func (r *Reporter) Report(ctx context.Context, err error, attrs ...any) {
	if err == nil {
		return
	}
	r.logger.Error("Reported error", append([]any{"error", err}, attrs...)...)

	if r.chatID == 0 || r.sender == nil {
		return
	}
	if sendErr := r.sender.SendHTML(ctx, r.chatID, Format(err, attrs...)); sendErr != nil {
		r.logger.Warn("Failed to send error report", "error", sendErr)
	}
}

// Recovered оборачивает значение из recover() в ошибку со стеком.
func Recovered(p any) error {
	if err, ok := p.(error); ok {
		return errors.Wrap(err, "panic")
	}
	return errors.Errorf("panic: %v", p)
}

// Format собирает текст отчёта: атрибуты и ошибку с фреймами.
func Format(err error, attrs ...any) string {
	var b strings.Builder
	b.WriteString("⚠️ <b>Ошибка</b>\n")
	for i := 0; i+1 < len(attrs); i += 2 {
		fmt.Fprintf(&b, "%v: <code>%s</code>\n", attrs[i], html.EscapeString(fmt.Sprint(attrs[i+1])))
	}

	details := fmt.Sprintf("%+v", err)
	budget := max(maxMessageLen-b.Len()-len("<pre></pre>"), 0)
	escaped := html.EscapeString(details)
	for len(escaped) > budget {
		details = strings.ToValidUTF8(details[:len(details)*9/10], "")
		escaped = html.EscapeString(details)
	}
	b.WriteString("<pre>" + escaped + "</pre>")
	return b.String()
}
