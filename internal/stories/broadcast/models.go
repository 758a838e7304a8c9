package broadcast

import (
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Audience string

const (
	AudienceAll   Audience = "all"
	AudienceFree  Audience = "free"
	AudienceAds   Audience = "ads"
	AudienceNoSub Audience = "nosub"
)

type MediaKind string

const (
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

type Button struct {
	Label string
	URL   string
}

type Media struct {
	Kind   MediaKind
	FileID string
}

// Message содержимое рассылки: текст, фото или видео с подписью и кнопкой.
type Message struct {
	Text   string
	Button *Button
	Media  *Media
}

// ParseButton отделяет кнопку из последней строки вида "Текст | https://...".
func ParseButton(text string) (string, *Button) {
	text = strings.TrimRight(text, "\n ")
	idx := strings.LastIndex(text, "\n")
	last := text[idx+1:]

	label, url, ok := strings.Cut(last, "|")
	if !ok {
		return text, nil
	}
	label, url = strings.TrimSpace(label), strings.TrimSpace(url)
	if label == "" || !(strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "tg://")) {
		return text, nil
	}

	body := ""
	if idx >= 0 {
		body = strings.TrimRight(text[:idx], "\n ")
	}
	return body, &Button{Label: label, URL: url}
}

type ErrorKind string

const (
	ErrFloodWait       ErrorKind = "flood_wait"
	ErrBotBlocked      ErrorKind = "bot_blocked"
	ErrChatNotFound    ErrorKind = "chat_not_found"
	ErrUserDeactivated ErrorKind = "user_deactivated"
	ErrOther           ErrorKind = "other"
)

// Classify разбирает ошибку Bot API; для FloodWait возвращает паузу.
func Classify(err error) (ErrorKind, time.Duration) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return ErrOther, 0
	}

	msg := strings.ToLower(apiErr.Message)
	switch {
	case apiErr.Code == 429 || apiErr.RetryAfter > 0:
		return ErrFloodWait, time.Duration(apiErr.RetryAfter) * time.Second
	case strings.Contains(msg, "bot was blocked"):
		return ErrBotBlocked, 0
	case strings.Contains(msg, "user is deactivated"):
		return ErrUserDeactivated, 0
	case strings.Contains(msg, "chat not found"):
		return ErrChatNotFound, 0
	default:
		return ErrOther, 0
	}
}

type Progress struct {
	Total  int
	Sent   int
	Failed int
}

func (p Progress) Done() int {
	return p.Sent + p.Failed
}

type Report struct {
	Progress
	ByKind   map[ErrorKind]int
	Duration time.Duration
}

func (r Report) SentPercent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Sent) * 100 / float64(r.Total)
}
