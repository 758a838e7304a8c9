package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

type Client struct {
	api     *tgbotapi.BotAPI
	logger  *slog.Logger
	limiter *rate.Limiter
	updates <-chan tgbotapi.Update
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewClient(token string, logger *slog.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("создание telegram бота: %w", err)
	}

	// Rate limiting - 30 сообщений в секунду
	limiter := rate.NewLimiter(30, 1)

	return &Client{
		api:     bot,
		logger:  logger,
		limiter: limiter,
		ctx:     context.Background(),
	}, nil
}

// Start начинает получение обновлений (long polling)
func (c *Client) Start(ctx context.Context) error {
	c.ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query", "pre_checkout_query"}

	c.updates = c.api.GetUpdatesChan(u)

	c.logger.Info("Telegram бот запущен", "username", c.api.Self.UserName)
	return nil
}

// Stop останавливает получение обновлений
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.api.StopReceivingUpdates()
	c.logger.Info("Telegram бот остановлен")
}

// GetUpdates возвращает канал с обновлениями
func (c *Client) GetUpdates() <-chan tgbotapi.Update {
	return c.updates
}

func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Send отправляет любое сообщение с rate limiting
func (c *Client) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	if err := c.limiter.Wait(c.ctx); err != nil {
		return tgbotapi.Message{}, fmt.Errorf("rate limiting: %w", err)
	}

	message, err := c.api.Send(chattable)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("отправка: %w", err)
	}

	return message, nil
}

// Request отправляет запрос к API без ожидания сообщения в ответ
func (c *Client) Request(chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if err := c.limiter.Wait(c.ctx); err != nil {
		return nil, fmt.Errorf("rate limiting: %w", err)
	}

	resp, err := c.api.Request(chattable)
	if err != nil {
		return nil, fmt.Errorf("запрос к API: %w", err)
	}

	return resp, nil
}

// SendHTML отправляет текст в HTML-разметке.
func (c *Client) SendHTML(ctx context.Context, chatID int64, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("отправка сообщения: %w", err)
	}
	return nil
}

// SendToTopic отправляет HTML-сообщение в тему форума. threadID 0 пишет в общий чат.
func (c *Client) SendToTopic(ctx context.Context, chatID, threadID int64, text string) error {
	if threadID == 0 {
		return c.SendHTML(ctx, chatID, text)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	params := tgbotapi.Params{
		"chat_id":           strconv.FormatInt(chatID, 10),
		"message_thread_id": strconv.FormatInt(threadID, 10),
		"text":              text,
		"parse_mode":        tgbotapi.ModeHTML,
	}
	if _, err := c.api.MakeRequest("sendMessage", params); err != nil {
		return fmt.Errorf("отправка в тему %d: %w", threadID, err)
	}
	return nil
}

// CreateForumTopic создаёт тему в группе-форуме и возвращает её message_thread_id.
func (c *Client) CreateForumTopic(ctx context.Context, chatID int64, name string) (int64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limiting: %w", err)
	}

	resp, err := c.api.MakeRequest("createForumTopic", tgbotapi.Params{
		"chat_id": strconv.FormatInt(chatID, 10),
		"name":    name,
	})
	if err != nil {
		return 0, fmt.Errorf("создание темы: %w", err)
	}

	var topic struct {
		MessageThreadID int64 `json:"message_thread_id"`
	}
	if err := json.Unmarshal(resp.Result, &topic); err != nil {
		return 0, fmt.Errorf("разбор ответа createForumTopic: %w", err)
	}
	return topic.MessageThreadID, nil
}

// VideoUpload видео с диска; размеры кадра передаются, чтобы клиенты не растягивали превью.
type VideoUpload struct {
	Path    string
	Width   int
	Height  int
	Caption string
}

// SendVideo загружает видео файлом. VideoConfig в v5.5.1 не умеет width/height,
// поэтому запрос собирается вручную.
func (c *Client) SendVideo(ctx context.Context, chatID int64, video VideoUpload) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	params := tgbotapi.Params{
		"chat_id":            strconv.FormatInt(chatID, 10),
		"supports_streaming": "true",
	}
	params.AddNonEmpty("caption", video.Caption)
	if video.Caption != "" {
		params["parse_mode"] = tgbotapi.ModeHTML
	}
	params.AddNonZero("width", video.Width)
	params.AddNonZero("height", video.Height)

	files := []tgbotapi.RequestFile{{Name: "video", Data: tgbotapi.FilePath(video.Path)}}
	if _, err := c.api.UploadFiles("sendVideo", params, files); err != nil {
		return fmt.Errorf("отправка видео: %w", err)
	}
	return nil
}

func (c *Client) SendAudio(ctx context.Context, chatID int64, path, caption string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	audio := tgbotapi.NewAudio(chatID, tgbotapi.FilePath(path))
	audio.Caption = caption
	audio.ParseMode = tgbotapi.ModeHTML

	if _, err := c.api.Send(audio); err != nil {
		return fmt.Errorf("отправка аудио: %w", err)
	}
	return nil
}

// StarsInvoice счёт в Telegram Stars. Для XTR provider_token пустой.
type StarsInvoice struct {
	Title       string
	Description string
	Payload     string
	Label       string
	Amount      int
}

func (c *Client) SendStarsInvoice(ctx context.Context, chatID int64, inv StarsInvoice) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	invoice := tgbotapi.NewInvoice(chatID, inv.Title, inv.Description, inv.Payload, "", "", "XTR",
		[]tgbotapi.LabeledPrice{{Label: inv.Label, Amount: inv.Amount}})
	// nil сериализуется в null, и Telegram отклоняет счёт
	invoice.SuggestedTipAmounts = []int{}

	if _, err := c.api.Send(invoice); err != nil {
		return fmt.Errorf("отправка счёта: %w", err)
	}
	return nil
}

// AnswerPreCheckout подтверждает или отклоняет списание.
func (c *Client) AnswerPreCheckout(ctx context.Context, queryID string, ok bool, errorMessage string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiting: %w", err)
	}

	_, err := c.api.Request(tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 ok,
		ErrorMessage:       errorMessage,
	})
	if err != nil {
		return fmt.Errorf("ответ pre_checkout: %w", err)
	}
	return nil
}

// GetChatMemberStatus возвращает статус пользователя в канале.
// Если chatID не задан, канал ищется по публичному @username.
func (c *Client) GetChatMemberStatus(ctx context.Context, chatID int64, username string, userID int64) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiting: %w", err)
	}

	member, err := c.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID:             chatID,
			SuperGroupUsername: username,
			UserID:             userID,
		},
	})
	if err != nil {
		return "", fmt.Errorf("getChatMember: %w", err)
	}
	return member.Status, nil
}

// GetBotAPI возвращает внутренний BotAPI объект
func (c *Client) GetBotAPI() *tgbotapi.BotAPI {
	return c.api
}
