package telegram

import (
	"context"
	"sync"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grabber-bot/internal/stories/downloads"
	"grabber-bot/internal/stories/users"
	"grabber-bot/internal/telegram/states"
)

type fakeBot struct {
	mu    sync.Mutex
	texts []string
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if m, ok := c.(tgbotapi.MessageConfig); ok {
		b.texts = append(b.texts, m.Text)
	}
	return tgbotapi.Message{MessageID: 1}, nil
}

func (b *fakeBot) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

type fakeUsers struct {
	registered []int64
}

func (u *fakeUsers) Register(_ context.Context, user users.User, _ *int64) (*users.User, error) {
	u.registered = append(u.registered, user.ID)
	return &user, nil
}

type fakeAdmins map[int64]bool

func (a fakeAdmins) IsAdmin(id int64) bool { return a[id] }

func (a fakeAdmins) AdminIDs() []int64 {
	ids := make([]int64, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	return ids
}

type fakeCoordinator struct {
	mu       sync.Mutex
	requests []downloads.Request
	choices  []downloads.Choice
}

func (c *fakeCoordinator) HandleURL(_ context.Context, req downloads.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
}

func (c *fakeCoordinator) HandleChoice(_ context.Context, choice downloads.Choice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.choices = append(c.choices, choice)
}

type keyL10n struct{}

func (keyL10n) Get(_, key string, _ map[string]interface{}) string { return key }

type nopReporter struct{}

func (nopReporter) Report(context.Context, error, ...any) {}

func newTestRouter() (*Router, *fakeBot, *fakeUsers, *fakeCoordinator) {
	bot := &fakeBot{}
	us := &fakeUsers{}
	coord := &fakeCoordinator{}
	r := NewRouter(bot, states.NewManager(), us, fakeAdmins{1: true}, NewLanguages(), coord, keyL10n{}, nopReporter{}, discardLogger(), Handlers{})
	return r, bot, us, coord
}

func privateMessage(userID int64, text string) *tgbotapi.Update {
	return &tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID, FirstName: "Anna", LanguageCode: "en"},
		Chat: &tgbotapi.Chat{ID: userID, Type: "private"},
		Text: text,
	}}
}

func TestRouteURLStartsDownload(t *testing.T) {
	r, _, us, coord := newTestRouter()

	err := r.Route(context.Background(), privateMessage(7, "look https://youtu.be/dQw4w9WgXcQ nice"))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(coord.requests) != 1 {
		t.Fatalf("HandleURL calls = %d, want 1", len(coord.requests))
	}
	want := downloads.Request{UserID: 7, ChatID: 7, URL: "https://youtu.be/dQw4w9WgXcQ"}
	if coord.requests[0] != want {
		t.Errorf("request = %+v, want %+v", coord.requests[0], want)
	}
	if len(us.registered) != 1 {
		t.Errorf("user should be registered on first message")
	}
	if got := r.langs.Get(7); got != "en" {
		t.Errorf("language = %q, want en", got)
	}
}

func TestRoutePlainTextSendsHelp(t *testing.T) {
	r, bot, _, coord := newTestRouter()

	if err := r.Route(context.Background(), privateMessage(7, "привет")); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(coord.requests) != 0 {
		t.Errorf("HandleURL should not be called")
	}
	if len(bot.texts) != 1 || bot.texts[0] != "common.help" {
		t.Errorf("texts = %v, want [common.help]", bot.texts)
	}
}

func TestRouteIgnoresGroups(t *testing.T) {
	r, bot, us, coord := newTestRouter()

	update := privateMessage(7, "https://youtu.be/dQw4w9WgXcQ")
	update.Message.Chat = &tgbotapi.Chat{ID: -100500, Type: "supergroup"}

	if err := r.Route(context.Background(), update); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(coord.requests)+len(bot.texts)+len(us.registered) != 0 {
		t.Errorf("group message should be ignored")
	}
}

func TestRouteAdminCommandFromUser(t *testing.T) {
	r, bot, _, _ := newTestRouter()

	update := privateMessage(7, "/stats")
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 6}}

	if err := r.Route(context.Background(), update); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(bot.texts) != 1 || bot.texts[0] != "common.help" {
		t.Errorf("non-admin /stats should get help, got %v", bot.texts)
	}
}

func TestRouteChoiceCallback(t *testing.T) {
	r, _, _, coord := newTestRouter()

	update := &tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: 7},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 7}},
		Data:    "dl:abc123:720",
	}}
	if err := r.Route(context.Background(), update); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	want := downloads.Choice{UserID: 7, ChatID: 7, SelectionID: "abc123", Choice: "720"}
	if len(coord.choices) != 1 || coord.choices[0] != want {
		t.Errorf("choices = %+v, want [%+v]", coord.choices, want)
	}
}

func TestRunRecoversPanics(t *testing.T) {
	r, _, _, _ := newTestRouter()

	updates := make(chan tgbotapi.Update, 1)
	// pre-checkout без обработчика подписки паникует на nil
	updates <- tgbotapi.Update{UpdateID: 1, PreCheckoutQuery: &tgbotapi.PreCheckoutQuery{From: &tgbotapi.User{ID: 7}}}
	close(updates)

	r.Run(context.Background(), updates)
	r.Wait()
}
