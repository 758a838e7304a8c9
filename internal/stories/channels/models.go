package channels

// FlagChannelGuard глобальный переключатель проверки подписки на каналы.
const FlagChannelGuard = "channel_guard"

type Channel struct {
	ID         int64
	Handle     string
	Title      string
	ChatID     *int64
	IsRequired bool
	Active     bool
}

// Effective канал входит в обязательный набор.
func (c Channel) Effective() bool {
	return c.Active && c.IsRequired
}

// Link ссылка для кнопки «подписаться».
func (c Channel) Link() string {
	if c.Handle == "" {
		return ""
	}
	if c.Handle[0] == '@' {
		return "https://t.me/" + c.Handle[1:]
	}
	return "https://t.me/" + c.Handle
}

type ListCriteria struct {
	OnlyEffective bool
}
