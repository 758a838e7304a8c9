package downloads

import (
	"time"

	"grabber-bot/internal/stories/platform"
)

// Record успешная доставка, фиксируемая одной транзакцией.
type Record struct {
	UserID   int64
	Platform platform.Platform
	URL      string
	At       time.Time
	// KeepLinks размер кольца последних ссылок.
	KeepLinks int
}

type Link struct {
	ID        int64
	UserID    int64
	URL       string
	CreatedAt time.Time
}

type Totals struct {
	Total      int
	ByPlatform map[platform.Platform]int
}
