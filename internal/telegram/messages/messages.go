package messages

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Общие
const (
	Error    = "❌ Ошибка. Пожалуйста, попробуйте позже."
	NoRights = "❌ Нет прав"
	Updated  = "✅ Обновлено"
)

// Кнопки
const (
	ButtonRefresh   = "🔄 Обновить"
	ButtonSubscribe = "💎 Подписка"
	ButtonPromo     = "🎟 Промокод"
	ButtonProfile   = "👤 Профиль"
	ButtonCancel    = "❌ Отменить"
)

// Админ: канал-гейт
const (
	GuardEnabled   = "🛡 Проверка подписки на каналы включена."
	GuardDisabled  = "🛡 Проверка подписки на каналы выключена."
	GuardUsage     = "Использование: /guard on|off"
	ChannelAsk     = "Пришлите @username канала. Бот должен быть администратором канала."
	ChannelInvalid = "❌ Нужен публичный @username канала."
)

// Админ: промокоды
const (
	PromoUsage   = "Использование: /newpromo CODE ДНЕЙ [ИСПОЛЬЗОВАНИЙ]"
	PromoInvalid = "❌ Код: 3-64 символа A-Z, 0-9, _ или -. Дни и использования больше нуля."
)

// Админ: рассылки
const (
	BroadcastUsage   = "Ответьте командой на сообщение, которое нужно разослать. Кнопку можно добавить последней строкой: Текст | https://..."
	BroadcastRunning = "⏳ Рассылка уже идёт, дождитесь окончания."
	BroadcastEmpty   = "❌ В сообщении нет текста, фото или видео."
)

func ChannelAdded(handle string) string {
	return fmt.Sprintf("✅ Канал @%s добавлен в список обязательных.", handle)
}

func PromoCreated(code string, days, uses int) string {
	return fmt.Sprintf("✅ Промокод <code>%s</code>: %d дн., использований: %d", code, days, uses)
}

func BroadcastStarted(audience string, total int) string {
	return fmt.Sprintf("📣 Рассылка «%s» запущена: %d получателей.", audience, total)
}

func BroadcastProgress(done, total, sent, failed int) string {
	return fmt.Sprintf("📣 Рассылка: %d/%d\n✅ Доставлено: %d\n❌ Ошибок: %d", done, total, sent, failed)
}

// BroadcastReport итог рассылки с разбивкой ошибок.
func BroadcastReport(total, sent, failed int, percent float64, byKind map[string]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📣 Рассылка завершена\n\nВсего: %d\n✅ Доставлено: %d (%.1f%%)\n❌ Ошибок: %d", total, sent, percent, failed)
	for kind, n := range byKind {
		fmt.Fprintf(&b, "\n• %s: %d", kind, n)
	}
	return b.String()
}

// Size human readable size for replies.
func Size(bytes int64) string {
	return humanize.Bytes(uint64(max(bytes, 0)))
}
