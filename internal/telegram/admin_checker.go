package telegram

import (
	"slices"

	"grabber-bot/internal/config"
)

// AdminChecker проверяет является ли пользователь админом
type AdminChecker struct {
	adminIDs []int64
}

func NewAdminChecker(cfg *config.TelegramConfig) *AdminChecker {
	return &AdminChecker{
		adminIDs: cfg.AdminIDs,
	}
}

func (a *AdminChecker) IsAdmin(telegramID int64) bool {
	return slices.Contains(a.adminIDs, telegramID)
}

func (a *AdminChecker) AdminIDs() []int64 {
	return a.adminIDs
}
