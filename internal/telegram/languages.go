package telegram

import (
	"sync"

	"grabber-bot/internal/localization"
)

// Languages запоминает язык клиента пользователя по последнему апдейту.
type Languages struct {
	m sync.Map
}

func NewLanguages() *Languages {
	return &Languages{}
}

func (l *Languages) Remember(userID int64, code string) string {
	lang := localization.Lang(code)
	l.m.Store(userID, lang)
	return lang
}

func (l *Languages) Get(userID int64) string {
	if v, ok := l.m.Load(userID); ok {
		return v.(string)
	}
	return localization.DefaultLang
}
