package states

import (
	"sync"
	"time"
)

type entry struct {
	state    State
	data     any
	lastSeen time.Time
}

// Manager управляет состояниями пользователей в памяти
type Manager struct {
	mu      sync.RWMutex
	entries map[int64]*entry
	now     func() time.Time
}

// NewManager создает новый менеджер состояний
func NewManager() *Manager {
	return &Manager{
		entries: make(map[int64]*entry),
		now:     time.Now,
	}
}

// GetState получает текущее состояние пользователя
func (m *Manager) GetState(chatID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, exists := m.entries[chatID]
	if !exists {
		return StateNone
	}
	return e.state
}

// GetData получает данные пользователя
func (m *Manager) GetData(chatID int64) any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if e, ok := m.entries[chatID]; ok {
		return e.data
	}
	return nil
}

// SetState устанавливает состояние пользователя. data nil сохраняет прежние данные.
func (m *Manager) SetState(chatID int64, state State, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[chatID]
	if !ok {
		e = &entry{}
		m.entries[chatID] = e
	}
	e.state = state
	e.lastSeen = m.now()
	if data != nil {
		e.data = data
	}
}

// Clear очищает состояние пользователя
func (m *Manager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, chatID)
}

// Purge удаляет состояния, не менявшиеся дольше maxIdle.
func (m *Manager) Purge(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	removed := 0
	for id, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
