package downloads

import (
	"sync"
	"time"
)

// selections хранит ожидающие выборы качества. У пользователя один активный
// выбор: новая ссылка вытесняет предыдущую клавиатуру.
type selections struct {
	mu     sync.Mutex
	byID   map[string]*Selection
	byUser map[int64]string
}

func newSelections() *selections {
	return &selections{
		byID:   make(map[string]*Selection),
		byUser: make(map[int64]string),
	}
}

func (s *selections) Put(sel *Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byUser[sel.UserID]; ok {
		delete(s.byID, prev)
	}
	s.byID[sel.ID] = sel
	s.byUser[sel.UserID] = sel.ID
}

// Get возвращает выбор, только если он принадлежит userID.
func (s *selections) Get(id string, userID int64) (*Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.byID[id]
	if !ok || sel.UserID != userID {
		return nil, false
	}
	return sel, true
}

func (s *selections) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	if s.byUser[sel.UserID] == id {
		delete(s.byUser, sel.UserID)
	}
}

// Purge удаляет выборы, созданные раньше before.
func (s *selections) Purge(before time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sel := range s.byID {
		if sel.CreatedAt.Before(before) {
			delete(s.byID, id)
			if s.byUser[sel.UserID] == id {
				delete(s.byUser, sel.UserID)
			}
			removed++
		}
	}
	return removed
}

func (s *selections) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
