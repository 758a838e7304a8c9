package downloads

import (
	"sync"

	"grabber-bot/internal/metrics"
)

// userLocks не даёт пользователю запустить две задачи одновременно.
// Повторная попытка не ждёт, а сразу получает отказ.
type userLocks struct {
	mu   sync.Mutex
	busy map[int64]struct{}
}

func newUserLocks() *userLocks {
	return &userLocks{busy: make(map[int64]struct{})}
}

func (l *userLocks) TryAcquire(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.busy[userID]; ok {
		return false
	}
	l.busy[userID] = struct{}{}
	metrics.JobsInFlight.Inc()
	return true
}

func (l *userLocks) Release(userID int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.busy[userID]; ok {
		delete(l.busy, userID)
		metrics.JobsInFlight.Dec()
	}
}

func (l *userLocks) Held(userID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.busy[userID]
	return ok
}
