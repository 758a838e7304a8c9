package workers

import (
	"fmt"
	"log/slog"
)

// Manager manages multiple workers
type Manager struct {
	workers []Worker
	logger  *slog.Logger
}

// NewManager creates a new worker manager
func NewManager(logger *slog.Logger, workers ...Worker) *Manager {
	return &Manager{
		workers: workers,
		logger:  logger,
	}
}

// Start starts all workers. Уже запущенные останавливаются, если следующий не стартовал.
func (m *Manager) Start() error {
	m.logger.Info("Starting worker manager", "worker_count", len(m.workers))

	for i, worker := range m.workers {
		if err := worker.Start(); err != nil {
			for j := i - 1; j >= 0; j-- {
				m.workers[j].Stop()
			}
			return fmt.Errorf("failed to start worker %s: %w", worker.Name(), err)
		}
		m.logger.Debug("Worker started", "name", worker.Name())
	}

	return nil
}

// Stop stops all workers in reverse order
func (m *Manager) Stop() {
	m.logger.Info("Stopping all workers")

	for i := len(m.workers) - 1; i >= 0; i-- {
		m.workers[i].Stop()
	}

	m.logger.Info("All workers stopped")
}
