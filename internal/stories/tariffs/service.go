package tariffs

import (
	"context"
	"fmt"

	"github.com/samber/lo"
)

// Service provides business logic for tariff operations
type Service struct {
	storage Storage
}

// NewService creates a new tariff service
func NewService(storage Storage) *Service {
	return &Service{
		storage: storage,
	}
}

func (s *Service) CreateTariff(ctx context.Context, tariff Tariff) (*Tariff, error) {
	if tariff.DurationDays <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", tariff.DurationDays)
	}
	tariff.IsActive = true
	return s.storage.CreateTariff(ctx, tariff)
}

// GetTariff returns ErrNotFound for a missing tariff.
func (s *Service) GetTariff(ctx context.Context, id int64) (*Tariff, error) {
	t, err := s.storage.GetTariff(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// ListActive returns tariffs available for purchase.
func (s *Service) ListActive(ctx context.Context) ([]*Tariff, error) {
	return s.storage.ListTariffs(ctx, ListCriteria{
		IsActive: lo.ToPtr(true),
		Limit:    20,
	})
}
