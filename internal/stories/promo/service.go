package promo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9_-]{3,64}$`)

type Service struct {
	storage Storage
	logger  *slog.Logger
}

func NewService(storage Storage, logger *slog.Logger) *Service {
	return &Service{storage: storage, logger: logger}
}

func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Activate применяет промокод; ErrInvalid для неизвестных и исчерпанных кодов.
func (s *Service) Activate(ctx context.Context, userID int64, code string) (*ActivationResult, error) {
	code = Normalize(code)
	if !codePattern.MatchString(code) {
		return nil, ErrInvalid
	}

	result, err := s.storage.ActivatePromo(ctx, userID, code)
	if errors.Is(err, ErrInvalid) {
		s.logger.Info("Promocode rejected", "user_id", userID, "code", code)
		return nil, ErrInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("activate promocode: %w", err)
	}

	s.logger.Info("Promocode activated",
		"user_id", userID,
		"code", code,
		"days", result.DurationDays,
		"expire_at", result.ExpireAt,
	)
	return result, nil
}

func (s *Service) Create(ctx context.Context, code string, days, uses int) (*Promocode, error) {
	code = Normalize(code)
	if !codePattern.MatchString(code) {
		return nil, fmt.Errorf("bad promocode %q", code)
	}
	if days <= 0 || uses <= 0 {
		return nil, fmt.Errorf("days and uses must be positive")
	}

	p := Promocode{Code: code, DurationDays: days, UsesLeft: uses}
	if err := s.storage.CreatePromocode(ctx, p); err != nil {
		return nil, fmt.Errorf("create promocode: %w", err)
	}
	return &p, nil
}
