package promo

import "context"

type Storage interface {
	// ActivatePromo уменьшает uses_left и продлевает подписку в одной транзакции.
	ActivatePromo(ctx context.Context, userID int64, code string) (*ActivationResult, error)
	CreatePromocode(ctx context.Context, promocode Promocode) error
	GetPromocode(ctx context.Context, code string) (*Promocode, error)
}
