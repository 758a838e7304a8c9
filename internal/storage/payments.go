package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"grabber-bot/internal/stories/payment"
	"grabber-bot/internal/stories/tariffs"
)

const (
	processedPaymentsTable = "processed_payments"
	pendingPaymentsTable   = "pending_payments"
)

var pendingPaymentRowFields = fields(pendingPaymentRow{})

type pendingPaymentRow struct {
	PaymentID string    `db:"payment_id"`
	UserID    int64     `db:"user_id"`
	TariffID  int64     `db:"tariff_id"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (p pendingPaymentRow) ToModel() *payment.PendingPayment {
	return &payment.PendingPayment{
		PaymentID: p.PaymentID,
		UserID:    p.UserID,
		TariffID:  p.TariffID,
		Status:    payment.PendingStatus(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// ActivatePayment фиксирует payment_id и продлевает подписку в одной транзакции.
// Повторный payment_id возвращает payment.ErrDuplicate и ничего не меняет.
func (s *storageImpl) ActivatePayment(ctx context.Context, activation payment.Activation) (*payment.ActivationResult, error) {
	var result *payment.ActivationResult

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		now := s.now()

		q, args, err := s.stmpBuilder().
			Insert(processedPaymentsTable).
			Columns("payment_id", "user_id", "tariff_id", "provider", "created_at").
			Values(activation.PaymentID, activation.UserID, activation.TariffID, string(activation.Provider), now).
			Suffix("ON CONFLICT (payment_id) DO NOTHING").
			ToSql()
		if err != nil {
			return fmt.Errorf("build sql query: %w", err)
		}

		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("result.RowsAffected: %w", err)
		}
		if affected == 0 {
			return payment.ErrDuplicate
		}

		tariff, err := s.getTariff(ctx, tx, activation.TariffID)
		if err != nil {
			return err
		}
		if tariff == nil {
			return fmt.Errorf("tariff %d: %w", activation.TariffID, tariffs.ErrNotFound)
		}

		expireAt, err := s.extendSubscription(ctx, tx, activation.UserID, tariff.DurationDays)
		if err != nil {
			return err
		}

		q, args, err = s.stmpBuilder().
			Update(usersTable).
			Set("has_paid_ever", true).
			Set("first_paid_at", sq.Expr("COALESCE(first_paid_at, ?)", now)).
			Where(sq.Eq{"user_id": activation.UserID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build sql query: %w", err)
		}
		if _, err = tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		result = &payment.ActivationResult{
			Applied:      true,
			ExpireAt:     expireAt,
			DurationDays: tariff.DurationDays,
			TariffName:   tariff.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *storageImpl) IsPaymentProcessed(ctx context.Context, paymentID string) (bool, error) {
	q, args, err := s.stmpBuilder().
		Select("COUNT(*)").
		From(processedPaymentsTable).
		Where(sq.Eq{"payment_id": paymentID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build sql query: %w", err)
	}

	var count int
	if err = s.db.GetContext(ctx, &count, q, args...); err != nil {
		return false, fmt.Errorf("db.GetContext: %w", err)
	}
	return count > 0, nil
}

func (s *storageImpl) CreatePendingPayment(ctx context.Context, pending payment.PendingPayment) error {
	params := map[string]interface{}{
		"payment_id": pending.PaymentID,
		"user_id":    pending.UserID,
		"tariff_id":  pending.TariffID,
		"status":     string(pending.Status),
		"created_at": pending.CreatedAt,
		"updated_at": pending.UpdatedAt,
	}

	q, args, err := s.stmpBuilder().
		Insert(pendingPaymentsTable).
		SetMap(params).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}

func (s *storageImpl) GetPendingPayment(ctx context.Context, paymentID string) (*payment.PendingPayment, error) {
	q, args, err := s.stmpBuilder().
		Select(pendingPaymentRowFields).
		From(pendingPaymentsTable).
		Where(sq.Eq{"payment_id": paymentID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var p pendingPaymentRow
	if err = s.db.GetContext(ctx, &p, q, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db.GetContext: %w", err)
	}
	return p.ToModel(), nil
}

func (s *storageImpl) ListPendingPayments(ctx context.Context, criteria payment.PendingCriteria) ([]*payment.PendingPayment, error) {
	query := s.stmpBuilder().
		Select(pendingPaymentRowFields).
		From(pendingPaymentsTable).
		OrderBy("created_at")

	if criteria.Status != nil {
		query = query.Where(sq.Eq{"status": string(*criteria.Status)})
	}
	if criteria.CreatedBefore != nil {
		query = query.Where(sq.Lt{"created_at": *criteria.CreatedBefore})
	}
	if criteria.Limit > 0 {
		query = query.Limit(uint64(criteria.Limit))
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	var rows []pendingPaymentRow
	if err = s.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("db.SelectContext: %w", err)
	}

	result := make([]*payment.PendingPayment, 0, len(rows))
	for _, p := range rows {
		result = append(result, p.ToModel())
	}
	return result, nil
}

func (s *storageImpl) UpdatePendingStatus(ctx context.Context, paymentID string, status payment.PendingStatus) error {
	q, args, err := s.stmpBuilder().
		Update(pendingPaymentsTable).
		Set("status", string(status)).
		Set("updated_at", s.now()).
		Where(sq.Eq{"payment_id": paymentID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}
	return nil
}
