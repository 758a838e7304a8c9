package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txFunc = func(tx *sqlx.Tx) error

// withTx выполняет fn в одной транзакции: ошибка или паника откатывают всё.
func (s *storageImpl) withTx(ctx context.Context, fn txFunc) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback() // Ignore rollback error during panic
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("db transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db commit transaction: %w", err)
	}

	return nil
}
