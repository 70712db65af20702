package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rtavares/brickvault-backend/internal/domain"
)

// Store implements domain.Ledger on PostgreSQL. Every InTx scope is one
// database transaction; the ForUpdate accessors translate to
// SELECT ... FOR UPDATE so concurrent settlements serialize per row.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a ledger store over an open connection pool.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Releases the connection even when fn panics; after a commit this is
	// a no-op (sql.ErrTxDone).
	defer func() { _ = tx.Rollback() }()

	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// pgTx implements domain.Tx over one open database transaction.
type pgTx struct {
	tx *sqlx.Tx
}

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
