package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Store wraps the SQLite handle. Pipeline stages write through WithTx so
// each stage commits or rolls back as a unit; aggregate reads for the
// presentation layer run on the plain handle.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Tx is one stage's exclusive transaction. All stage reads and writes go
// through it so a failure rolls the whole stage back with no partial
// state.
type Tx struct {
	tx *sqlx.Tx
}

// WithTx runs fn inside a single transaction. Any error (or panic) rolls
// back everything fn did.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (after: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
