package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/agency-be/internal/domain"
	"github.com/cuongbtq/agency-be/shared/postgresql"
)

// queries holds every statement and runs it against either the pool or a transaction
type queries struct {
	ext sqlx.ExtContext
}

// Store is the Postgres persistence gateway
type Store struct {
	queries
	pg *postgresql.Client
}

// Tx exposes the same operations bound to one transaction
type Tx struct {
	queries
}

// NewStore creates a Store on top of the shared client
func NewStore(pg *postgresql.Client) *Store {
	return &Store{
		queries: queries{ext: pg.GetDB()},
		pg:      pg,
	}
}

// InTx runs fn in a single transaction
func (s *Store) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.pg.InTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&Tx{queries: queries{ext: tx}})
	})
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundf(format, args...)
	}
	return nil
}

// dbError annotates err with op. Malformed input and broken references are
// reported as domain.ErrValidation and duplicates as domain.ErrConflict so
// callers never mistake them for an outage.
func dbError(op string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	switch {
	case pqErr.Code == "23505":
		return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, pqErr.Message)
	case pqErr.Code.Class() == "22", pqErr.Code.Class() == "23":
		return fmt.Errorf("%s: %w: %s", op, domain.ErrValidation, pqErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
