// Package store provides the persistence layer for a merge run: the run
// record, the per-path table, and the append-only conflict log.
package store

import (
	"database/sql"
	"fmt"

	"github.com/lherron/foldermerge/internal/db"
	"github.com/lherron/foldermerge/internal/domain"
)

// Store is the root store wrapping a single-writer SQLite connection.
type Store struct {
	db *db.DB

	Runs      *RunStore
	Paths     *PathStore
	Conflicts *ConflictStore
}

// New wraps an already-open, already-migrated database connection.
func New(database *db.DB) *Store {
	s := &Store{db: database}
	s.Runs = &RunStore{store: s}
	s.Paths = &PathStore{store: s}
	s.Conflicts = &ConflictStore{store: s}
	return s
}

// DB returns the underlying connection, for callers that need direct access
// (migration status checks, ad-hoc reporting queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error fn returns. Any failure is wrapped as a
// StoreUnavailableError: every write in this package goes through here, so
// callers can treat a non-nil return as fatal to the run.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &domain.StoreUnavailableError{Path: s.db.Path(), Err: fmt.Errorf("begin transaction: %w", err)}
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return &domain.StoreUnavailableError{Path: s.db.Path(), Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &domain.StoreUnavailableError{Path: s.db.Path(), Err: fmt.Errorf("commit: %w", err)}
	}
	return nil
}
