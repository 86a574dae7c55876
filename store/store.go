// Package store is the data access layer. Every habit and entry operation is
// scoped to an owner at the query level; a caller-supplied habit id is never
// trusted on its own.
package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrNotFound means the habit does not exist or belongs to another owner.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput means the caller supplied values the data model rejects.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStorageUnavailable wraps failures of the underlying database.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Store wraps an injected database handle.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to stamp entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a Store over db.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time in the server's local zone.
func (s *Store) Now() time.Time {
	return s.now()
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
