// ABOUTME: Store wraps the sqlx handle used by every repository method
// ABOUTME: It is the local contact store and run logger consumed by the sync pipeline
package db

import (
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrContactNotFound = errors.New("contact not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrRunNotFound     = errors.New("sync run not found")
	ErrRunClosed       = errors.New("sync run already closed")
)

// Store provides account, contact, social link, and sync run persistence.
type Store struct {
	db  *sqlx.DB
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewStore creates a store on an opened database.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// stamp returns a strictly increasing timestamp so rows written in one
// batch keep their insertion order when sorted by time.
func (s *Store) stamp() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().Truncate(time.Microsecond)
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

// rebind converts ? placeholders to the driver's bindvar style.
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}
