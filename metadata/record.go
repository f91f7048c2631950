// Package metadata defines the durable session-metadata record and the
// repository contract backing the ticket store. The cache answers "is this
// session alive"; the repository answers "which sessions does this user
// have" for enumeration, administrative revocation, and the expiry sweep.
package metadata

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no record exists for the lookup key.
	// Expected absence, not a failure.
	ErrNotFound = errors.New("session record not found")
	// ErrUnavailable is returned when the backing store cannot be reached.
	// Transient; callers may retry the whole operation.
	ErrUnavailable = errors.New("metadata store unavailable")
)

// Record is one durable session row. ExpiresAt nil means the session never
// auto-expires and is skipped by the sweep.
type Record struct {
	ID        uuid.UUID
	SessionID string
	UserID    string
	ExpiresAt *time.Time
	Origin    string
	CreatedAt time.Time
}

// Expired reports whether the record's expiry has passed at the given instant.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Repository is the durable store for session records.
//
// Upsert inserts a new record or, when a record with the same SessionID
// already exists, updates only its expiry. Writes are single atomic
// statements; no cross-call transaction is held.
type Repository interface {
	Get(ctx context.Context, sessionID string) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, sessionID string) error

	// ListByUser returns the user's records, newest first. With activeOnly
	// set, records whose expiry has passed are filtered out.
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*Record, error)

	// DeleteByUser removes all of a user's records and reports how many.
	DeleteByUser(ctx context.Context, userID string) (int, error)

	// DeleteExpired removes every record with ExpiresAt before now and
	// reports how many. Running it twice in a row deletes each row at
	// most once.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
