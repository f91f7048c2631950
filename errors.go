package sessionstore

import (
	"errors"

	"github.com/przemekbroda/sessionstore/metadata"
	"github.com/przemekbroda/sessionstore/ticket"
)

// ErrSessionNotFound is returned by per-session management operations when
// no metadata row matches the given user and session id. Expected absence,
// not logged as an error.
var ErrSessionNotFound = errors.New("session not found")

// Re-exported sentinels so callers can classify failures with errors.Is
// against this package alone.
var (
	// ErrStoreUnavailable marks transient cache or repository failures;
	// the whole operation may be retried.
	ErrStoreUnavailable = ticket.ErrUnavailable
	// ErrMissingIdentityClaim marks tickets that carry no user-identifier
	// claim. Caller error; not retried.
	ErrMissingIdentityClaim = ticket.ErrMissingIdentityClaim
	// ErrRecordNotFound marks a repository lookup that matched nothing.
	ErrRecordNotFound = metadata.ErrNotFound
)
