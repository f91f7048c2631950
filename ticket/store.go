package ticket

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/przemekbroda/sessionstore/internal/metrics"
	"github.com/przemekbroda/sessionstore/metadata"
)

// ErrMissingIdentityClaim is returned by Renew (and therefore Store) when
// the ticket carries no user-identifier claim. The durable session row
// cannot be attributed to a user without it. Caller error; not retried.
var ErrMissingIdentityClaim = errors.New("ticket missing user identity claim")

// ErrUnavailable is returned when the cache or the metadata repository
// cannot be reached. Transient; the caller may retry the whole operation.
var ErrUnavailable = errors.New("ticket store unavailable")

// sessionIDEntropy is the number of random bytes behind a session id.
const sessionIDEntropy = 64

// Cache is the key-value store holding encoded tickets. Get returns
// (nil, nil) when the key is absent. A zero expiresAt on Set stores the
// entry without a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, payload []byte, expiresAt time.Time) error
	Delete(ctx context.Context, key string) error
}

// Options configures a Store.
type Options struct {
	// KeyPrefix namespaces cache keys so session entries cannot collide
	// with unrelated cache usage.
	KeyPrefix string
	// SlidingExpiration keeps active sessions alive: when a Retrieve
	// finds less than half of DefaultLifetime remaining, the session is
	// renewed for a full DefaultLifetime. Requires DefaultLifetime.
	SlidingExpiration bool
	// DefaultLifetime is applied when a ticket carries no expiry of its
	// own, and is the window sliding expiration renews by. Zero leaves
	// such tickets without expiry (never swept).
	DefaultLifetime time.Duration

	Logger  zerolog.Logger
	Metrics *metrics.Metrics
}

// Store orchestrates the ticket codec, the ticket cache, and the metadata
// repository into the create/retrieve/renew/remove session lifecycle.
//
// Store exclusively owns the invariant linking a metadata row to its cache
// entry: every Renew writes the row first and the cache entry second, so a
// crash between the two leaves a sweepable row without a live entry, never
// a live entry invisible to administration.
type Store struct {
	cache   Cache
	repo    metadata.Repository
	opts    Options
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewStore wires a Store from its collaborators. Dependencies are explicit;
// nothing is resolved at call time.
func NewStore(cache Cache, repo metadata.Repository, opts Options) *Store {
	return &Store{
		cache:   cache,
		repo:    repo,
		opts:    opts,
		log:     opts.Logger,
		metrics: opts.Metrics,
	}
}

func (s *Store) key(sessionID string) string {
	return s.opts.KeyPrefix + sessionID
}

// Store generates a fresh unpredictable session id, persists the ticket
// under it via Renew, and returns the id. A failed Store means the session
// was not created; the only partial state it can leave behind is a
// metadata row with no cache entry, which the sweeper reclaims.
func (s *Store) Store(ctx context.Context, t *Ticket) (string, error) {
	sessionID, err := newSessionID()
	if err != nil {
		return "", err
	}

	if err := s.Renew(ctx, sessionID, t); err != nil {
		return "", err
	}

	s.metrics.Inc(metrics.MetricTicketStored)
	return sessionID, nil
}

// Retrieve returns the live ticket for a session id, or (nil, nil) when the
// session is dead: never stored, cache-expired, or holding a payload that
// no longer decodes. It is a single cache lookup; the metadata repository
// is only touched when sliding expiration decides to renew the session.
func (s *Store) Retrieve(ctx context.Context, sessionID string) (*Ticket, error) {
	payload, err := s.cache.Get(ctx, s.key(sessionID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if payload == nil {
		s.metrics.Inc(metrics.MetricCacheMiss)
		return nil, nil
	}

	t, err := Decode(payload)
	if err != nil {
		// A corrupt ticket is equivalent to no session.
		s.metrics.Inc(metrics.MetricDecodeFailure)
		s.log.Debug().Err(err).Msg("discarding undecodable ticket payload")
		return nil, nil
	}

	now := time.Now()
	if t.Properties.ExpiresAt != nil && t.Properties.ExpiresAt.Before(now) {
		s.metrics.Inc(metrics.MetricCacheMiss)
		return nil, nil
	}

	// Sliding expiration: once the session has burned through half its
	// window, renew it for a full window so the row and the cache TTL
	// move together.
	if s.opts.SlidingExpiration && s.opts.DefaultLifetime > 0 && t.Properties.ExpiresAt != nil {
		if t.Properties.ExpiresAt.Sub(now) < s.opts.DefaultLifetime/2 {
			expiresAt := now.Add(s.opts.DefaultLifetime)
			extended := *t
			extended.Properties.ExpiresAt = &expiresAt
			if err := s.Renew(ctx, sessionID, &extended); err != nil {
				return nil, err
			}
			t = &extended
		}
	}

	s.metrics.Inc(metrics.MetricTicketRetrieved)
	return t, nil
}

// Renew upserts the session's metadata row, then writes the encoded ticket
// to the cache with a TTL derived from the same expiry value. The row is
// written first: the durable side is the source of truth for enumeration
// and revocation, and a stale row is a safe failure mode where an
// unaccounted cache entry is not.
func (s *Store) Renew(ctx context.Context, sessionID string, t *Ticket) error {
	userID := t.UserID()
	if userID == "" {
		return ErrMissingIdentityClaim
	}

	if t.Properties.ExpiresAt == nil && s.opts.DefaultLifetime > 0 {
		expiresAt := time.Now().Add(s.opts.DefaultLifetime)
		withExpiry := *t
		withExpiry.Properties.ExpiresAt = &expiresAt
		t = &withExpiry
	}

	payload, err := Encode(t)
	if err != nil {
		return err
	}

	rec := &metadata.Record{
		SessionID: sessionID,
		UserID:    userID,
		ExpiresAt: t.Properties.ExpiresAt,
		Origin:    t.Origin(),
	}
	if err := s.repo.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var expiresAt time.Time
	if t.Properties.ExpiresAt != nil {
		expiresAt = *t.Properties.ExpiresAt
	}
	if err := s.cache.Set(ctx, s.key(sessionID), payload, expiresAt); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.metrics.Inc(metrics.MetricTicketRenewed)
	return nil
}

// Remove deletes the cache entry for a session id. The metadata row is the
// caller's responsibility: bulk revocation deletes rows first and then fans
// out Remove calls.
func (s *Store) Remove(ctx context.Context, sessionID string) error {
	if err := s.cache.Delete(ctx, s.key(sessionID)); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	s.metrics.Inc(metrics.MetricTicketRemoved)
	return nil
}

func newSessionID() (string, error) {
	raw := make([]byte, sessionIDEntropy)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
