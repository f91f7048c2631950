package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/przemekbroda/sessionstore/internal/metrics"
	"github.com/przemekbroda/sessionstore/metadata"
	"github.com/przemekbroda/sessionstore/ticket"
)

// Manager is the facade over the ticket store, the claims refresher, and
// the expiry sweeper. One Manager serves all concurrent request-scoped
// operations; the external stores provide the isolation, so it holds no
// locks of its own.
type Manager struct {
	config    Config
	store     *ticket.Store
	repo      metadata.Repository
	refresher *ClaimsRefresher
	sweeper   *ExpirySweeper
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// TicketStore exposes the underlying session ticket store for the
// authentication middleware driving the per-request lifecycle.
func (m *Manager) TicketStore() *ticket.Store {
	return m.store
}

// StoreTicket creates a new session for the ticket and returns its opaque
// session id.
func (m *Manager) StoreTicket(ctx context.Context, t *ticket.Ticket) (string, error) {
	return m.store.Store(ctx, t)
}

// RetrieveTicket returns the live ticket for a session id, or nil when the
// session is dead. One cache lookup on the request hot path; sliding
// expiration may add a renewal.
func (m *Manager) RetrieveTicket(ctx context.Context, sessionID string) (*ticket.Ticket, error) {
	return m.store.Retrieve(ctx, sessionID)
}

// RenewTicket rewrites an existing session's ticket and expiry.
func (m *Manager) RenewTicket(ctx context.Context, sessionID string, t *ticket.Ticket) error {
	return m.store.Renew(ctx, sessionID, t)
}

// RemoveTicket deletes a session's cache entry (logout of one session).
// The metadata row stays behind for the sweeper.
func (m *Manager) RemoveTicket(ctx context.Context, sessionID string) error {
	return m.store.Remove(ctx, sessionID)
}

// ListSessions returns the user's live session records for administrative
// enumeration, newest first.
func (m *Manager) ListSessions(ctx context.Context, userID string) ([]*metadata.Record, error) {
	return m.repo.ListByUser(ctx, userID, true)
}

// RevokeSession revokes one of the user's sessions: the metadata row is
// deleted first, then the cache entry. Returns ErrSessionNotFound when the
// session does not exist or belongs to another user.
func (m *Manager) RevokeSession(ctx context.Context, userID, sessionID string) error {
	rec, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, metadata.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("load session record: %w", err)
	}
	if rec.UserID != userID {
		return ErrSessionNotFound
	}

	if err := m.repo.Delete(ctx, sessionID); err != nil && !errors.Is(err, metadata.ErrNotFound) {
		return fmt.Errorf("delete session record: %w", err)
	}
	if err := m.store.Remove(ctx, sessionID); err != nil {
		return err
	}

	m.metrics.Inc(metrics.MetricSessionRevoked)
	m.log.Info().Str("user_id", userID).Str("session_id", sessionID).Msg("session revoked")
	return nil
}

// RevokeAllSessions revokes every session the user holds and reports how
// many metadata rows were removed. Rows are deleted before the cache
// fan-out: a crash in between leaves sessions administratively invisible
// while their cache entries authenticate until their own TTL lapses — a
// bounded revocation-latency window, the accepted trade-off of this
// ordering.
func (m *Manager) RevokeAllSessions(ctx context.Context, userID string) (int, error) {
	records, err := m.repo.ListByUser(ctx, userID, false)
	if err != nil {
		return 0, fmt.Errorf("list session records: %w", err)
	}

	count, err := m.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete session records: %w", err)
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		removal []error
	)
	for _, rec := range records {
		wg.Add(1)
		go func(sessionID string) {
			defer wg.Done()
			if err := m.store.Remove(ctx, sessionID); err != nil {
				mu.Lock()
				removal = append(removal, fmt.Errorf("session %s: %w", sessionID, err))
				mu.Unlock()
			}
		}(rec.SessionID)
	}
	wg.Wait()

	m.metrics.Add(metrics.MetricSessionRevoked, uint64(count))
	m.log.Info().Str("user_id", userID).Int("count", count).Msg("all sessions revoked")
	return count, errors.Join(removal...)
}

// RefreshAllSessions pushes the user's current directory claims into every
// live session. See ClaimsRefresher.
func (m *Manager) RefreshAllSessions(ctx context.Context, userID string) (*RefreshReport, error) {
	return m.refresher.RefreshAllSessions(ctx, userID)
}

// Sweeper returns the expiry sweeper for explicit lifecycle control.
func (m *Manager) Sweeper() *ExpirySweeper {
	return m.sweeper
}

// StartSweeper launches the background expiry sweep.
func (m *Manager) StartSweeper(ctx context.Context) {
	m.sweeper.Start(ctx)
}

// Close stops the background sweep. The Manager itself holds no other
// resources; cache clients and pools belong to the caller.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.sweeper.Stop()
}

// MetricsSnapshot returns a point-in-time copy of the manager's counters.
func (m *Manager) MetricsSnapshot() map[MetricID]uint64 {
	return m.metrics.Snapshot()
}
