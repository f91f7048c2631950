package metadata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is a mutex-guarded in-memory Repository. Data is lost on
// restart; intended for tests and examples.
type MemoryRepository struct {
	mu sync.RWMutex

	records map[string]*Record  // session_id -> record
	byUser  map[string][]string // user_id -> []session_id
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]*Record),
		byUser:  make(map[string][]string),
	}
}

// Get retrieves a record by session id.
func (m *MemoryRepository) Get(ctx context.Context, sessionID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}

	clone := *rec
	return &clone, nil
}

// Upsert inserts the record, or updates the existing row's expiry.
func (m *MemoryRepository) Upsert(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.records[rec.SessionID]; ok {
		existing.ExpiresAt = cloneTime(rec.ExpiresAt)
		return nil
	}

	clone := *rec
	clone.ExpiresAt = cloneTime(rec.ExpiresAt)
	if clone.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		clone.ID = id
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}

	m.records[rec.SessionID] = &clone
	m.byUser[rec.UserID] = append(m.byUser[rec.UserID], rec.SessionID)
	return nil
}

// Delete removes a record by session id.
func (m *MemoryRepository) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[sessionID]
	if !ok {
		return ErrNotFound
	}

	m.removeFromUserIndex(rec.UserID, sessionID)
	delete(m.records, sessionID)
	return nil
}

// ListByUser returns the user's records, newest first.
func (m *MemoryRepository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	out := make([]*Record, 0, len(m.byUser[userID]))
	for _, sessionID := range m.byUser[userID] {
		rec := m.records[sessionID]
		if activeOnly && rec.Expired(now) {
			continue
		}
		clone := *rec
		clone.ExpiresAt = cloneTime(rec.ExpiresAt)
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteByUser removes all of a user's records.
func (m *MemoryRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sessionIDs := m.byUser[userID]
	for _, sessionID := range sessionIDs {
		delete(m.records, sessionID)
	}
	delete(m.byUser, userID)
	return len(sessionIDs), nil
}

// DeleteExpired removes every record whose expiry has passed.
func (m *MemoryRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var toDelete []string
	for sessionID, rec := range m.records {
		if rec.Expired(now) {
			toDelete = append(toDelete, sessionID)
		}
	}

	for _, sessionID := range toDelete {
		m.removeFromUserIndex(m.records[sessionID].UserID, sessionID)
		delete(m.records, sessionID)
	}
	return len(toDelete), nil
}

func (m *MemoryRepository) removeFromUserIndex(userID, sessionID string) {
	ids := m.byUser[userID]
	for i, id := range ids {
		if id == sessionID {
			m.byUser[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.byUser[userID]) == 0 {
		delete(m.byUser, userID)
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
