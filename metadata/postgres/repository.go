// Package postgres implements metadata.Repository on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/przemekbroda/sessionstore/metadata"
)

const schema = `
CREATE TABLE IF NOT EXISTS user_sessions (
	id         UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	expires_at TIMESTAMPTZ,
	origin     TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_user_sessions_session_id ON user_sessions (session_id);
CREATE INDEX IF NOT EXISTS idx_user_sessions_user_id ON user_sessions (user_id);
CREATE INDEX IF NOT EXISTS idx_user_sessions_expires_at ON user_sessions (expires_at) WHERE expires_at IS NOT NULL;
`

var _ metadata.Repository = (*Repository)(nil)

// Repository implements metadata.Repository using PostgreSQL.
//
// Every write is a single statement, so the read-committed default gives
// the per-row atomicity the ticket store relies on; no cross-statement
// transaction is held.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a PostgreSQL-backed session metadata repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Migrate creates the user_sessions table and its indexes. The partial
// index on expires_at keeps the sweep predicate cheap at scale.
func (r *Repository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate user_sessions: %w", mapError(err))
	}
	return nil
}

// Get retrieves a record by session id.
func (r *Repository) Get(ctx context.Context, sessionID string) (*metadata.Record, error) {
	query := `
		SELECT id, session_id, user_id, expires_at, origin, created_at
		FROM user_sessions
		WHERE session_id = $1
	`

	var (
		rec    metadata.Record
		origin *string
	)
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.UserID,
		&rec.ExpiresAt,
		&origin,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, metadata.ErrNotFound
		}
		return nil, fmt.Errorf("get session record: %w", mapError(err))
	}

	if origin != nil {
		rec.Origin = *origin
	}
	return &rec, nil
}

// Upsert inserts the record or, when the session id is already present,
// updates only its expiry.
func (r *Repository) Upsert(ctx context.Context, rec *metadata.Record) error {
	query := `
		INSERT INTO user_sessions (id, session_id, user_id, expires_at, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (session_id)
		DO UPDATE SET expires_at = EXCLUDED.expires_at
	`

	id := rec.ID
	if id == uuid.Nil {
		var err error
		if id, err = uuid.NewV7(); err != nil {
			return fmt.Errorf("generate record id: %w", err)
		}
	}

	var origin *string
	if rec.Origin != "" {
		origin = &rec.Origin
	}

	if _, err := r.pool.Exec(ctx, query, id, rec.SessionID, rec.UserID, rec.ExpiresAt, origin); err != nil {
		return fmt.Errorf("upsert session record: %w", mapError(err))
	}
	return nil
}

// Delete removes a record by session id.
func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session record: %w", mapError(err))
	}
	if result.RowsAffected() == 0 {
		return metadata.ErrNotFound
	}
	return nil
}

// ListByUser returns the user's records, newest first. With activeOnly set,
// rows whose expiry has passed are filtered out in the query.
func (r *Repository) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*metadata.Record, error) {
	query := `
		SELECT id, session_id, user_id, expires_at, origin, created_at
		FROM user_sessions
		WHERE user_id = $1
	`
	if activeOnly {
		query += ` AND (expires_at IS NULL OR expires_at >= now())`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list session records: %w", mapError(err))
	}
	defer rows.Close()

	var records []*metadata.Record
	for rows.Next() {
		var (
			rec    metadata.Record
			origin *string
		)
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.UserID, &rec.ExpiresAt, &origin, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session record: %w", mapError(err))
		}
		if origin != nil {
			rec.Origin = *origin
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list session records: %w", mapError(err))
	}

	return records, nil
}

// DeleteByUser removes all of a user's records.
func (r *Repository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete session records by user: %w", mapError(err))
	}
	return int(result.RowsAffected()), nil
}

// DeleteExpired removes every record whose expiry precedes now. Rows with a
// NULL expiry are never swept.
func (r *Repository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM user_sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired session records: %w", mapError(err))
	}
	return int(result.RowsAffected()), nil
}

// mapError folds connection-class PostgreSQL failures into
// metadata.ErrUnavailable so callers can classify them as transient.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection,
		pgerrcode.AdminShutdown,
		pgerrcode.CrashShutdown,
		pgerrcode.TooManyConnections:
		return fmt.Errorf("%w: %v", metadata.ErrUnavailable, err)
	default:
		return err
	}
}
