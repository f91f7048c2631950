package sessionstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/przemekbroda/sessionstore/internal/metrics"
	"github.com/przemekbroda/sessionstore/metadata"
	"github.com/przemekbroda/sessionstore/ticket"
)

// UserDirectory is the external identity provider consulted for a user's
// current authorization state. It is consumed, never implemented, by this
// library.
type UserDirectory interface {
	GetClaims(ctx context.Context, userID string) ([]ticket.Claim, error)
	GetRoles(ctx context.Context, userID string) ([]string, error)
}

// RefreshFailure records one session whose renewal failed during a refresh.
type RefreshFailure struct {
	SessionID string
	Err       error
}

// RefreshReport lists the outcome of a RefreshAllSessions call per session.
// Failed sessions can be retried individually; the others are already
// consistent with the directory.
type RefreshReport struct {
	Refreshed []string
	Skipped   []string
	Failed    []RefreshFailure
}

// Ok reports whether every live session was refreshed or legitimately
// skipped.
func (r *RefreshReport) Ok() bool {
	return len(r.Failed) == 0
}

// ClaimsRefresher pushes a user's current claim set into every live session
// the user holds. Claims are cached per session and never re-derived on
// retrieval, so authorization changes must be propagated actively or they
// would only take effect on the next login.
type ClaimsRefresher struct {
	directory   UserDirectory
	store       *ticket.Store
	repo        metadata.Repository
	concurrency int
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

// NewClaimsRefresher wires a refresher from its collaborators.
func NewClaimsRefresher(directory UserDirectory, store *ticket.Store, repo metadata.Repository, cfg RefreshConfig, logger zerolog.Logger, m *metrics.Metrics) *ClaimsRefresher {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &ClaimsRefresher{
		directory:   directory,
		store:       store,
		repo:        repo,
		concurrency: concurrency,
		log:         logger,
		metrics:     m,
	}
}

// RefreshAllSessions recomputes the user's canonical claim set and rewrites
// every live session's ticket with it, preserving each session's scheme,
// properties, and origin. Sessions whose cache entry has already lapsed are
// skipped, never resurrected. One session's failure does not abort the
// others; the report carries the failed ids for a targeted retry.
//
// The returned error covers only the upfront loads (directory, session
// list); per-session failures live in the report.
func (r *ClaimsRefresher) RefreshAllSessions(ctx context.Context, userID string) (*RefreshReport, error) {
	canonical, err := r.canonicalClaims(ctx, userID)
	if err != nil {
		return nil, err
	}

	records, err := r.repo.ListByUser(ctx, userID, true)
	if err != nil {
		return nil, fmt.Errorf("list sessions for user %q: %w", userID, err)
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		report RefreshReport
	)
	sem := make(chan struct{}, r.concurrency)

	for _, rec := range records {
		wg.Add(1)
		sem <- struct{}{}
		go func(rec *metadata.Record) {
			defer wg.Done()
			defer func() { <-sem }()

			refreshed, err := r.refreshOne(ctx, rec, canonical)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				r.metrics.Inc(metrics.MetricRefreshFailure)
				report.Failed = append(report.Failed, RefreshFailure{SessionID: rec.SessionID, Err: err})
			case refreshed:
				r.metrics.Inc(metrics.MetricRefreshRenewed)
				report.Refreshed = append(report.Refreshed, rec.SessionID)
			default:
				r.metrics.Inc(metrics.MetricRefreshSkipped)
				report.Skipped = append(report.Skipped, rec.SessionID)
			}
		}(rec)
	}
	wg.Wait()

	if len(report.Failed) > 0 {
		r.log.Warn().
			Str("user_id", userID).
			Int("refreshed", len(report.Refreshed)).
			Int("failed", len(report.Failed)).
			Msg("claims refresh completed with failures")
	} else {
		r.log.Debug().
			Str("user_id", userID).
			Int("refreshed", len(report.Refreshed)).
			Int("skipped", len(report.Skipped)).
			Msg("claims refresh completed")
	}

	return &report, nil
}

// refreshOne rewrites a single session. Returns false with a nil error when
// the session's cache entry is already gone.
func (r *ClaimsRefresher) refreshOne(ctx context.Context, rec *metadata.Record, canonical []ticket.Claim) (bool, error) {
	existing, err := r.store.Retrieve(ctx, rec.SessionID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	claims := make([]ticket.Claim, 0, len(canonical)+1)
	claims = append(claims, canonical...)
	if rec.Origin != "" {
		claims = append(claims, ticket.Claim{Type: ticket.ClaimOrigin, Value: rec.Origin})
	}

	fresh := &ticket.Ticket{
		Scheme:     existing.Scheme,
		Claims:     claims,
		Properties: existing.Properties,
	}
	return true, r.store.Renew(ctx, rec.SessionID, fresh)
}

// canonicalClaims composes the directory's claims with the identity claim
// and one role claim per current role. The per-session origin claim is
// appended later, per session.
func (r *ClaimsRefresher) canonicalClaims(ctx context.Context, userID string) ([]ticket.Claim, error) {
	dirClaims, err := r.directory.GetClaims(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load claims for user %q: %w", userID, err)
	}
	roles, err := r.directory.GetRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles for user %q: %w", userID, err)
	}

	claims := make([]ticket.Claim, 0, len(dirClaims)+len(roles)+1)
	hasIdentity := false
	for _, c := range dirClaims {
		if c.Type == ticket.ClaimOrigin {
			// Origin is per session, never a directory attribute.
			continue
		}
		if c.Type == ticket.ClaimUserID {
			hasIdentity = true
		}
		claims = append(claims, c)
	}
	if !hasIdentity {
		claims = append(claims, ticket.Claim{Type: ticket.ClaimUserID, Value: userID})
	}
	for _, role := range roles {
		claims = append(claims, ticket.Claim{Type: ticket.ClaimRole, Value: role})
	}
	return claims, nil
}
