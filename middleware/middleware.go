// Package middleware exposes the HTTP adapter for cookie-based session
// authentication.
//
// [Authenticate] reads the session cookie, resolves the ticket through the
// manager's cache-only retrieval, and injects it into the request context
// for [TicketFromContext]. It translates HTTP semantics into manager calls
// and makes no authorization decisions of its own.
package middleware

import (
	"context"
	"net/http"

	sessionstore "github.com/przemekbroda/sessionstore"
	"github.com/przemekbroda/sessionstore/ticket"
)

type ticketContextKey struct{}

// TicketFromContext returns the ticket injected by Authenticate.
func TicketFromContext(ctx context.Context) (*ticket.Ticket, bool) {
	t, ok := ctx.Value(ticketContextKey{}).(*ticket.Ticket)
	return t, ok
}

// Authenticate guards a handler with the session cookie. Requests without a
// live session get 401; a store outage gets 503 so clients retry instead of
// treating it as a logout.
func Authenticate(mgr *sessionstore.Manager, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if mgr == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			cookie, err := r.Cookie(cookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			t, err := mgr.RetrieveTicket(r.Context(), cookie.Value)
			if err != nil {
				http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
				return
			}
			if t == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ticketContextKey{}, t)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole guards a handler with a role claim on the authenticated
// ticket. It must run inside Authenticate.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t, ok := TicketFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if !t.HasRole(role) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
