// Package sessionstore persists authenticated login sessions across two
// coupled stores: a TTL key-value cache holding the serialized ticket read
// on every request, and a durable relational table of per-session metadata
// used for enumeration and administrative revocation.
//
// The package is designed for concurrent server workloads: Manager methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build]. Exclusivity lives in the external stores, not in
// in-process locks.
//
// # Consistency model
//
// Every renewal writes the metadata row before the cache entry. A crash in
// between leaves a row without a live entry — a dead session the sweeper
// reclaims — never a live entry invisible to administration. Bulk
// revocation inverts the exposure: rows go first, so a crash mid fan-out
// leaves cache entries that authenticate until their own TTL lapses. That
// revocation-latency window is bounded by the session lifetime and is the
// accepted trade-off of the ordering.
//
// # Performance contract
//
// Retrieve is the hot path: one cache round-trip. The one exception is
// sliding expiration, which renews a session that has burned through half
// its window and pays the full renewal cost on that retrieval. Renewal and
// revocation are allowed one repository statement plus one cache command
// each.
package sessionstore
