package sessionstore

import (
	"errors"
	"time"
)

// Config defines the tunable surface of the session store. Zero values are
// filled in by DefaultConfig; a Config built by hand must pass Validate.
type Config struct {
	Cache   CacheConfig
	Sweeper SweeperConfig
	Refresh RefreshConfig
}

// CacheConfig controls the ticket-cache side of the store.
type CacheConfig struct {
	// KeyPrefix namespaces session entries inside the shared cache.
	KeyPrefix string

	// SlidingExpiration renews a session for a full
	// DefaultSessionLifetime when a retrieval finds less than half of
	// that window remaining. Requires DefaultSessionLifetime.
	SlidingExpiration bool

	// DefaultSessionLifetime is applied to tickets stored without an
	// expiry of their own. Zero keeps such sessions alive until revoked.
	DefaultSessionLifetime time.Duration
}

// SweeperConfig controls the background metadata expiry sweep.
type SweeperConfig struct {
	// Interval between sweep ticks.
	Interval time.Duration

	// MaxRetries bounds the delete attempts within one tick before the
	// tick is abandoned (the next tick retries naturally).
	MaxRetries uint
}

// RefreshConfig controls claims propagation into live sessions.
type RefreshConfig struct {
	// Concurrency caps the per-user renewal fan-out.
	Concurrency int
}

// DefaultConfig returns the configuration the library ships with.
func DefaultConfig() Config {
	return Config{
		Cache: CacheConfig{
			KeyPrefix: "authsession:",
		},
		Sweeper: SweeperConfig{
			Interval:   2 * time.Minute,
			MaxRetries: 3,
		},
		Refresh: RefreshConfig{
			Concurrency: 8,
		},
	}
}

// Validate rejects configurations the store cannot run with.
func (c Config) Validate() error {
	if c.Cache.KeyPrefix == "" {
		return errors.New("cache key prefix must not be empty")
	}
	if c.Cache.DefaultSessionLifetime < 0 {
		return errors.New("default session lifetime must not be negative")
	}
	if c.Cache.SlidingExpiration && c.Cache.DefaultSessionLifetime <= 0 {
		return errors.New("sliding expiration requires a default session lifetime")
	}
	if c.Sweeper.Interval < time.Second {
		return errors.New("sweep interval must be at least one second")
	}
	if c.Refresh.Concurrency < 1 {
		return errors.New("refresh concurrency must be at least one")
	}
	return nil
}
