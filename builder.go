package sessionstore

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/przemekbroda/sessionstore/internal/metrics"
	"github.com/przemekbroda/sessionstore/metadata"
	"github.com/przemekbroda/sessionstore/rediscache"
	"github.com/przemekbroda/sessionstore/ticket"
)

// Builder assembles a Manager from its dependencies. All collaborators are
// injected here, at construction; nothing is looked up at call time.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	cache     ticket.Cache
	repo      metadata.Repository
	directory UserDirectory
	logger    zerolog.Logger

	built bool
}

// New returns a Builder preloaded with DefaultConfig and a no-op logger.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig replaces the configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithRedis sets the Redis client backing the ticket cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCache sets a custom ticket cache, overriding WithRedis.
func (b *Builder) WithCache(cache ticket.Cache) *Builder {
	b.cache = cache
	return b
}

// WithRepository sets the durable session metadata repository.
func (b *Builder) WithRepository(repo metadata.Repository) *Builder {
	b.repo = repo
	return b
}

// WithUserDirectory sets the identity provider consulted on claims refresh.
func (b *Builder) WithUserDirectory(directory UserDirectory) *Builder {
	b.directory = directory
	return b
}

// WithLogger sets the structured logger. Defaults to a no-op logger.
func (b *Builder) WithLogger(logger zerolog.Logger) *Builder {
	b.logger = logger
	return b
}

// Build validates the wiring and returns a ready Manager. The sweeper is
// created but not started; call Manager.StartSweeper explicitly.
func (b *Builder) Build() (*Manager, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	cache := b.cache
	if cache == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or ticket cache required")
		}
		cache = rediscache.New(b.redis)
	}
	if b.repo == nil {
		return nil, errors.New("session metadata repository required")
	}
	if b.directory == nil {
		return nil, errors.New("user directory required")
	}

	b.built = true

	m := metrics.New()
	store := ticket.NewStore(cache, b.repo, ticket.Options{
		KeyPrefix:         b.config.Cache.KeyPrefix,
		SlidingExpiration: b.config.Cache.SlidingExpiration,
		DefaultLifetime:   b.config.Cache.DefaultSessionLifetime,
		Logger:            b.logger,
		Metrics:           m,
	})

	return &Manager{
		config:    b.config,
		store:     store,
		repo:      b.repo,
		refresher: NewClaimsRefresher(b.directory, store, b.repo, b.config.Refresh, b.logger, m),
		sweeper:   NewExpirySweeper(b.repo, b.config.Sweeper, b.logger, m),
		log:       b.logger,
		metrics:   m,
	}, nil
}
