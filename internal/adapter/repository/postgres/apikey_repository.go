package postgres

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/V4T54L/safelog/internal/adapter/metrics"
)

// A key is valid if it exists, is active, and has not expired.
const validKeyQuery = `SELECT EXISTS(SELECT 1 FROM api_keys WHERE key = $1 AND is_active = true AND (expires_at IS NULL OR expires_at > NOW()))`

// defaultMaxCacheEntries bounds memory when clients cycle through many
// distinct keys.
const defaultMaxCacheEntries = 10000

type cacheEntry struct {
	isValid   bool
	expiresAt time.Time
}

// Open connects to PostgreSQL and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// APIKeyRepository implements the domain.APIKeyRepository interface using PostgreSQL
// as the source of truth and an in-memory, time-based cache. Cache entries are
// keyed by a SHA-256 digest so raw keys are not retained in memory.
type APIKeyRepository struct {
	lookup   func(ctx context.Context, key string) (bool, error)
	logger   *slog.Logger
	cache    map[[sha256.Size]byte]cacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	maxSize  int
	now      func() time.Time
	metrics  *metrics.LoggerMetrics
}

// NewAPIKeyRepository creates a new instance of the PostgreSQL API key repository.
func NewAPIKeyRepository(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.LoggerMetrics) *APIKeyRepository {
	lookup := func(ctx context.Context, key string) (bool, error) {
		var isValid bool
		err := db.QueryRowContext(ctx, validKeyQuery, key).Scan(&isValid)
		return isValid, err
	}
	return newAPIKeyRepository(lookup, logger, cacheTTL, m)
}

func newAPIKeyRepository(lookup func(context.Context, string) (bool, error), logger *slog.Logger, cacheTTL time.Duration, m *metrics.LoggerMetrics) *APIKeyRepository {
	return &APIKeyRepository{
		lookup:   lookup,
		logger:   logger.With("component", "apikey_repository"),
		cache:    make(map[[sha256.Size]byte]cacheEntry),
		cacheTTL: cacheTTL,
		maxSize:  defaultMaxCacheEntries,
		now:      time.Now,
		metrics:  m,
	}
}

// IsValid checks if an API key is valid. It first checks a local cache and falls
// back to the database if the key is not found or the cache entry has expired.
func (r *APIKeyRepository) IsValid(ctx context.Context, key string) (bool, error) {
	digest := sha256.Sum256([]byte(key))

	r.mu.RLock()
	entry, found := r.cache[digest]
	r.mu.RUnlock()

	if found && r.now().Before(entry.expiresAt) {
		if r.metrics != nil {
			r.metrics.APIKeyCacheHits.Inc()
		}
		return entry.isValid, nil
	}

	if r.metrics != nil {
		r.metrics.APIKeyCacheMisses.Inc()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check cache in case another goroutine populated it while waiting for the lock
	entry, found = r.cache[digest]
	if found && r.now().Before(entry.expiresAt) {
		return entry.isValid, nil
	}

	isValid, err := r.lookup(ctx, key)
	if err != nil {
		r.logger.Error("failed to validate API key in database", "error", err)
		// Don't cache errors, let the next request retry from the DB
		return false, fmt.Errorf("failed to validate API key: %w", err)
	}

	r.store(digest, isValid)
	return isValid, nil
}

// store must be called with mu held. Expired entries are only swept once the
// cache is full; if every entry is still live the new result is not cached.
func (r *APIKeyRepository) store(digest [sha256.Size]byte, isValid bool) {
	if _, ok := r.cache[digest]; !ok && len(r.cache) >= r.maxSize {
		now := r.now()
		for k, e := range r.cache {
			if !now.Before(e.expiresAt) {
				delete(r.cache, k)
			}
		}
		if len(r.cache) >= r.maxSize {
			return
		}
	}
	r.cache[digest] = cacheEntry{
		isValid:   isValid,
		expiresAt: r.now().Add(r.cacheTTL),
	}
}
