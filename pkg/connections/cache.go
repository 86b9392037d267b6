package connections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTTL matches the refresh interval the dashboard uses for connection
// status.
const DefaultTTL = 30 * time.Minute

// Cache serves snapshots from a store, falling back to the broker on a miss.
// It is an explicit dependency of its consumers, never a package global, so
// tests construct isolated instances.
type Cache struct {
	store  Store
	fetch  FetchFunc
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		c.now = now
	}
}

func NewCache(store Store, fetch FetchFunc, logger *slog.Logger, opts ...CacheOption) *Cache {
	cache := &Cache{
		store:  store,
		fetch:  fetch,
		ttl:    DefaultTTL,
		logger: logger.With("module", "connections_cache"),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// Get returns the cached snapshot for a user, fetching from the broker when
// the cache has no fresh entry.
func (c *Cache) Get(ctx context.Context, userID string) (*Snapshot, error) {
	snapshot, err := c.store.Get(ctx, userID)
	if err == nil {
		return snapshot, nil
	}

	if !errors.Is(err, ErrSnapshotNotFound) {
		// A broken store should not take down reads; fall through to the
		// broker and log the store failure.
		c.logger.WarnContext(ctx, "Snapshot store read failed, fetching from broker", "user_id", userID, "error", err)
	}

	return c.Refresh(ctx, userID)
}

// Refresh fetches the authoritative set from the broker and replaces the
// cached snapshot regardless of its age.
func (c *Cache) Refresh(ctx context.Context, userID string) (*Snapshot, error) {
	conns, err := c.fetch(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch connected integrations for user %s: %w", userID, err)
	}

	snapshot := &Snapshot{
		UserID:      userID,
		Connections: conns,
		FetchedAt:   c.now(),
	}

	if err := c.store.Set(ctx, snapshot, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "Failed to cache connection snapshot", "user_id", userID, "error", err)
	}

	return snapshot, nil
}

// Invalidate drops the cached snapshot so the next read hits the broker.
// Called after the broker reports a missing grant, since the cached set is
// then known to be wrong.
func (c *Cache) Invalidate(ctx context.Context, userID string) error {
	return c.store.Delete(ctx, userID)
}
