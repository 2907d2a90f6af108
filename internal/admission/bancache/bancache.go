// Package bancache wraps the ban-lookup result in a short-lived TTL cache so
// the authz engine's per-request ban-callback (spec.md §4.C) doesn't hit
// Postgres on every authorization decision. A miss or expired entry falls
// through to the caller-supplied loader.
package bancache

import (
	"context"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// Loader fetches the authoritative ban state, e.g. admission storage's
// IsBanned.
type Loader func(ctx context.Context, accountID string, roomID uuid.UUID) (bool, error)

// Cache memoizes ban lookups keyed by (account_id, room_id).
type Cache struct {
	c      *gocache.Cache
	loader Loader
}

// New builds a Cache with the given TTL; expired entries are purged every
// 2*ttl.
func New(ttl time.Duration, loader Loader) *Cache {
	return &Cache{
		c:      gocache.New(ttl, 2*ttl),
		loader: loader,
	}
}

func key(accountID string, roomID uuid.UUID) string {
	return accountID + "|" + roomID.String()
}

// IsBanned returns the cached value if present, otherwise calls the loader
// and caches the result. On loader error it returns false (fail-open) and
// does not cache the failure, so the next call retries against the DB.
func (c *Cache) IsBanned(ctx context.Context, accountID string, roomID uuid.UUID) bool {
	k := key(accountID, roomID)
	if v, ok := c.c.Get(k); ok {
		return v.(bool)
	}
	banned, err := c.loader(ctx, accountID, roomID)
	if err != nil {
		return false
	}
	c.c.SetDefault(k, banned)
	return banned
}

// Invalidate drops the cached entry for (accountID, roomID), called after
// SetBan so the next ban-callback observes the change immediately rather
// than waiting out the TTL.
func (c *Cache) Invalidate(accountID string, roomID uuid.UUID) {
	c.c.Delete(key(accountID, roomID))
}
