package translate

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hbq0405/emby-actor-processor/internal/logging"
)

// redisCacheTTL bounds how long an L2 entry lives, so a stale shared
// entry eventually expires without manual intervention.
const redisCacheTTL = 30 * 24 * time.Hour

// L2Cache is the optional shared translation cache tier described in
// SPEC_FULL.md: a Redis-backed layer TranslateBatch consults after a
// translation_cache miss and before the engines, so a fleet of processes sharing one Redis instance
// don't each re-negotiate the same AI/fallback calls for the same text.
// It is purely an accelerator — database.TranslationEntry remains the
// authoritative record and is always the source the merge-priority rule
// in MergePriority operates over.
type L2Cache struct {
	rdb *redis.Client
	log *logging.Logger
}

// NewL2Cache connects to addr/db. The connection is lazy — redis.NewClient
// never dials until the first command, so a misconfigured or unreachable
// Redis only degrades individual Get/Set calls rather than startup.
func NewL2Cache(addr string, db int, log *logging.Logger) *L2Cache {
	if log == nil {
		log = logging.Nop()
	}
	return &L2Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr, DB: db}),
		log: log,
	}
}

func (c *L2Cache) key(text string) string {
	return "embyactor:translate:" + text
}

// Get returns the cached translation and true on a hit. A miss, a
// connection error, or a negative-cache marker (empty string value) all
// surface as (..., false) so callers fall through to the translator
// chain; Redis unavailability is never fatal to
// translation.
func (c *L2Cache) Get(ctx context.Context, text string) (string, bool) {
	val, err := c.rdb.Get(ctx, c.key(text)).Result()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("translate", "L2 cache get failed", logging.F("error", err.Error()))
		}
		return "", false
	}
	if val == "" {
		return "", false
	}
	return val, true
}

// Set writes a positive translation through to the shared tier. Negative
// results are never written here; translation_cache alone holds
// negative-cache entries.
func (c *L2Cache) Set(ctx context.Context, text, translated string) {
	if err := c.rdb.Set(ctx, c.key(text), translated, redisCacheTTL).Err(); err != nil {
		c.log.Warn("translate", "L2 cache set failed", logging.F("error", err.Error()))
	}
}

// Close releases the underlying connection pool.
func (c *L2Cache) Close() error {
	return c.rdb.Close()
}
