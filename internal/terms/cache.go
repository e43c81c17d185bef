package terms

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "tutela/pkg/domain"
)

// activeCacheTTL bounds staleness of the active-version cache. Re-consent
// detection tolerates a short window where a superseded version is still
// served; the ledger always records the version actually resolved.
const activeCacheTTL = 5 * time.Minute

const activeCacheKeyPrefix = "terms:active:"

// ActiveCache is a read-through Redis cache for active terms lookups, the
// hot path of consent recording and re-consent checks. Cache failures fall
// through to the store and are logged, never surfaced.
type ActiveCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewActiveCache(client *redis.Client, logger *slog.Logger) *ActiveCache {
	return &ActiveCache{client: client, logger: logger}
}

func (c *ActiveCache) get(ctx context.Context, docType id.DocumentType) (Version, bool) {
	raw, err := c.client.Get(ctx, activeCacheKeyPrefix+docType.String()).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "terms cache read failed", "error", err)
		}
		return Version{}, false
	}
	var v Version
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.WarnContext(ctx, "terms cache decode failed", "error", err)
		return Version{}, false
	}
	return v, true
}

func (c *ActiveCache) set(ctx context.Context, v Version) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, activeCacheKeyPrefix+v.DocumentType.String(), raw, activeCacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "terms cache write failed", "error", err)
	}
}

func (c *ActiveCache) invalidate(ctx context.Context, docType id.DocumentType) {
	if err := c.client.Del(ctx, activeCacheKeyPrefix+docType.String()).Err(); err != nil {
		c.logger.WarnContext(ctx, "terms cache invalidation failed", "error", err)
	}
}
