// internal/export/dedup.go
package export

import (
	"context"
	"strings"

	"resto-harvester/internal/common/database"
)

// RedisDeduper remembers exported review ids in one Redis set per
// city.
type RedisDeduper struct {
	redis  *database.RedisClient
	prefix string
}

func NewRedisDeduper(redis *database.RedisClient, prefix string) *RedisDeduper {
	if prefix == "" {
		prefix = "exported_reviews"
	}
	return &RedisDeduper{redis: redis, prefix: prefix}
}

func (d *RedisDeduper) Seen(ctx context.Context, city, reviewID string) (bool, error) {
	return d.redis.SIsMember(ctx, d.key(city), reviewID)
}

func (d *RedisDeduper) Mark(ctx context.Context, city string, reviewIDs []string) error {
	if len(reviewIDs) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(reviewIDs))
	for _, id := range reviewIDs {
		members = append(members, id)
	}
	return d.redis.SAdd(ctx, d.key(city), members...)
}

func (d *RedisDeduper) key(city string) string {
	return d.prefix + ":" + strings.Join(strings.Fields(strings.ToLower(city)), "_")
}
