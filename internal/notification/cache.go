package notification

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"sipro/pkg/domain"
)

const (
	unreadKeyPrefix = "notif:unread:"
	unreadTTL       = 5 * time.Minute
)

// UnreadCache keeps per-user unread counts in Redis so the badge poll does
// not hit the database on every request. Misses and errors fall through to
// the store; writes invalidate.
type UnreadCache struct {
	client *redis.Client
}

func NewUnreadCache(client *redis.Client) *UnreadCache {
	return &UnreadCache{client: client}
}

// Get returns the cached count and whether it was present.
func (c *UnreadCache) Get(ctx context.Context, userID domain.UserID) (int, bool, error) {
	if c == nil || c.client == nil {
		return 0, false, nil
	}
	raw, err := c.client.Get(ctx, unreadKeyPrefix+userID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, err
	}
	return count, true, nil
}

// Set stores the count with a TTL.
func (c *UnreadCache) Set(ctx context.Context, userID domain.UserID, count int) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, unreadKeyPrefix+userID.String(), strconv.Itoa(count), unreadTTL).Err()
}

// Invalidate drops the cached count after any write to the user's inbox.
func (c *UnreadCache) Invalidate(ctx context.Context, userID domain.UserID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, unreadKeyPrefix+userID.String()).Err()
}
