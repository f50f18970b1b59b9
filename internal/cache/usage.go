package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// UsageLimiter counts free-plan generations per user and calendar month.
// Keys expire on their own; the count resets when the month rolls over
// because the key name changes.
type UsageLimiter struct {
	client *redis.Client
	quota  int
}

func NewUsageLimiter(client *redis.Client, quota int) *UsageLimiter {
	return &UsageLimiter{
		client: client,
		quota:  quota,
	}
}

// Consume records one generation for the user. It returns false when the
// monthly quota is already spent; the counter is not incremented past the
// quota so a later month starts clean.
func (l *UsageLimiter) Consume(ctx context.Context, userID string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}

	key := usageKey(userID, time.Now().UTC())

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("usage incr: %w", err)
	}
	if count == 1 {
		// first hit this month; keep the key until well past month end
		if err := l.client.Expire(ctx, key, 32*24*time.Hour).Err(); err != nil {
			return false, fmt.Errorf("usage expire: %w", err)
		}
	}

	if int(count) > l.quota {
		_ = l.client.Decr(ctx, key).Err()
		return false, nil
	}
	return true, nil
}

func usageKey(userID string, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s", userID, now.Format("2006-01"))
}
