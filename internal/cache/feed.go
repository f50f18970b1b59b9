package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quickai/api/internal/models"
)

const feedKey = "feed:published"

// FeedCache holds a short-lived snapshot of the community feed so that the
// published listing does not hit postgres on every page load. Any write that
// could change the feed must call Invalidate.
type FeedCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewFeedCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *FeedCache {
	return &FeedCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (f *FeedCache) Get(ctx context.Context) ([]models.Creation, bool) {
	if f == nil || f.client == nil {
		return nil, false
	}

	raw, err := f.client.Get(ctx, feedKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			f.log.Warn().Err(err).Msg("feed cache read failed")
		}
		return nil, false
	}

	var creations []models.Creation
	if err := json.Unmarshal(raw, &creations); err != nil {
		f.log.Warn().Err(err).Msg("feed cache decode failed")
		return nil, false
	}
	return creations, true
}

func (f *FeedCache) Set(ctx context.Context, creations []models.Creation) {
	if f == nil || f.client == nil {
		return
	}

	raw, err := json.Marshal(creations)
	if err != nil {
		return
	}
	if err := f.client.Set(ctx, feedKey, raw, f.ttl).Err(); err != nil {
		f.log.Warn().Err(err).Msg("feed cache write failed")
	}
}

func (f *FeedCache) Invalidate(ctx context.Context) {
	if f == nil || f.client == nil {
		return
	}
	if err := f.client.Del(ctx, feedKey).Err(); err != nil {
		f.log.Warn().Err(err).Msg("feed cache invalidate failed")
	}
}
