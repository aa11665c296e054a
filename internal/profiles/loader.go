// Package profiles serves requester profiles from Redis in front of Postgres.
package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"greencrew/internal/common/logger"
	"greencrew/internal/common/metrics"
	"greencrew/internal/models"
	"greencrew/internal/store"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "profile:"

// Loader is a cache-aside store.ProfileStore. Cache failures degrade to the
// source; only source failures are returned.
type Loader struct {
	source store.ProfileStore
	cache  redis.Cmdable
	ttl    time.Duration
	log    logger.Logger
}

var _ store.ProfileStore = (*Loader)(nil)

// NewLoader builds a loader. A nil cache reads straight from source.
func NewLoader(source store.ProfileStore, cache redis.Cmdable, ttl time.Duration, log logger.Logger) *Loader {
	return &Loader{
		source: source,
		cache:  cache,
		ttl:    ttl,
		log:    log.WithFields(map[string]interface{}{"component": "profiles"}),
	}
}

func cacheKey(id string) string { return keyPrefix + id }

func (l *Loader) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	if p, ok := l.fromCache(ctx, id); ok {
		return p, nil
	}

	p, err := l.source.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if l.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			if err := l.cache.Set(ctx, cacheKey(id), data, l.ttl).Err(); err != nil {
				l.log.WithError(err).Warn("Failed to cache profile", map[string]interface{}{"profileId": id})
			}
		}
	}
	return p, nil
}

func (l *Loader) fromCache(ctx context.Context, id string) (*models.Profile, bool) {
	if l.cache == nil {
		return nil, false
	}

	data, err := l.cache.Get(ctx, cacheKey(id)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.ProfileCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	case err != nil:
		metrics.ProfileCacheLookups.WithLabelValues("error").Inc()
		l.log.WithError(err).Warn("Profile cache read failed", map[string]interface{}{"profileId": id})
		return nil, false
	}

	var p models.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.ProfileCacheLookups.WithLabelValues("error").Inc()
		l.log.WithError(err).Warn("Discarding corrupt cached profile", map[string]interface{}{"profileId": id})
		return nil, false
	}
	metrics.ProfileCacheLookups.WithLabelValues("hit").Inc()
	return &p, true
}

// Invalidate drops a cached profile after it changes.
func (l *Loader) Invalidate(ctx context.Context, id string) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Del(ctx, cacheKey(id)).Err()
}
