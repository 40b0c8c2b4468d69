package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/opencourse-api/internal/models"
)

// EngagementCache holds derived engagement states. It is a read cache only and
// is invalidated after every committed toggle.
//
// Get also returns the key's generation. Set stores a state only while that
// generation is current, so a state resolved before an invalidation is dropped.
type EngagementCache interface {
	Get(ctx context.Context, kind models.TargetKind, targetID, userID uint) (EngagementState, int64, bool)
	Set(ctx context.Context, kind models.TargetKind, targetID, userID uint, state EngagementState, generation int64)
	Invalidate(ctx context.Context, kind models.TargetKind, targetID, userID uint)
}

type redisEngagementCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewEngagementCache returns a Redis backed cache, or a disabled cache when
// client is nil.
func NewEngagementCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) EngagementCache {
	if client == nil {
		return noopEngagementCache{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &redisEngagementCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "engagement_cache").Logger(),
	}
}

func engagementCacheKey(kind models.TargetKind, targetID, userID uint) string {
	return fmt.Sprintf("engagement:%s:%d:user:%d", kind, targetID, userID)
}

func engagementGenerationKey(kind models.TargetKind, targetID, userID uint) string {
	return engagementCacheKey(kind, targetID, userID) + ":gen"
}

func (c *redisEngagementCache) Get(ctx context.Context, kind models.TargetKind, targetID, userID uint) (EngagementState, int64, bool) {
	var cached, generation *redis.StringCmd
	_, err := c.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		cached = pipe.Get(ctx, engagementCacheKey(kind, targetID, userID))
		generation = pipe.Get(ctx, engagementGenerationKey(kind, targetID, userID))
		return nil
	})
	if err != nil && err != redis.Nil {
		c.logger.Warn().Err(err).Msg("failed to read engagement cache")
		return EngagementState{}, -1, false
	}

	gen, err := generation.Int64()
	if err != nil && err != redis.Nil {
		return EngagementState{}, -1, false
	}

	payload, err := cached.Bytes()
	if err != nil {
		return EngagementState{}, gen, false
	}
	var state EngagementState
	if err := json.Unmarshal(payload, &state); err != nil {
		return EngagementState{}, gen, false
	}
	return state, gen, true
}

func (c *redisEngagementCache) Set(ctx context.Context, kind models.TargetKind, targetID, userID uint, state EngagementState, generation int64) {
	if generation < 0 {
		return
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return
	}

	genKey := engagementGenerationKey(kind, targetID, userID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, genKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, engagementCacheKey(kind, targetID, userID), payload, c.ttl)
			return nil
		})
		return err
	}, genKey)
	if err == redis.TxFailedErr {
		return
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to store engagement cache")
	}
}

func (c *redisEngagementCache) Invalidate(ctx context.Context, kind models.TargetKind, targetID, userID uint) {
	genKey := engagementGenerationKey(kind, targetID, userID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, c.ttl)
		pipe.Del(ctx, engagementCacheKey(kind, targetID, userID))
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate engagement cache")
	}
}

type noopEngagementCache struct{}

func (noopEngagementCache) Get(context.Context, models.TargetKind, uint, uint) (EngagementState, int64, bool) {
	return EngagementState{}, -1, false
}

func (noopEngagementCache) Set(context.Context, models.TargetKind, uint, uint, EngagementState, int64) {
}

func (noopEngagementCache) Invalidate(context.Context, models.TargetKind, uint, uint) {}
