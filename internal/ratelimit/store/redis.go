package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"sahayak/internal/ratelimit/models"
)

const keyPrefix = "sahayak:ratelimit:"

// Redis keeps each window as a sorted set of request ids scored by arrival
// time in microseconds, so every instance sees the same budget.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Allow trims the window, counts it and records the request in one
// transaction. A rejected request is removed again so it does not consume
// budget.
func (s *Redis) Allow(ctx context.Context, key string, limit models.Limit) (models.Result, error) {
	now := s.now()
	k := keyPrefix + key
	member := uuid.NewString()
	cutoff := now.Add(-limit.Window).UnixMicro()

	var count *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, k, "-inf", strconv.FormatInt(cutoff, 10))
		count = pipe.ZCard(ctx, k)
		oldest = pipe.ZRangeWithScores(ctx, k, 0, 0)
		pipe.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMicro()), Member: member})
		pipe.Expire(ctx, k, limit.Window)
		return nil
	})
	if err != nil {
		return models.Result{}, fmt.Errorf("rate limit window %s: %w", key, err)
	}

	resetAt := now.Add(limit.Window)
	if first := oldest.Val(); len(first) > 0 {
		resetAt = time.UnixMicro(int64(first[0].Score)).Add(limit.Window)
	}
	seen := int(count.Val())
	if seen >= limit.Requests {
		if err := s.client.ZRem(ctx, k, member).Err(); err != nil {
			return models.Result{}, fmt.Errorf("rate limit window %s: %w", key, err)
		}
		return models.Result{
			Limit:      limit.Requests,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(now, resetAt),
		}, nil
	}
	return models.Result{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests - seen - 1,
		ResetAt:   resetAt,
	}, nil
}
