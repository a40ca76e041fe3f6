package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"social-dashboard/domain/model"
	"social-dashboard/domain/repository"
)

const (
	keyPrefix        = "ratelimit"
	maxCASRetries    = 5
	defaultRecordTTL = 24 * time.Hour
)

// ErrContention is returned when optimistic updates kept losing the race.
var ErrContention = errors.New("rate limit record contended")

type redisRateLimit struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisRateLimit stores counters as JSON values. Updates use WATCH/MULTI so that
// concurrent writers of the same key never lose increments.
func NewRedisRateLimit(client redis.UniversalClient, ttl time.Duration) repository.IRateLimit {
	if ttl <= 0 {
		ttl = defaultRecordTTL
	}
	return &redisRateLimit{client: client, ttl: ttl}
}

func rateLimitKey(userID string, category model.RateLimitCategory) string {
	return fmt.Sprintf("%s:%s:%s", keyPrefix, category, userID)
}

func (r *redisRateLimit) Get(ctx context.Context, userID string, category model.RateLimitCategory) (*model.RateLimitRecord, error) {
	return decode(r.client.Get(ctx, rateLimitKey(userID, category)))
}

func (r *redisRateLimit) Update(ctx context.Context, userID string, category model.RateLimitCategory, fn func(*model.RateLimitRecord) *model.RateLimitRecord) error {
	key := rateLimitKey(userID, category)
	txf := func(tx *redis.Tx) error {
		current, err := decode(tx.Get(ctx, key))
		if err != nil {
			return err
		}
		next := fn(current)
		if next == nil {
			return nil
		}
		data, err := json.Marshal(next)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.expiry(next))
			return nil
		})
		return err
	}

	for i := 0; i < maxCASRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrContention
}

// expiry never drops a counter before its window closes.
func (r *redisRateLimit) expiry(rec *model.RateLimitRecord) time.Duration {
	if rec.Window > r.ttl {
		return rec.Window
	}
	return r.ttl
}

func (r *redisRateLimit) Delete(ctx context.Context, userID string, category model.RateLimitCategory) error {
	return r.client.Del(ctx, rateLimitKey(userID, category)).Err()
}

func decode(cmd *redis.StringCmd) (*model.RateLimitRecord, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec model.RateLimitRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode rate limit record: %w", err)
	}
	return &rec, nil
}
