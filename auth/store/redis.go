package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viant/bearer/auth/credential"
)

const (
	accessField  = "access"
	refreshField = "refresh"
)

// RedisStore keeps the pair in a redis hash so that several processes can share one session
type RedisStore struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

type RedisStoreOption func(*RedisStore)

// WithTTL expires stored credentials after ttl
func WithTTL(ttl time.Duration) RedisStoreOption {
	return func(r *RedisStore) {
		r.ttl = ttl
	}
}

// NewRedisStore creates a Store backed by the hash at key
func NewRedisStore(client redis.UniversalClient, key string, options ...RedisStoreOption) *RedisStore {
	ret := &RedisStore{client: client, key: key}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

func (r *RedisStore) Get(ctx context.Context) (*credential.Pair, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, err
	}
	pair := credential.New(values[accessField], values[refreshField])
	if !pair.Valid() {
		return nil, nil
	}
	return pair, nil
}

// Set replaces both fields in one transaction
func (r *RedisStore) Set(ctx context.Context, pair *credential.Pair) error {
	if !pair.Valid() {
		return ErrIncompletePair
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.key, accessField, pair.AccessToken, refreshField, pair.RefreshToken)
		if r.ttl > 0 {
			pipe.Expire(ctx, r.key, r.ttl)
		}
		return nil
	})
	return err
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}
