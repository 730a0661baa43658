package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/ports"
)

const nonceLength = 32

// RedisNonceStore is a Redis implementation of the NonceStore
// interface. Redis key TTLs enforce challenge expiry and GETDEL makes
// the consume step atomic across instances.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisNonceStore creates a Redis-backed nonce store.
func NewRedisNonceStore(client *redis.Client, ttl time.Duration) ports.NonceStore {
	return &RedisNonceStore{
		client: client,
		prefix: "chaintalk:nonce:",
		ttl:    ttl,
	}
}

// Issue creates a fresh challenge for the key, overwriting any prior
// unconsumed challenge.
func (s *RedisNonceStore) Issue(ctx context.Context, key string) (core.Challenge, error) {
	nonce, err := generateNonce()
	if err != nil {
		return core.Challenge{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now()
	challenge := core.Challenge{
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.client.Set(ctx, s.prefix+key, nonce, s.ttl).Err(); err != nil {
		return core.Challenge{}, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}

	return challenge, nil
}

// Consume atomically fetches and deletes the challenge for the key.
// Any consume attempt burns the challenge, matching or not.
func (s *RedisNonceStore) Consume(ctx context.Context, key, nonce string) (bool, error) {
	stored, err := s.client.GetDel(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", core.ErrStoreOperationFailed, err)
	}
	return stored == nonce, nil
}

func generateNonce() (string, error) {
	bytes := make([]byte, nonceLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
