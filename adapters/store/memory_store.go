package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/layer-3/chaintalk/core"
)

// MemoryNonceStore is an in-memory implementation of the NonceStore
// interface for tests and single-instance deployments. Expired entries
// are rejected passively on consume and reaped by a background sweep.
type MemoryNonceStore struct {
	challenges map[string]core.Challenge
	mu         sync.Mutex
	ttl        time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewMemoryNonceStore creates an in-memory nonce store with the given
// challenge TTL.
func NewMemoryNonceStore(ttl time.Duration) *MemoryNonceStore {
	s := &MemoryNonceStore{
		challenges: make(map[string]core.Challenge),
		ttl:        ttl,
		stop:       make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Issue creates a fresh challenge for the key, overwriting any prior
// unconsumed challenge.
func (s *MemoryNonceStore) Issue(ctx context.Context, key string) (core.Challenge, error) {
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

	s.mu.Lock()
	s.challenges[key] = challenge
	s.mu.Unlock()

	return challenge, nil
}

// Consume checks and deletes the challenge for the key under one lock.
// Any consume attempt burns the challenge, matching or not.
func (s *MemoryNonceStore) Consume(ctx context.Context, key, nonce string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	challenge, ok := s.challenges[key]
	if !ok {
		return false, nil
	}
	delete(s.challenges, key)

	if challenge.Expired(time.Now()) {
		return false, nil
	}
	return challenge.Nonce == nonce, nil
}

// Close stops the background sweep.
func (s *MemoryNonceStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryNonceStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, challenge := range s.challenges {
				if challenge.Expired(now) {
					delete(s.challenges, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
