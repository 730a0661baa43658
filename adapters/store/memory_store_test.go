package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeSucceedsExactlyOnce(t *testing.T) {
	s := NewMemoryNonceStore(5 * time.Minute)
	defer s.Close()
	ctx := context.Background()

	challenge, err := s.Issue(ctx, "0xaaa")
	require.NoError(t, err)
	require.NotEmpty(t, challenge.Nonce)

	ok, err := s.Consume(ctx, "0xaaa", challenge.Nonce)
	require.NoError(t, err)
	assert.True(t, ok)

	// Replays with the same nonce must fail.
	ok, err = s.Consume(ctx, "0xaaa", challenge.Nonce)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeWrongNonceBurnsChallenge(t *testing.T) {
	s := NewMemoryNonceStore(5 * time.Minute)
	defer s.Close()
	ctx := context.Background()

	challenge, err := s.Issue(ctx, "0xaaa")
	require.NoError(t, err)

	ok, err := s.Consume(ctx, "0xaaa", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	// The failed attempt consumed the challenge too.
	ok, err = s.Consume(ctx, "0xaaa", challenge.Nonce)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeExpiredChallenge(t *testing.T) {
	s := NewMemoryNonceStore(-time.Second)
	defer s.Close()
	ctx := context.Background()

	challenge, err := s.Issue(ctx, "0xaaa")
	require.NoError(t, err)

	ok, err := s.Consume(ctx, "0xaaa", challenge.Nonce)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIssueOverwritesPriorChallenge(t *testing.T) {
	s := NewMemoryNonceStore(5 * time.Minute)
	defer s.Close()
	ctx := context.Background()

	first, err := s.Issue(ctx, "0xaaa")
	require.NoError(t, err)
	second, err := s.Issue(ctx, "0xaaa")
	require.NoError(t, err)
	require.NotEqual(t, first.Nonce, second.Nonce)

	ok, err := s.Consume(ctx, "0xaaa", first.Nonce)
	require.NoError(t, err)
	assert.False(t, ok)

	// The overwritten challenge burned on the failed attempt above.
	ok, err = s.Consume(ctx, "0xaaa", second.Nonce)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeUnknownKey(t *testing.T) {
	s := NewMemoryNonceStore(5 * time.Minute)
	defer s.Close()

	ok, err := s.Consume(context.Background(), "0xbbb", "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}
