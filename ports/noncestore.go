package ports

import (
	"context"

	"github.com/layer-3/chaintalk/core"
)

// NonceStore issues and consumes single-use authentication challenges.
type NonceStore interface {
	// Issue creates a fresh challenge for the correlation key,
	// overwriting any prior unconsumed challenge for that key.
	Issue(ctx context.Context, key string) (core.Challenge, error)

	// Consume atomically checks existence, nonce match and non-expiry,
	// deleting the entry in the same step. It returns false on any
	// mismatch, expiry or absence without distinguishing which.
	Consume(ctx context.Context, key, nonce string) (bool, error)
}
