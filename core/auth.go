package core

import "time"

// Challenge is a single-use authentication nonce issued before login.
// It is keyed by a correlation key (the lowercased address of the
// requesting wallet) and burned on the first consume attempt,
// successful or not.
type Challenge struct {
	Nonce     string    // Random nonce to be embedded in the signed message
	IssuedAt  time.Time // When the challenge was created
	ExpiresAt time.Time // When the challenge expires
}

// Expired reports whether the challenge TTL has elapsed.
func (c Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// AuthSession represents an authenticated user session as carried by
// the access token.
type AuthSession struct {
	ID        string    // Unique session identifier
	Address   Identity  // Wallet address of the user
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the access capability expires
}
