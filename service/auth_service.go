package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/internal/eth"
	"github.com/layer-3/chaintalk/ports"
)

const noncePrefix = "Nonce: "

// AuthService handles the authenticated handshake: challenge issuance,
// signature verification and session token minting.
type AuthService struct {
	tokenizer ports.Tokenizer
	nonces    ports.NonceStore

	sessionTTL time.Duration
}

// NewAuthService creates a new authentication service. sessionTTL
// bounds the lifetime of minted session tokens; non-positive values
// fall back to 24h.
func NewAuthService(tokenizer ports.Tokenizer, nonces ports.NonceStore, sessionTTL time.Duration) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		tokenizer:  tokenizer,
		nonces:     nonces,
		sessionTTL: sessionTTL,
	}
}

// CreateChallenge issues a single-use challenge for the address. A new
// challenge overwrites any prior unconsumed one for the same address.
func (s *AuthService) CreateChallenge(ctx context.Context, address string) (core.Challenge, error) {
	identity, err := core.NewIdentity(address)
	if err != nil {
		return core.Challenge{}, err
	}

	challenge, err := s.nonces.Issue(ctx, identity.String())
	if err != nil {
		return core.Challenge{}, fmt.Errorf("failed to issue challenge: %w", err)
	}

	return challenge, nil
}

// Login verifies a signed challenge message against the claimed
// address and mints a session token. The embedded nonce is consumed as
// part of this call; a failed attempt burns it too.
func (s *AuthService) Login(ctx context.Context, message, signature, address string) (string, core.Identity, error) {
	identity, err := core.NewIdentity(address)
	if err != nil {
		return "", "", err
	}

	recovered, err := eth.RecoverAddress([]byte(message), signature)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}

	if !identity.Equal(recovered.Hex()) {
		return "", "", core.ErrIdentityMismatch
	}

	nonce := extractNonce(message)
	if nonce == "" {
		return "", "", core.ErrChallengeInvalid
	}

	ok, err := s.nonces.Consume(ctx, identity.String(), nonce)
	if err != nil {
		return "", "", fmt.Errorf("failed to consume challenge: %w", err)
	}
	if !ok {
		return "", "", core.ErrChallengeInvalid
	}

	now := time.Now()
	session := &core.AuthSession{
		ID:        uuid.New().String(),
		Address:   identity,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create session token: %w", err)
	}

	return token, identity, nil
}

// ValidateToken parses and validates a session token.
func (s *AuthService) ValidateToken(token string) (*core.AuthSession, error) {
	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidToken, err)
	}

	if time.Now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	return session, nil
}

// extractNonce pulls the "Nonce:" line out of the signed message. The
// message grammar beyond that line is opaque to the server.
func extractNonce(message string) string {
	for _, line := range strings.Split(message, "\n") {
		if strings.HasPrefix(line, noncePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, noncePrefix))
		}
	}
	return ""
}
