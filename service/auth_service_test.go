package service

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/chaintalk/adapters/store"
	"github.com/layer-3/chaintalk/adapters/tokenizer"
	"github.com/layer-3/chaintalk/core"
	"github.com/layer-3/chaintalk/internal/eth"
)

func newTestAuthService(t *testing.T, challengeTTL time.Duration) (*AuthService, *store.MemoryNonceStore) {
	t.Helper()

	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	nonces := store.NewMemoryNonceStore(challengeTTL)
	t.Cleanup(nonces.Close)

	return NewAuthService(tokenizer.NewJWTTokenizer(signKey), nonces, 24*time.Hour), nonces
}

func signInMessage(address, nonce string) string {
	return fmt.Sprintf("chaintalk.example wants you to sign in with your Ethereum account:\n%s\n\nNonce: %s", address, nonce)
}

func TestLoginHappyPath(t *testing.T) {
	svc, _ := newTestAuthService(t, 5*time.Minute)
	ctx := context.Background()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	challenge, err := svc.CreateChallenge(ctx, address)
	require.NoError(t, err)

	message := signInMessage(address, challenge.Nonce)
	signature, err := eth.SignPersonal([]byte(message), walletKey)
	require.NoError(t, err)

	token, identity, err := svc.Login(ctx, message, signature, address)
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(address), identity.String())

	session, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity, session.Address)
}

func TestLoginIdentityMismatch(t *testing.T) {
	svc, _ := newTestAuthService(t, 5*time.Minute)
	ctx := context.Background()

	// Challenge is issued for one wallet, message is signed by another.
	claimedKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(claimedKey.PublicKey).Hex()

	challenge, err := svc.CreateChallenge(ctx, address)
	require.NoError(t, err)

	message := signInMessage(address, challenge.Nonce)
	signature, err := eth.SignPersonal([]byte(message), otherKey)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, message, signature, address)
	assert.ErrorIs(t, err, core.ErrIdentityMismatch)
}

func TestLoginReplayRejected(t *testing.T) {
	svc, _ := newTestAuthService(t, 5*time.Minute)
	ctx := context.Background()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	challenge, err := svc.CreateChallenge(ctx, address)
	require.NoError(t, err)

	message := signInMessage(address, challenge.Nonce)
	signature, err := eth.SignPersonal([]byte(message), walletKey)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, message, signature, address)
	require.NoError(t, err)

	// Same message and signature again: the nonce is gone.
	_, _, err = svc.Login(ctx, message, signature, address)
	assert.ErrorIs(t, err, core.ErrChallengeInvalid)
}

func TestLoginExpiredChallenge(t *testing.T) {
	svc, _ := newTestAuthService(t, -time.Second)
	ctx := context.Background()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	challenge, err := svc.CreateChallenge(ctx, address)
	require.NoError(t, err)

	message := signInMessage(address, challenge.Nonce)
	signature, err := eth.SignPersonal([]byte(message), walletKey)
	require.NoError(t, err)

	// Correct signature, expired nonce.
	_, _, err = svc.Login(ctx, message, signature, address)
	assert.ErrorIs(t, err, core.ErrChallengeInvalid)
}

func TestLoginMalformedSignature(t *testing.T) {
	svc, _ := newTestAuthService(t, 5*time.Minute)
	ctx := context.Background()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	challenge, err := svc.CreateChallenge(ctx, address)
	require.NoError(t, err)

	message := signInMessage(address, challenge.Nonce)

	_, _, err = svc.Login(ctx, message, "0x1234", address)
	assert.ErrorIs(t, err, core.ErrInvalidSignature)
}

func TestLoginMessageWithoutNonce(t *testing.T) {
	svc, _ := newTestAuthService(t, 5*time.Minute)
	ctx := context.Background()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	_, err = svc.CreateChallenge(ctx, address)
	require.NoError(t, err)

	message := "a message that embeds no challenge"
	signature, err := eth.SignPersonal([]byte(message), walletKey)
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, message, signature, address)
	assert.ErrorIs(t, err, core.ErrChallengeInvalid)
}

func TestSessionTTLBoundsTokenExpiry(t *testing.T) {
	signKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	nonces := store.NewMemoryNonceStore(5 * time.Minute)
	t.Cleanup(nonces.Close)

	svc := NewAuthService(tokenizer.NewJWTTokenizer(signKey), nonces, time.Hour)
	ctx := context.Background()

	walletKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	address := crypto.PubkeyToAddress(walletKey.PublicKey).Hex()

	challenge, err := svc.CreateChallenge(ctx, address)
	require.NoError(t, err)

	message := signInMessage(address, challenge.Nonce)
	signature, err := eth.SignPersonal([]byte(message), walletKey)
	require.NoError(t, err)

	token, _, err := svc.Login(ctx, message, signature, address)
	require.NoError(t, err)

	session, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.WithinDuration(t, session.IssuedAt.Add(time.Hour), session.ExpiresAt, 2*time.Second)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, _ := newTestAuthService(t, 5*time.Minute)

	_, err := svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestCreateChallengeBadAddress(t *testing.T) {
	svc, _ := newTestAuthService(t, 5*time.Minute)

	_, err := svc.CreateChallenge(context.Background(), "not-an-address")
	assert.ErrorIs(t, err, core.ErrInvalidAddress)
}
