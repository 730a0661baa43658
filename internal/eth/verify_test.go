package eth

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	message := []byte("chaintalk wants you to sign in\nNonce: abc123")

	sig, err := SignPersonal(message, key)
	require.NoError(t, err)

	recovered, err := RecoverAddress(message, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), recovered)
}

func TestRecoverAddressDifferentKey(t *testing.T) {
	keyA, err := crypto.GenerateKey()
	require.NoError(t, err)
	keyB, err := crypto.GenerateKey()
	require.NoError(t, err)

	message := []byte("sign in request")

	sig, err := SignPersonal(message, keyB)
	require.NoError(t, err)

	recovered, err := RecoverAddress(message, sig)
	require.NoError(t, err)
	assert.NotEqual(t, crypto.PubkeyToAddress(keyA.PublicKey), recovered)
}

func TestRecoverAddressTamperedMessage(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	sig, err := SignPersonal([]byte("original"), key)
	require.NoError(t, err)

	recovered, err := RecoverAddress([]byte("tampered"), sig)
	if err == nil {
		assert.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), recovered)
	}
}

func TestRecoverAddressMalformedSignature(t *testing.T) {
	_, err := RecoverAddress([]byte("msg"), "0xdeadbeef")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "65 bytes"))

	_, err = RecoverAddress([]byte("msg"), "not-hex")
	require.Error(t, err)
}
